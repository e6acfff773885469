package history

import (
	"context"
	"errors"
	"fmt"

	"squad-tracker/internal/store"

	"github.com/rs/zerolog"
)

// SplitLegacyKey migrates an old consolidated series to per-subject keys.
// Each legacy entry is assigned to a subject by convert; assigned entries are
// appended to the subject's series, the old key is removed and a marker key
// is written so the migration runs at most once. Entries convert cannot place
// are dropped with a warning, matching how the dashboard retired them.
func SplitLegacyKey[L, P any](
	ctx context.Context,
	st *store.Store,
	logger zerolog.Logger,
	oldKey string,
	keyFor func(subject string) string,
	convert func(L) (subject string, entry Entry[P], ok bool),
) error {
	markerKey := oldKey + ".migrated"

	var done bool
	if err := st.Load(ctx, markerKey, &done); err == nil && done {
		return nil
	}

	var legacy []L
	err := st.Load(ctx, oldKey, &legacy)
	switch {
	case errors.Is(err, store.ErrNotFound):
		// Nothing to migrate, mark and move on.
		return st.Save(ctx, markerKey, true)
	case err != nil:
		logger.Warn().Err(err).Str("key", oldKey).Msg("legacy series unreadable, dropping it")
		if err := st.Remove(ctx, oldKey); err != nil {
			return err
		}
		return st.Save(ctx, markerKey, true)
	}

	grouped := make(map[string][]Entry[P])
	dropped := 0
	for _, item := range legacy {
		subject, entry, ok := convert(item)
		if !ok {
			dropped++
			continue
		}
		grouped[subject] = append(grouped[subject], entry)
	}

	for subject, entries := range grouped {
		key := keyFor(subject)

		var existing []Entry[P]
		if err := st.Load(ctx, key, &existing); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("failed to load series %s during migration: %w", key, err)
		}

		if err := st.Save(ctx, key, append(existing, entries...)); err != nil {
			return fmt.Errorf("failed to save migrated series %s: %w", key, err)
		}
	}

	if err := st.Remove(ctx, oldKey); err != nil {
		return err
	}
	if err := st.Save(ctx, markerKey, true); err != nil {
		return err
	}

	logger.Info().
		Str("key", oldKey).
		Int("subjects", len(grouped)).
		Int("dropped", dropped).
		Msg("legacy series split per subject")
	return nil
}
