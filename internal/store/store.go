package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned by Load for keys that were never written. Callers
// treat it as the normal bootstrap path, not a failure.
var ErrNotFound = errors.New("key not found")

// Store is a key-value snapshot store backed by the series table. Values are
// serialized JSON and every Save overwrites the whole value for its key.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Load(ctx context.Context, key string, dest any) error {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM series WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load key %s: %w", key, err)
	}

	if err := json.Unmarshal([]byte(value), dest); err != nil {
		return fmt.Errorf("failed to decode value for key %s: %w", key, err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, key string, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO series (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(encoded), time.Now())
	if err != nil {
		return fmt.Errorf("failed to save key %s: %w", key, err)
	}

	s.logger.Debug().Str("key", key).Int("bytes", len(encoded)).Msg("value saved")
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM series WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to remove key %s: %w", key, err)
	}
	return nil
}
