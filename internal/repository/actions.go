package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"squad-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// ActionLogRepository records every automation action (boost, like) so the
// dashboard can audit what the service did on each account's behalf.
type ActionLogRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewActionLogRepository(sqlDB *sql.DB, logger zerolog.Logger) *ActionLogRepository {
	return &ActionLogRepository{db: sqlDB, logger: logger}
}

func (r *ActionLogRepository) Insert(ctx context.Context, accountID, action, targetID string) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO action_log (id, account_id, action, target_id, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, accountID, action, targetID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert action log: %w", err)
	}

	r.logger.Debug().
		Str("account_id", accountID).
		Str("action", action).
		Str("target_id", targetID).
		Msg("action recorded")
	return nil
}

func (r *ActionLogRepository) Recent(ctx context.Context, limit int) ([]domain.ActionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, account_id, action, target_id, created_at
		FROM action_log ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query action log: %w", err)
	}
	defer rows.Close()

	var records []domain.ActionRecord
	for rows.Next() {
		var record domain.ActionRecord
		if err := rows.Scan(&record.ID, &record.AccountID, &record.Action, &record.TargetID, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan action log row: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// HasLiked reports whether the account already liked the post, so a crawl
// restarted from a stale cursor does not double-like.
func (r *ActionLogRepository) HasLiked(ctx context.Context, accountID, postID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM action_log
		WHERE account_id = ? AND action = ? AND target_id = ?`,
		accountID, domain.ActionLike, postID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check like history: %w", err)
	}
	return count > 0, nil
}
