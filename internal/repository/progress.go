package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type progressRepo struct{}

// NewProgressRepository returns a pgx-backed ProgressRepository.
func NewProgressRepository() ProgressRepository {
	return &progressRepo{}
}

// Upsert leans on the (player_id, level) unique constraint: a resubmission
// replaces the prior row instead of duplicating it.
func (r *progressRepo) Upsert(ctx context.Context, tx pgx.Tx, p *domain.Progress) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO progress (id, player_id, level, status, score, time_spent_ms, details, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (player_id, level) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			time_spent_ms = EXCLUDED.time_spent_ms,
			details = EXCLUDED.details,
			completed_at = EXCLUDED.completed_at`,
		p.ID, p.PlayerID, p.Level, p.Status, p.Score, p.TimeSpentMS, p.Details, p.CompletedAt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

func (r *progressRepo) ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID) ([]domain.Progress, error) {
	rows, err := db.Query(ctx, `
		SELECT id, player_id, level, status, score, time_spent_ms, details, completed_at, created_at
		FROM progress WHERE player_id = $1 ORDER BY level, created_at`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []domain.Progress
	for rows.Next() {
		var p domain.Progress
		if err := rows.Scan(&p.ID, &p.PlayerID, &p.Level, &p.Status, &p.Score,
			&p.TimeSpentMS, &p.Details, &p.CompletedAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SumCompleted runs inside the mutating transaction so the recomputed
// total observes a consistent snapshot of the progress rows.
func (r *progressRepo) SumCompleted(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (int, error) {
	var sum int
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(score), 0) FROM progress
		WHERE player_id = $1 AND status = 'completed'`, playerID).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum completed progress: %w", err)
	}
	return sum, nil
}
