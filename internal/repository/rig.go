package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type rigRepo struct{}

// NewRigRepository returns a pgx-backed RigRepository.
func NewRigRepository() RigRepository {
	return &rigRepo{}
}

// Create inserts the override after retiring older unconsumed overrides of
// the same scope: most recent wins, supersession instead of error. Scope is
// the full tuple (session, player, type, round number), so an override
// pinned to another round survives.
func (r *rigRepo) Create(ctx context.Context, tx pgx.Tx, o *domain.RigOverride) error {
	_, err := tx.Exec(ctx, `
		UPDATE rig_overrides SET consumed = true
		WHERE session_id = $1 AND rig_type = $2 AND consumed = false
			AND player_id IS NOT DISTINCT FROM $3
			AND round_number IS NOT DISTINCT FROM $4`,
		o.SessionID, o.RigType, o.PlayerID, o.RoundNumber)
	if err != nil {
		return fmt.Errorf("retire rig overrides: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO rig_overrides (id, session_id, player_id, rig_type, round_number, value, apply_once, consumed, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8, $9)`,
		o.ID, o.SessionID, o.PlayerID, o.RigType, o.RoundNumber, o.Value, o.ApplyOnce, o.AdminID, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert rig override: %w", err)
	}
	return nil
}

// FindActive locks the candidate row so a racing round creation waits for
// the transaction that is consuming it. A nil playerID matches overrides of
// every scope, player-pinned ones included; a non-nil playerID narrows to
// session-wide rows plus that player's own.
func (r *rigRepo) FindActive(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, playerID *uuid.UUID, rigType domain.RigType) (*domain.RigOverride, error) {
	row := tx.QueryRow(ctx, `
		SELECT id, session_id, player_id, rig_type, round_number, value, apply_once, consumed, admin_id, created_at
		FROM rig_overrides
		WHERE session_id = $1 AND rig_type = $2 AND consumed = false
			AND ($3::uuid IS NULL OR player_id IS NULL OR player_id = $3)
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE`,
		sessionID, rigType, playerID)

	var o domain.RigOverride
	err := row.Scan(&o.ID, &o.SessionID, &o.PlayerID, &o.RigType, &o.RoundNumber,
		&o.Value, &o.ApplyOnce, &o.Consumed, &o.AdminID, &o.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find active rig override: %w", err)
	}
	return &o, nil
}

func (r *rigRepo) MarkConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	_, err := tx.Exec(ctx, `UPDATE rig_overrides SET consumed = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("consume rig override: %w", err)
	}
	return nil
}
