package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/partyrush/backend/internal/domain"
)

type txRepo struct{}

// NewTransactionRepository returns a pgx-backed TransactionRepository.
func NewTransactionRepository() TransactionRepository {
	return &txRepo{}
}

func (r *txRepo) Insert(ctx context.Context, db DBTX, t *domain.PointsTransaction) error {
	_, err := db.Exec(ctx, `
		INSERT INTO points_transactions (id, session_id, player_id, amount, reason, is_hidden, admin_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.SessionID, t.PlayerID, t.Amount, nullIfEmpty(t.Reason), t.IsHidden, t.AdminID, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert points transaction: %w", err)
	}
	return nil
}

func (r *txRepo) ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.PointsTransaction, error) {
	rows, err := db.Query(ctx, `
		SELECT id, session_id, player_id, amount, reason, is_hidden, admin_id, created_at
		FROM points_transactions
		WHERE player_id = $1 ORDER BY created_at DESC LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list points transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.PointsTransaction
	for rows.Next() {
		var t domain.PointsTransaction
		var reason *string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.PlayerID, &t.Amount, &reason,
			&t.IsHidden, &t.AdminID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan points transaction: %w", err)
		}
		t.Reason = deref(reason)
		out = append(out, t)
	}
	return out, rows.Err()
}
