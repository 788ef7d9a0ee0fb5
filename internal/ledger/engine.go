// Package ledger is the single write path for player points. Every
// point-affecting operation goes through Post so the score mutation and
// the append-only audit entry commit or roll back together.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/repository"
)

// Engine posts point deltas atomically: balance column update plus an
// immutable points_transactions row, both inside the caller's transaction.
type Engine struct {
	players      repository.PlayerRepository
	transactions repository.TransactionRepository
}

// NewEngine creates a ledger engine with the given repositories.
func NewEngine(players repository.PlayerRepository, transactions repository.TransactionRepository) *Engine {
	return &Engine{players: players, transactions: transactions}
}

// PostParams is the input to Post.
type PostParams struct {
	SessionID uuid.UUID
	PlayerID  uuid.UUID
	Bucket    domain.ScoreBucket
	Amount    int // signed delta
	Reason    string
	Hidden    bool
	AdminID   *uuid.UUID
}

// Post applies the delta with server-side arithmetic and appends the audit
// entry. Must be called within a transaction; callers that touch several
// rows lock the player first via LockPlayer.
func (e *Engine) Post(ctx context.Context, tx pgx.Tx, params PostParams) (*domain.Player, *domain.PointsTransaction, error) {
	player, err := e.players.AddScore(ctx, tx, params.PlayerID, params.Bucket, params.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("apply score delta: %w", err)
	}
	if player == nil {
		return nil, nil, domain.ErrNotFound("player", params.PlayerID.String())
	}

	entry := &domain.PointsTransaction{
		ID:        uuid.New(),
		SessionID: params.SessionID,
		PlayerID:  params.PlayerID,
		Amount:    params.Amount,
		Reason:    params.Reason,
		IsHidden:  params.Hidden,
		AdminID:   params.AdminID,
		CreatedAt: time.Now().UTC(),
	}
	if err := e.transactions.Insert(ctx, tx, entry); err != nil {
		return nil, nil, fmt.Errorf("append points transaction: %w", err)
	}

	return player, entry, nil
}

// LockPlayer acquires a row-level lock and returns the player. Must be
// called within a transaction.
func (e *Engine) LockPlayer(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (*domain.Player, error) {
	player, err := e.players.LockForUpdate(ctx, tx, playerID)
	if err != nil {
		return nil, fmt.Errorf("lock player: %w", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", playerID.String())
	}
	return player, nil
}
