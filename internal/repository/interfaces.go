package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/google/uuid"
	"github.com/partyrush/backend/internal/domain"
)

// DBTX abstracts pgx.Tx and pgxpool.Pool so repositories work with both.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// IsUniqueViolation reports whether err is a Postgres unique constraint
// violation. Used to turn racing duplicate inserts into conflict errors.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// SessionRepository provides access to sessions.
type SessionRepository interface {
	Create(ctx context.Context, db DBTX, s *domain.Session) error
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Session, error)
	FindByCode(ctx context.Context, db DBTX, code string) (*domain.Session, error)
	CodeExists(ctx context.Context, db DBTX, code string) (bool, error)

	// MarkActive performs the pending→active transition. Returns false when
	// another request already moved the session out of pending.
	MarkActive(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)

	// MarkFinished performs the active→finished transition with the same
	// exactly-once contract as MarkActive.
	MarkFinished(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)
}

// PlayerRepository provides access to players.
type PlayerRepository interface {
	Create(ctx context.Context, db DBTX, p *domain.Player) error
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.Player, error)
	FindByToken(ctx context.Context, db DBTX, token string) (*domain.Player, error)
	FindByDevice(ctx context.Context, db DBTX, sessionID, deviceUUID uuid.UUID) (*domain.Player, error)
	ListBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.Player, error)
	CountBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) (total, ready int, err error)

	// LockForUpdate acquires a row-level lock (SELECT FOR UPDATE).
	LockForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Player, error)

	// AddScore applies a signed delta to one score column with server-side
	// arithmetic and returns the updated row.
	AddScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, bucket domain.ScoreBucket, delta int) (*domain.Player, error)

	// SetTotalScore overwrites total_score with a freshly recomputed sum.
	SetTotalScore(ctx context.Context, tx pgx.Tx, id uuid.UUID, total int) error

	UpdateResume(ctx context.Context, db DBTX, p *domain.Player) error
	UpdateLevelStatus(ctx context.Context, db DBTX, id uuid.UUID, level domain.Level, status domain.PlayerStatus) error
	MarkAllPlaying(ctx context.Context, db DBTX, sessionID uuid.UUID) error
	TouchPresence(ctx context.Context, db DBTX, id uuid.UUID, connected bool) error
	Delete(ctx context.Context, db DBTX, id uuid.UUID) error
}

// ProgressRepository provides access to per-level progress rows.
type ProgressRepository interface {
	// Upsert writes the progress row for (player, level), replacing any
	// prior score, time and details.
	Upsert(ctx context.Context, tx pgx.Tx, p *domain.Progress) error

	ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID) ([]domain.Progress, error)

	// SumCompleted returns the sum of score over completed rows.
	SumCompleted(ctx context.Context, tx pgx.Tx, playerID uuid.UUID) (int, error)
}

// TransactionRepository provides access to the points audit log.
type TransactionRepository interface {
	Insert(ctx context.Context, db DBTX, t *domain.PointsTransaction) error
	ListByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.PointsTransaction, error)
}

// CrashRepository provides access to crash rounds and bets.
type CrashRepository interface {
	CreateGame(ctx context.Context, db DBTX, g *domain.CrashGame) error
	FindGame(ctx context.Context, db DBTX, id uuid.UUID) (*domain.CrashGame, error)
	FindActiveGame(ctx context.Context, db DBTX, sessionID uuid.UUID) (*domain.CrashGame, error)
	ListGames(ctx context.Context, db DBTX, sessionID uuid.UUID, limit int) ([]domain.CrashGame, error)
	NextNonce(ctx context.Context, db DBTX, sessionID uuid.UUID) (int, error)

	// MarkGameEnded sets ended_at once. Returns false when the round was
	// already terminated by a concurrent finish.
	MarkGameEnded(ctx context.Context, db DBTX, id uuid.UUID) (bool, error)

	CreateBet(ctx context.Context, db DBTX, b *domain.CrashBet) error
	FindBet(ctx context.Context, db DBTX, gameID, playerID uuid.UUID) (*domain.CrashBet, error)
	ListBetsByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]domain.CrashBet, error)
	ListBetsByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.CrashBet, error)

	// SettleBet moves a pending bet to a terminal status. Returns false
	// when the bet was already settled.
	SettleBet(ctx context.Context, tx pgx.Tx, betID uuid.UUID, status domain.CrashBetStatus, winAmount int, cashoutMultiplier *float64) (bool, error)
}

// RigRepository provides access to admin rig overrides.
type RigRepository interface {
	// Create inserts an override and retires older unconsumed overrides of
	// the same (session, player, rig_type, round_number) scope in one
	// transaction.
	Create(ctx context.Context, tx pgx.Tx, o *domain.RigOverride) error

	// FindActive returns the most recent unconsumed override for the scope,
	// or nil. A nil playerID matches any scope, player-pinned included.
	// Locks the row so concurrent round creations serialize.
	FindActive(ctx context.Context, tx pgx.Tx, sessionID uuid.UUID, playerID *uuid.UUID, rigType domain.RigType) (*domain.RigOverride, error)

	MarkConsumed(ctx context.Context, tx pgx.Tx, id uuid.UUID) error
}

// SnapshotRepository stores immutable leaderboard captures.
type SnapshotRepository interface {
	Insert(ctx context.Context, db DBTX, s *domain.LeaderboardSnapshot) error
}

// SelfieRepository stores selfie metadata.
type SelfieRepository interface {
	Insert(ctx context.Context, db DBTX, s *domain.Selfie) error
	ListBySession(ctx context.Context, db DBTX, sessionID uuid.UUID) ([]domain.Selfie, error)
}

// AdminRepository provides access to operator accounts.
type AdminRepository interface {
	FindByUsername(ctx context.Context, db DBTX, username string) (*domain.AdminUser, error)
	FindByID(ctx context.Context, db DBTX, id uuid.UUID) (*domain.AdminUser, error)
}
