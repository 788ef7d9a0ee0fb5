package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/partyrush/backend/internal/domain"
)

type crashRepo struct{}

// NewCrashRepository returns a pgx-backed CrashRepository.
func NewCrashRepository() CrashRepository {
	return &crashRepo{}
}

const crashGameColumns = `id, session_id, multiplier, server_seed, server_seed_hash, nonce,
	betting_phase_start, betting_phase_end, duration_seconds, started_at, ended_at`

// CreateGame inserts a round. The partial unique index on
// (session_id) WHERE ended_at IS NULL rejects a second unterminated round,
// which serializes racing create-round requests.
func (r *crashRepo) CreateGame(ctx context.Context, db DBTX, g *domain.CrashGame) error {
	_, err := db.Exec(ctx, `
		INSERT INTO crash_games (id, session_id, multiplier, server_seed, server_seed_hash, nonce,
			betting_phase_start, betting_phase_end, duration_seconds, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		g.ID, g.SessionID, g.Multiplier, g.ServerSeed, g.ServerSeedHash, g.Nonce,
		g.BettingPhaseStart, g.BettingPhaseEnd, g.DurationSeconds, g.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert crash game: %w", err)
	}
	return nil
}

func (r *crashRepo) FindGame(ctx context.Context, db DBTX, id uuid.UUID) (*domain.CrashGame, error) {
	row := db.QueryRow(ctx, `SELECT `+crashGameColumns+` FROM crash_games WHERE id = $1`, id)
	return scanCrashGame(row)
}

func (r *crashRepo) FindActiveGame(ctx context.Context, db DBTX, sessionID uuid.UUID) (*domain.CrashGame, error) {
	row := db.QueryRow(ctx, `
		SELECT `+crashGameColumns+` FROM crash_games
		WHERE session_id = $1 AND ended_at IS NULL`, sessionID)
	return scanCrashGame(row)
}

func (r *crashRepo) ListGames(ctx context.Context, db DBTX, sessionID uuid.UUID, limit int) ([]domain.CrashGame, error) {
	rows, err := db.Query(ctx, `
		SELECT `+crashGameColumns+` FROM crash_games
		WHERE session_id = $1 ORDER BY started_at DESC LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list crash games: %w", err)
	}
	defer rows.Close()

	var games []domain.CrashGame
	for rows.Next() {
		g, err := scanCrashGame(rows)
		if err != nil {
			return nil, err
		}
		games = append(games, *g)
	}
	return games, rows.Err()
}

func (r *crashRepo) NextNonce(ctx context.Context, db DBTX, sessionID uuid.UUID) (int, error) {
	var nonce int
	err := db.QueryRow(ctx, `
		SELECT COALESCE(MAX(nonce), 0) + 1 FROM crash_games WHERE session_id = $1`, sessionID).Scan(&nonce)
	if err != nil {
		return 0, fmt.Errorf("next crash nonce: %w", err)
	}
	return nonce, nil
}

func (r *crashRepo) MarkGameEnded(ctx context.Context, db DBTX, id uuid.UUID) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE crash_games SET ended_at = now()
		WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil {
		return false, fmt.Errorf("mark crash game ended: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *crashRepo) CreateBet(ctx context.Context, db DBTX, b *domain.CrashBet) error {
	_, err := db.Exec(ctx, `
		INSERT INTO crash_bets (id, crash_game_id, player_id, multiplier, bet_amount, win_amount, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.CrashGameID, b.PlayerID, b.Multiplier, b.BetAmount, b.WinAmount, b.Status, b.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert crash bet: %w", err)
	}
	return nil
}

const crashBetColumns = `id, crash_game_id, player_id, multiplier, bet_amount, win_amount,
	cashout_multiplier, status, created_at, cashed_out_at`

func (r *crashRepo) FindBet(ctx context.Context, db DBTX, gameID, playerID uuid.UUID) (*domain.CrashBet, error) {
	row := db.QueryRow(ctx, `
		SELECT `+crashBetColumns+` FROM crash_bets
		WHERE crash_game_id = $1 AND player_id = $2`, gameID, playerID)
	return scanCrashBet(row)
}

func (r *crashRepo) ListBetsByGame(ctx context.Context, db DBTX, gameID uuid.UUID) ([]domain.CrashBet, error) {
	rows, err := db.Query(ctx, `
		SELECT `+crashBetColumns+` FROM crash_bets
		WHERE crash_game_id = $1 ORDER BY created_at`, gameID)
	if err != nil {
		return nil, fmt.Errorf("list crash bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

func (r *crashRepo) ListBetsByPlayer(ctx context.Context, db DBTX, playerID uuid.UUID, limit int) ([]domain.CrashBet, error) {
	rows, err := db.Query(ctx, `
		SELECT `+crashBetColumns+` FROM crash_bets
		WHERE player_id = $1 ORDER BY created_at DESC LIMIT $2`, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("list player crash bets: %w", err)
	}
	defer rows.Close()
	return collectBets(rows)
}

// SettleBet only touches a pending row, so a bet already cashed out or
// settled cannot be settled twice.
func (r *crashRepo) SettleBet(ctx context.Context, tx pgx.Tx, betID uuid.UUID, status domain.CrashBetStatus, winAmount int, cashoutMultiplier *float64) (bool, error) {
	tag, err := tx.Exec(ctx, `
		UPDATE crash_bets SET status = $1, win_amount = $2, cashout_multiplier = $3,
			cashed_out_at = CASE WHEN $1 = 'cashed_out' THEN now() ELSE cashed_out_at END
		WHERE id = $4 AND status = 'pending'`,
		status, winAmount, cashoutMultiplier, betID)
	if err != nil {
		return false, fmt.Errorf("settle crash bet: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectBets(rows pgx.Rows) ([]domain.CrashBet, error) {
	var bets []domain.CrashBet
	for rows.Next() {
		b, err := scanCrashBet(rows)
		if err != nil {
			return nil, err
		}
		bets = append(bets, *b)
	}
	return bets, rows.Err()
}

func scanCrashGame(row pgx.Row) (*domain.CrashGame, error) {
	var g domain.CrashGame
	err := row.Scan(&g.ID, &g.SessionID, &g.Multiplier, &g.ServerSeed, &g.ServerSeedHash, &g.Nonce,
		&g.BettingPhaseStart, &g.BettingPhaseEnd, &g.DurationSeconds, &g.StartedAt, &g.EndedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan crash game: %w", err)
	}
	return &g, nil
}

func scanCrashBet(row pgx.Row) (*domain.CrashBet, error) {
	var b domain.CrashBet
	err := row.Scan(&b.ID, &b.CrashGameID, &b.PlayerID, &b.Multiplier, &b.BetAmount, &b.WinAmount,
		&b.CashoutMultiplier, &b.Status, &b.CreatedAt, &b.CashedOutAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan crash bet: %w", err)
	}
	return &b, nil
}
