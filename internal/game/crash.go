package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/fairness"
	"github.com/partyrush/backend/internal/ledger"
	"github.com/partyrush/backend/internal/realtime"
	"github.com/partyrush/backend/internal/repository"
)

// CrashService coordinates crash rounds: the betting window, bet placement
// and cashout, and round settlement.
type CrashService struct {
	pool          *pgxpool.Pool
	sessions      repository.SessionRepository
	players       repository.PlayerRepository
	crash         repository.CrashRepository
	rigs          repository.RigRepository
	ledger        *ledger.Engine
	pub           realtime.Publisher
	bettingWindow time.Duration
	logger        *slog.Logger
}

// NewCrashService creates the crash coordinator.
func NewCrashService(
	pool *pgxpool.Pool,
	sessions repository.SessionRepository,
	players repository.PlayerRepository,
	crash repository.CrashRepository,
	rigs repository.RigRepository,
	ledgerEngine *ledger.Engine,
	pub realtime.Publisher,
	bettingWindow time.Duration,
	logger *slog.Logger,
) *CrashService {
	return &CrashService{
		pool:          pool,
		sessions:      sessions,
		players:       players,
		crash:         crash,
		rigs:          rigs,
		ledger:        ledgerEngine,
		pub:           pub,
		bettingWindow: bettingWindow,
		logger:        logger,
	}
}

// CreateRound returns the session's unterminated round if one exists, or
// creates a new one. Seed commitment, outcome derivation and rig override
// consumption happen in a single transaction, so racing create calls cannot
// double-consume an override or produce two active rounds.
func (s *CrashService) CreateRound(ctx context.Context, code string) (*domain.CrashGame, bool, error) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, false, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, false, domain.ErrNotFound("session", code)
	}

	if existing, err := s.crash.FindActiveGame(ctx, s.pool, session.ID); err != nil {
		return nil, false, domain.ErrInternal("find active round", err)
	} else if existing != nil {
		return redactRound(existing), false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	nonce, err := s.crash.NextNonce(ctx, tx, session.ID)
	if err != nil {
		return nil, false, domain.ErrInternal("next nonce", err)
	}
	seed, hash, err := fairness.GenerateSeed()
	if err != nil {
		return nil, false, domain.ErrInternal("generate seed", err)
	}
	multiplier := fairness.Outcome(seed, nonce)

	// The round outcome is shared by the whole session, so a player-pinned
	// override rigs it the same way a session-wide one does.
	rig, err := s.rigs.FindActive(ctx, tx, session.ID, nil, domain.RigMultiplier)
	if err != nil {
		return nil, false, domain.ErrInternal("find rig override", err)
	}
	if rig != nil && rig.AppliesToRound(nonce) {
		multiplier = rig.Value
		if rig.ApplyOnce {
			if err := s.rigs.MarkConsumed(ctx, tx, rig.ID); err != nil {
				return nil, false, domain.ErrInternal("consume rig override", err)
			}
		}
	}

	now := time.Now().UTC()
	betEnd := now.Add(s.bettingWindow)
	game := &domain.CrashGame{
		ID:                uuid.New(),
		SessionID:         session.ID,
		Multiplier:        multiplier,
		ServerSeed:        seed,
		ServerSeedHash:    hash,
		Nonce:             nonce,
		BettingPhaseStart: &now,
		BettingPhaseEnd:   &betEnd,
		DurationSeconds:   20,
		StartedAt:         now,
	}
	if err := s.crash.CreateGame(ctx, tx, game); err != nil {
		if repository.IsUniqueViolation(err) {
			// A concurrent request created the round; the rig consumption
			// above rolls back with this transaction.
			tx.Rollback(ctx)
			existing, ferr := s.crash.FindActiveGame(ctx, s.pool, session.ID)
			if ferr == nil && existing != nil {
				return redactRound(existing), false, nil
			}
		}
		return nil, false, domain.ErrInternal("create round", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, false, domain.ErrInternal("commit", err)
	}

	s.logger.Info("crash round created", "code", code, "nonce", nonce, "rigged", rig != nil)
	s.pub.Publish(code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "crash.round_started", Data: map[string]interface{}{
			"round_id":            game.ID,
			"server_seed_hash":    game.ServerSeedHash,
			"nonce":               game.Nonce,
			"betting_phase_start": game.BettingPhaseStart,
			"betting_phase_end":   game.BettingPhaseEnd,
		}},
	})
	return redactRound(game), true, nil
}

// ListRounds returns round history; secrets of unterminated rounds stay
// hidden.
func (s *CrashService) ListRounds(ctx context.Context, code string, limit int) ([]domain.CrashGame, error) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", code)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	games, err := s.crash.ListGames(ctx, s.pool, session.ID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list rounds", err)
	}
	for i := range games {
		if !games[i].Ended() {
			games[i].ServerSeed = ""
			games[i].Multiplier = 0
		}
	}
	return games, nil
}

// PlaceBet places one bet per player per round. The stake is debited from
// bonus points through the ledger inside the same transaction.
func (s *CrashService) PlaceBet(ctx context.Context, roundID uuid.UUID, token string, stake int, multiplier float64) (*domain.CrashBet, error) {
	player, err := s.authPlayer(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := domain.ValidateCashoutMultiplier(multiplier); err != nil {
		return nil, domain.ErrValidation(err.Error())
	}
	stake = domain.NormalizeStake(stake)

	game, err := s.crash.FindGame(ctx, s.pool, roundID)
	if err != nil {
		return nil, domain.ErrInternal("find round", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("crash round", roundID.String())
	}
	if game.Ended() {
		return nil, domain.ErrConflict("round already finished")
	}

	session, err := s.sessions.FindByID(ctx, s.pool, game.SessionID)
	if err != nil || session == nil {
		return nil, domain.ErrInternal("find session", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.LockPlayer(ctx, tx, player.ID); err != nil {
		return nil, err
	}

	bet := &domain.CrashBet{
		ID:          uuid.New(),
		CrashGameID: game.ID,
		PlayerID:    player.ID,
		Multiplier:  multiplier,
		BetAmount:   stake,
		Status:      domain.BetPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.crash.CreateBet(ctx, tx, bet); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, domain.ErrConflict("bet already placed for this round")
		}
		return nil, domain.ErrInternal("create bet", err)
	}

	if stake > 0 {
		if _, _, err := s.ledger.Post(ctx, tx, ledger.PostParams{
			SessionID: session.ID,
			PlayerID:  player.ID,
			Bucket:    domain.BucketBonus,
			Amount:    -stake,
			Reason:    "crash bet",
		}); err != nil {
			return nil, domain.ErrInternal("debit stake", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "crash.bet_placed", Data: map[string]interface{}{
			"round_id":   game.ID,
			"player_id":  player.ID,
			"bet_amount": stake,
			"multiplier": multiplier,
		}},
	})
	s.publishBalance(session.Code, player.ID, -stake)
	return bet, nil
}

// Cashout settles the caller's pending bet immediately at the reported
// live multiplier. A settled bet cannot settle again.
func (s *CrashService) Cashout(ctx context.Context, roundID uuid.UUID, token string, atMultiplier float64) (*domain.CrashBet, error) {
	player, err := s.authPlayer(ctx, token)
	if err != nil {
		return nil, err
	}
	if atMultiplier < 1.0 {
		atMultiplier = 1.0
	}
	if atMultiplier > domain.MaxCrashMultiplier {
		atMultiplier = domain.MaxCrashMultiplier
	}

	game, err := s.crash.FindGame(ctx, s.pool, roundID)
	if err != nil {
		return nil, domain.ErrInternal("find round", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("crash round", roundID.String())
	}
	if game.Ended() {
		return nil, domain.ErrConflict("round already finished")
	}

	bet, err := s.crash.FindBet(ctx, s.pool, game.ID, player.ID)
	if err != nil {
		return nil, domain.ErrInternal("find bet", err)
	}
	if bet == nil {
		return nil, domain.ErrNotFound("crash bet", roundID.String())
	}
	if bet.Status.Terminal() {
		return nil, domain.ErrConflict("bet already settled")
	}

	session, err := s.sessions.FindByID(ctx, s.pool, game.SessionID)
	if err != nil || session == nil {
		return nil, domain.ErrInternal("find session", err)
	}

	win := bet.CashoutWin(atMultiplier)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.LockPlayer(ctx, tx, player.ID); err != nil {
		return nil, err
	}
	ok, err := s.crash.SettleBet(ctx, tx, bet.ID, domain.BetCashedOut, win, &atMultiplier)
	if err != nil {
		return nil, domain.ErrInternal("settle bet", err)
	}
	if !ok {
		return nil, domain.ErrConflict("bet already settled")
	}
	if win > 0 {
		if _, _, err := s.ledger.Post(ctx, tx, ledger.PostParams{
			SessionID: session.ID,
			PlayerID:  player.ID,
			Bucket:    domain.BucketBonus,
			Amount:    win,
			Reason:    "crash cashout",
		}); err != nil {
			return nil, domain.ErrInternal("credit cashout", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	now := time.Now().UTC()
	bet.Status = domain.BetCashedOut
	bet.WinAmount = win
	bet.CashoutMultiplier = &atMultiplier
	bet.CashedOutAt = &now

	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "crash.cashed_out", Data: map[string]interface{}{
			"round_id":   game.ID,
			"player_id":  player.ID,
			"multiplier": atMultiplier,
			"win_amount": win,
		}},
	})
	s.publishBalance(session.Code, player.ID, win)
	return bet, nil
}

// FinishRound terminates the round exactly once, settles every pending bet
// against the final multiplier, and reveals the server seed.
func (s *CrashService) FinishRound(ctx context.Context, roundID uuid.UUID) (*domain.CrashGame, error) {
	game, err := s.crash.FindGame(ctx, s.pool, roundID)
	if err != nil {
		return nil, domain.ErrInternal("find round", err)
	}
	if game == nil {
		return nil, domain.ErrNotFound("crash round", roundID.String())
	}

	ok, err := s.crash.MarkGameEnded(ctx, s.pool, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("end round", err)
	}
	if !ok {
		return nil, domain.ErrConflict("round already finished")
	}

	session, err := s.sessions.FindByID(ctx, s.pool, game.SessionID)
	if err != nil || session == nil {
		return nil, domain.ErrInternal("find session", err)
	}

	bets, err := s.crash.ListBetsByGame(ctx, s.pool, game.ID)
	if err != nil {
		return nil, domain.ErrInternal("list bets", err)
	}

	results := make([]map[string]interface{}, 0, len(bets))
	for _, bet := range bets {
		if bet.Status.Terminal() {
			continue
		}
		status, win := bet.SettleAuto(game.Multiplier)
		if err := s.settleOne(ctx, session, bet, status, win); err != nil {
			s.logger.Error("bet settlement failed", "bet", bet.ID, "error", err)
			continue
		}
		results = append(results, map[string]interface{}{
			"player_id":  bet.PlayerID,
			"status":     status,
			"win_amount": win,
		})
		if win > 0 {
			s.publishBalance(session.Code, bet.PlayerID, win)
		}
	}

	now := time.Now().UTC()
	game.EndedAt = &now
	s.logger.Info("crash round finished", "code", session.Code, "nonce", game.Nonce, "multiplier", game.Multiplier)

	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "crash.finished", Data: map[string]interface{}{
			"round_id":         game.ID,
			"multiplier":       game.Multiplier,
			"server_seed":      game.ServerSeed,
			"server_seed_hash": game.ServerSeedHash,
			"nonce":            game.Nonce,
			"results":          results,
		}},
	})
	return game, nil
}

// settleOne applies one bet settlement and its payout atomically.
func (s *CrashService) settleOne(ctx context.Context, session *domain.Session, bet domain.CrashBet, status domain.CrashBetStatus, win int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.LockPlayer(ctx, tx, bet.PlayerID); err != nil {
		return err
	}
	ok, err := s.crash.SettleBet(ctx, tx, bet.ID, status, win, nil)
	if err != nil {
		return err
	}
	if !ok {
		// Already settled by a racing cashout; leave it alone.
		return nil
	}
	if win > 0 {
		if _, _, err := s.ledger.Post(ctx, tx, ledger.PostParams{
			SessionID: session.ID,
			PlayerID:  bet.PlayerID,
			Bucket:    domain.BucketBonus,
			Amount:    win,
			Reason:    "crash win",
		}); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// BetHistory lists the caller's bets, newest first.
func (s *CrashService) BetHistory(ctx context.Context, token string, limit int) ([]domain.CrashBet, error) {
	player, err := s.authPlayer(ctx, token)
	if err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	bets, err := s.crash.ListBetsByPlayer(ctx, s.pool, player.ID, limit)
	if err != nil {
		return nil, domain.ErrInternal("list bets", err)
	}
	return bets, nil
}

func (s *CrashService) authPlayer(ctx context.Context, token string) (*domain.Player, error) {
	if token == "" {
		return nil, domain.ErrValidation("player token is required")
	}
	player, err := s.players.FindByToken(ctx, s.pool, token)
	if err != nil {
		return nil, domain.ErrInternal("find player", err)
	}
	if player == nil {
		return nil, domain.ErrUnauthorized("invalid player token")
	}
	return player, nil
}

func (s *CrashService) publishBalance(code string, playerID uuid.UUID, delta int) {
	s.pub.Publish(code, realtime.Message{
		Type:    realtime.KindBalanceUpdate,
		Payload: map[string]interface{}{"player_id": playerID, "delta": delta},
	})
}

// redactRound strips the fields that stay secret until the round ends.
func redactRound(g *domain.CrashGame) *domain.CrashGame {
	if g.Ended() {
		return g
	}
	clone := *g
	clone.ServerSeed = ""
	clone.Multiplier = 0
	return &clone
}
