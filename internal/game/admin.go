package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/partyrush/backend/internal/auth"
	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/ledger"
	"github.com/partyrush/backend/internal/realtime"
	"github.com/partyrush/backend/internal/repository"
)

// AdminService backs the operator endpoints: login, player moderation,
// point adjustments and rig overrides.
type AdminService struct {
	pool     *pgxpool.Pool
	admins   repository.AdminRepository
	sessions repository.SessionRepository
	players  repository.PlayerRepository
	progress repository.ProgressRepository
	txs      repository.TransactionRepository
	rigs     repository.RigRepository
	ledger   *ledger.Engine
	jwtMgr   *auth.JWTManager
	pub      realtime.Publisher
	logger   *slog.Logger
}

// NewAdminService creates the admin service.
func NewAdminService(
	pool *pgxpool.Pool,
	admins repository.AdminRepository,
	sessions repository.SessionRepository,
	players repository.PlayerRepository,
	progress repository.ProgressRepository,
	txs repository.TransactionRepository,
	rigs repository.RigRepository,
	ledgerEngine *ledger.Engine,
	jwtMgr *auth.JWTManager,
	pub realtime.Publisher,
	logger *slog.Logger,
) *AdminService {
	return &AdminService{
		pool:     pool,
		admins:   admins,
		sessions: sessions,
		players:  players,
		progress: progress,
		txs:      txs,
		rigs:     rigs,
		ledger:   ledgerEngine,
		jwtMgr:   jwtMgr,
		pub:      pub,
		logger:   logger,
	}
}

// Login verifies an operator's credentials and issues an admin-realm JWT.
func (s *AdminService) Login(ctx context.Context, username, password string) (string, *domain.AdminUser, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrValidation("username and password are required")
	}
	admin, err := s.admins.FindByUsername(ctx, s.pool, username)
	if err != nil {
		return "", nil, domain.ErrInternal("find admin", err)
	}
	if admin == nil || !admin.IsActive {
		return "", nil, domain.ErrUnauthorized("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.ErrUnauthorized("invalid credentials")
	}

	token, err := s.jwtMgr.GenerateToken(auth.RealmAdmin, admin.ID, admin.Username)
	if err != nil {
		return "", nil, domain.ErrInternal("issue token", err)
	}
	s.logger.Info("admin logged in", "username", admin.Username)
	return token, admin, nil
}

// ListPlayers returns every player of a session for the admin screen.
func (s *AdminService) ListPlayers(ctx context.Context, code string) ([]domain.Player, error) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", code)
	}
	players, err := s.players.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return nil, domain.ErrInternal("list players", err)
	}
	return players, nil
}

// PlayerDetail bundles a player with their progress and point history.
type PlayerDetail struct {
	Player       *domain.Player             `json:"player"`
	Progress     []domain.Progress          `json:"progress"`
	Transactions []domain.PointsTransaction `json:"transactions"`
}

// InspectPlayer returns the full audit view of one player.
func (s *AdminService) InspectPlayer(ctx context.Context, playerID uuid.UUID) (*PlayerDetail, error) {
	player, err := s.players.FindByID(ctx, s.pool, playerID)
	if err != nil {
		return nil, domain.ErrInternal("find player", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", playerID.String())
	}
	progress, err := s.progress.ListByPlayer(ctx, s.pool, playerID)
	if err != nil {
		return nil, domain.ErrInternal("list progress", err)
	}
	txs, err := s.txs.ListByPlayer(ctx, s.pool, playerID, 100)
	if err != nil {
		return nil, domain.ErrInternal("list transactions", err)
	}
	return &PlayerDetail{Player: player, Progress: progress, Transactions: txs}, nil
}

// DeletePlayer removes a player; their progress, bets and transactions go
// with them via cascade.
func (s *AdminService) DeletePlayer(ctx context.Context, playerID uuid.UUID) error {
	player, err := s.players.FindByID(ctx, s.pool, playerID)
	if err != nil {
		return domain.ErrInternal("find player", err)
	}
	if player == nil {
		return domain.ErrNotFound("player", playerID.String())
	}
	session, err := s.sessions.FindByID(ctx, s.pool, player.SessionID)
	if err != nil || session == nil {
		return domain.ErrInternal("find session", err)
	}
	if err := s.players.Delete(ctx, s.pool, playerID); err != nil {
		return domain.ErrInternal("delete player", err)
	}
	s.logger.Info("player deleted", "code", session.Code, "player", player.Name)

	s.broadcastAfterChange(ctx, session)
	return nil
}

// AdjustPoints applies a signed admin delta to a player's bonus points and
// records the acting admin in the audit log. Hidden adjustments skip the
// player-visible balance notification.
func (s *AdminService) AdjustPoints(ctx context.Context, playerID uuid.UUID, amount int, reason string, hidden bool, adminID uuid.UUID) (*domain.Player, error) {
	if amount == 0 {
		return nil, domain.ErrValidation("amount must be non-zero")
	}
	player, err := s.players.FindByID(ctx, s.pool, playerID)
	if err != nil {
		return nil, domain.ErrInternal("find player", err)
	}
	if player == nil {
		return nil, domain.ErrNotFound("player", playerID.String())
	}
	session, err := s.sessions.FindByID(ctx, s.pool, player.SessionID)
	if err != nil || session == nil {
		return nil, domain.ErrInternal("find session", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.LockPlayer(ctx, tx, playerID); err != nil {
		return nil, err
	}
	updated, _, err := s.ledger.Post(ctx, tx, ledger.PostParams{
		SessionID: session.ID,
		PlayerID:  playerID,
		Bucket:    domain.BucketBonus,
		Amount:    amount,
		Reason:    reason,
		Hidden:    hidden,
		AdminID:   &adminID,
	})
	if err != nil {
		return nil, domain.ErrInternal("post adjustment", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	if !hidden {
		s.pub.Publish(session.Code, realtime.Message{
			Type:    realtime.KindBalanceUpdate,
			Payload: map[string]interface{}{"player_id": updated.ID, "delta": amount, "final_score": updated.FinalScore()},
		})
	}
	s.broadcastAfterChange(ctx, session)
	return updated, nil
}

// CreateRigInput holds an admin rig override request.
type CreateRigInput struct {
	SessionCode string
	PlayerID    *uuid.UUID
	RigType     domain.RigType
	RoundNumber *int
	Value       float64
	ApplyOnce   bool
	AdminID     uuid.UUID
}

// CreateRig installs a forced outcome for the next eligible round. An
// unconsumed override of the same scope is superseded, never duplicated.
func (s *AdminService) CreateRig(ctx context.Context, input CreateRigInput) (*domain.RigOverride, error) {
	if input.RigType != domain.RigCase && input.RigType != domain.RigMultiplier {
		return nil, domain.ErrValidation("rig_type must be case or multiplier")
	}
	if input.RigType == domain.RigMultiplier {
		if input.Value < domain.MinCashoutMultiplier || input.Value > domain.MaxCrashMultiplier {
			return nil, domain.ErrValidation("rig value out of multiplier range")
		}
	}
	session, err := s.sessions.FindByCode(ctx, s.pool, input.SessionCode)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", input.SessionCode)
	}

	override := &domain.RigOverride{
		ID:          uuid.New(),
		SessionID:   session.ID,
		PlayerID:    input.PlayerID,
		RigType:     input.RigType,
		RoundNumber: input.RoundNumber,
		Value:       input.Value,
		ApplyOnce:   input.ApplyOnce,
		AdminID:     &input.AdminID,
		CreatedAt:   time.Now().UTC(),
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := s.rigs.Create(ctx, tx, override); err != nil {
		return nil, domain.ErrInternal("create rig override", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	s.logger.Info("rig override created", "code", session.Code, "type", override.RigType, "value", override.Value, "apply_once", override.ApplyOnce)
	return override, nil
}

func (s *AdminService) broadcastAfterChange(ctx context.Context, session *domain.Session) {
	players, err := s.players.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return
	}
	s.pub.Publish(session.Code, realtime.Message{Type: realtime.KindPlayersList, Payload: map[string]interface{}{
		"session_id": session.ID,
		"players":    playerViews(players),
	}})
	s.pub.Publish(session.Code, realtime.Message{Type: realtime.KindLeaderboard, Payload: map[string]interface{}{
		"session_id":  session.ID,
		"leaderboard": ComputeLeaderboard(players),
	}})
}
