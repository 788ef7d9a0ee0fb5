// Package game holds the session state machine, the score/leaderboard
// engine and the crash round coordinator. HTTP handlers validate payloads
// and delegate here; all persistence goes through the repositories inside
// pgx transactions.
package game

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/ledger"
	"github.com/partyrush/backend/internal/realtime"
	"github.com/partyrush/backend/internal/repository"
)

// Service drives the player/session lifecycle.
type Service struct {
	pool      *pgxpool.Pool
	sessions  repository.SessionRepository
	players   repository.PlayerRepository
	progress  repository.ProgressRepository
	snapshots repository.SnapshotRepository
	ledger    *ledger.Engine
	pub       realtime.Publisher
	logger    *slog.Logger
}

// NewService creates the session service.
func NewService(
	pool *pgxpool.Pool,
	sessions repository.SessionRepository,
	players repository.PlayerRepository,
	progress repository.ProgressRepository,
	snapshots repository.SnapshotRepository,
	ledgerEngine *ledger.Engine,
	pub realtime.Publisher,
	logger *slog.Logger,
) *Service {
	return &Service{
		pool:      pool,
		sessions:  sessions,
		players:   players,
		progress:  progress,
		snapshots: snapshots,
		ledger:    ledgerEngine,
		pub:       pub,
		logger:    logger,
	}
}

const sessionCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateSessionCode returns a 6-character join code.
func generateSessionCode() (string, error) {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session code: %w", err)
	}
	out := make([]byte, 6)
	for i, b := range buf {
		out[i] = sessionCodeAlphabet[int(b)%len(sessionCodeAlphabet)]
	}
	return string(out), nil
}

// generatePlayerToken returns the secret bearer token for a new player.
func generatePlayerToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate player token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// CreateSessionInput holds the optional session config fields.
type CreateSessionInput struct {
	LevelDurationSeconds int   `json:"level_duration_seconds"`
	MinPlayers           int   `json:"min_players"`
	AutoStart            *bool `json:"auto_start"`
}

// CreateSession creates a pending session with a fresh unique code.
func (s *Service) CreateSession(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	if input.LevelDurationSeconds <= 0 {
		input.LevelDurationSeconds = 300
	}
	if input.MinPlayers <= 0 {
		input.MinPlayers = 2
	}
	autoStart := true
	if input.AutoStart != nil {
		autoStart = *input.AutoStart
	}

	code, err := generateSessionCode()
	if err != nil {
		return nil, domain.ErrInternal("generate code", err)
	}
	// Regenerate on the unlikely clash.
	for {
		exists, err := s.sessions.CodeExists(ctx, s.pool, code)
		if err != nil {
			return nil, domain.ErrInternal("check code", err)
		}
		if !exists {
			break
		}
		if code, err = generateSessionCode(); err != nil {
			return nil, domain.ErrInternal("generate code", err)
		}
	}

	session := &domain.Session{
		ID:                   uuid.New(),
		Code:                 code,
		Status:               domain.SessionPending,
		CreatedAt:            time.Now().UTC(),
		LevelDurationSeconds: input.LevelDurationSeconds,
		MinPlayers:           input.MinPlayers,
		AutoStart:            autoStart,
	}
	if err := s.sessions.Create(ctx, s.pool, session); err != nil {
		return nil, domain.ErrInternal("create session", err)
	}

	s.logger.Info("session created", "code", session.Code, "min_players", session.MinPlayers, "auto_start", session.AutoStart)
	return session, nil
}

// SessionState is a session with its embedded player list.
type SessionState struct {
	Session *domain.Session `json:"session"`
	Players []domain.Player `json:"players"`
}

// GetState fetches a session and its players by code.
func (s *Service) GetState(ctx context.Context, code string) (*SessionState, error) {
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
	return &SessionState{Session: session, Players: players}, nil
}

// JoinInput holds a join request.
type JoinInput struct {
	Name       string
	DeviceUUID string
	DeviceType string
	IPAddress  string
	UserAgent  string
}

// Join registers a player in a session, or resumes the existing player for
// the same device. New players may only be created while the session is
// pending; a returning device is welcome at any stage.
func (s *Service) Join(ctx context.Context, code string, input JoinInput) (*domain.Player, bool, error) {
	if err := domain.ValidatePlayerName(input.Name); err != nil {
		return nil, false, domain.ErrValidation(err.Error())
	}
	deviceUUID, err := domain.ParseDeviceUUID(input.DeviceUUID)
	if err != nil {
		return nil, false, domain.ErrValidation(err.Error())
	}

	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, false, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, false, domain.ErrNotFound("session", code)
	}

	player, created, err := s.joinOrResume(ctx, session, deviceUUID, input)
	if err != nil {
		return nil, false, err
	}

	s.broadcastPlayers(ctx, session)
	s.broadcastLeaderboard(ctx, session)

	if err := s.maybeAutoStart(ctx, session); err != nil {
		s.logger.Error("auto-start failed", "code", session.Code, "error", err)
	}

	return player, created, nil
}

func (s *Service) joinOrResume(ctx context.Context, session *domain.Session, deviceUUID uuid.UUID, input JoinInput) (*domain.Player, bool, error) {
	existing, err := s.players.FindByDevice(ctx, s.pool, session.ID, deviceUUID)
	if err != nil {
		return nil, false, domain.ErrInternal("find player", err)
	}
	if existing != nil {
		return s.resume(ctx, session, existing, input)
	}

	if session.Status != domain.SessionPending {
		return nil, false, domain.ErrSessionNotJoinable()
	}

	token, err := generatePlayerToken()
	if err != nil {
		return nil, false, domain.ErrInternal("generate token", err)
	}
	role, buff := domain.AssignRole(input.Name)

	player := &domain.Player{
		ID:           uuid.New(),
		SessionID:    session.ID,
		Name:         input.Name,
		DeviceUUID:   deviceUUID,
		Token:        token,
		Status:       domain.PlayerReady,
		CurrentLevel: domain.LevelNone,
		Role:         role,
		RoleBuff:     buff,
		IsConnected:  true,
		DeviceType:   input.DeviceType,
		IPAddress:    input.IPAddress,
		UserAgent:    input.UserAgent,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.players.Create(ctx, s.pool, player); err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost the race against a concurrent join from the same device.
			existing, ferr := s.players.FindByDevice(ctx, s.pool, session.ID, deviceUUID)
			if ferr == nil && existing != nil {
				return s.resume(ctx, session, existing, input)
			}
		}
		return nil, false, domain.ErrInternal("create player", err)
	}

	s.logger.Info("player joined", "code", session.Code, "player", player.Name, "role", role)
	return player, true, nil
}

// resume refreshes a returning player without touching game progress. A
// pending session resets their status to ready; an active one keeps it.
func (s *Service) resume(ctx context.Context, session *domain.Session, player *domain.Player, input JoinInput) (*domain.Player, bool, error) {
	player.Name = input.Name
	if session.Status == domain.SessionPending {
		player.Status = domain.PlayerReady
	}
	player.DeviceType = input.DeviceType
	player.IPAddress = input.IPAddress
	player.UserAgent = input.UserAgent
	if err := s.players.UpdateResume(ctx, s.pool, player); err != nil {
		return nil, false, domain.ErrInternal("resume player", err)
	}
	player.IsConnected = true
	return player, false, nil
}

// maybeAutoStart triggers the pending→active transition when a join pushes
// the ready count past the threshold.
func (s *Service) maybeAutoStart(ctx context.Context, session *domain.Session) error {
	if !session.AutoStart || session.Status != domain.SessionPending {
		return nil
	}
	_, ready, err := s.players.CountBySession(ctx, s.pool, session.ID)
	if err != nil {
		return err
	}
	if !session.ShouldAutoStart(ready) {
		return nil
	}
	return s.activate(ctx, session)
}

// Start performs the explicit start command.
func (s *Service) Start(ctx context.Context, code string) (*domain.Session, error) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", code)
	}

	total, _, err := s.players.CountBySession(ctx, s.pool, session.ID)
	if err != nil {
		return nil, domain.ErrInternal("count players", err)
	}
	if err := session.CanStart(total); err != nil {
		return nil, err
	}

	if err := s.activate(ctx, session); err != nil {
		return nil, err
	}
	return s.sessions.FindByCode(ctx, s.pool, code)
}

// activate flips the session to active exactly once and moves every player
// onto the first level.
func (s *Service) activate(ctx context.Context, session *domain.Session) error {
	ok, err := s.sessions.MarkActive(ctx, s.pool, session.ID)
	if err != nil {
		return domain.ErrInternal("activate session", err)
	}
	if !ok {
		// Another request won the transition; nothing left to do.
		return nil
	}
	if err := s.players.MarkAllPlaying(ctx, s.pool, session.ID); err != nil {
		return domain.ErrInternal("mark players playing", err)
	}

	session.Status = domain.SessionActive
	s.logger.Info("session started", "code", session.Code)

	s.broadcastSessionState(ctx, session.Code)
	s.broadcastPlayers(ctx, session)
	s.broadcastLeaderboard(ctx, session)
	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "game.started", Data: map[string]string{
			"message": "The game has started! First up: the green level.",
		}},
	})
	return nil
}

// SubmitInput holds a progress submission.
type SubmitInput struct {
	Token       string          `json:"token"`
	Level       string          `json:"level"`
	Score       int             `json:"score"`
	TimeSpentMS int             `json:"time_spent_ms"`
	Details     json.RawMessage `json:"details"`
	IsMinigame  bool            `json:"is_minigame"`
	Game        int             `json:"game"`
}

// SubmitProgress records a level result or a bonus/minigame score for the
// player identified by the bearer token.
func (s *Service) SubmitProgress(ctx context.Context, input SubmitInput) (*domain.Player, error) {
	if input.Token == "" {
		return nil, domain.ErrValidation("player token is required")
	}
	player, err := s.players.FindByToken(ctx, s.pool, input.Token)
	if err != nil {
		return nil, domain.ErrInternal("find player", err)
	}
	if player == nil {
		return nil, domain.ErrUnauthorized("invalid player token")
	}
	session, err := s.sessions.FindByID(ctx, s.pool, player.SessionID)
	if err != nil || session == nil {
		return nil, domain.ErrInternal("find session", err)
	}

	if input.IsMinigame || input.Level == "bonus" {
		player, err = s.submitBonus(ctx, session, player, input)
	} else {
		player, err = s.submitLevel(ctx, session, player, input)
	}
	if err != nil {
		return nil, err
	}

	s.broadcastPlayerUpdate(session.Code, player)
	s.broadcastPlayers(ctx, session)
	s.broadcastLeaderboard(ctx, session)

	if err := s.maybeFinish(ctx, session); err != nil {
		s.logger.Error("auto-finish failed", "code", session.Code, "error", err)
	}
	return player, nil
}

// submitBonus adds a minigame score straight to bonus points. Permitted
// even while the session is not active.
func (s *Service) submitBonus(ctx context.Context, session *domain.Session, player *domain.Player, input SubmitInput) (*domain.Player, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if _, err := s.ledger.LockPlayer(ctx, tx, player.ID); err != nil {
		return nil, err
	}
	updated, _, err := s.ledger.Post(ctx, tx, ledger.PostParams{
		SessionID: session.ID,
		PlayerID:  player.ID,
		Bucket:    domain.BucketBonus,
		Amount:    input.Score,
		Reason:    "minigame score",
	})
	if err != nil {
		return nil, domain.ErrInternal("post bonus score", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}

	s.pub.Publish(session.Code, realtime.Message{
		Type:    realtime.KindBalanceUpdate,
		Payload: map[string]interface{}{"player_id": updated.ID, "final_score": updated.FinalScore()},
	})
	return updated, nil
}

// submitLevel records a weighted level score idempotently and advances the
// player when the sub-game count signal is reached.
func (s *Service) submitLevel(ctx context.Context, session *domain.Session, player *domain.Player, input SubmitInput) (*domain.Player, error) {
	if session.Status != domain.SessionActive {
		return nil, domain.ErrConflict("session is not active")
	}
	level := domain.Level(input.Level)
	if !domain.ValidPlayableLevel(level) {
		return nil, domain.ErrValidation(fmt.Sprintf("invalid level %q: expected green, yellow, red or bonus with is_minigame", input.Level))
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, domain.ErrInternal("begin tx", err)
	}
	defer tx.Rollback(ctx)

	locked, err := s.ledger.LockPlayer(ctx, tx, player.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	weighted := input.Score * domain.LevelWeight(level)
	details := input.Details
	if details == nil {
		details = json.RawMessage(`{}`)
	}
	prog := &domain.Progress{
		ID:          uuid.New(),
		PlayerID:    player.ID,
		Level:       level,
		Status:      domain.ProgressCompleted,
		Score:       weighted,
		TimeSpentMS: input.TimeSpentMS,
		Details:     details,
		CompletedAt: &now,
		CreatedAt:   now,
	}
	if err := s.progress.Upsert(ctx, tx, prog); err != nil {
		return nil, domain.ErrInternal("upsert progress", err)
	}

	// Total score is never drifted incrementally: recompute from the
	// completed progress rows inside the same transaction.
	total, err := s.progress.SumCompleted(ctx, tx, player.ID)
	if err != nil {
		return nil, domain.ErrInternal("sum progress", err)
	}
	if err := s.players.SetTotalScore(ctx, tx, player.ID, total); err != nil {
		return nil, domain.ErrInternal("set total score", err)
	}
	locked.TotalScore = total

	// Advance only when the per-level sub-game signal is complete; partial
	// submissions update the score without moving the level.
	if input.Game >= domain.GamesPerLevel {
		if next, ok := domain.NextLevel(level); ok {
			locked.CurrentLevel = next
		} else {
			locked.CurrentLevel = domain.LevelRed
			locked.Status = domain.PlayerDone
		}
		if err := s.players.UpdateLevelStatus(ctx, tx, player.ID, locked.CurrentLevel, locked.Status); err != nil {
			return nil, domain.ErrInternal("advance level", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.ErrInternal("commit", err)
	}
	return locked, nil
}

// maybeFinish flips the session to finished exactly once when every player
// is done or on the final level, and writes the audit snapshot.
func (s *Service) maybeFinish(ctx context.Context, session *domain.Session) error {
	if session.Status == domain.SessionFinished {
		return nil
	}
	players, err := s.players.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return err
	}
	if !domain.AllPlayersFinished(players) {
		return nil
	}

	ok, err := s.sessions.MarkFinished(ctx, s.pool, session.ID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	session.Status = domain.SessionFinished
	s.logger.Info("session finished", "code", session.Code)

	leaderboard := ComputeLeaderboard(players)
	if payload, err := json.Marshal(leaderboard); err == nil {
		snap := &domain.LeaderboardSnapshot{
			ID:        uuid.New(),
			SessionID: session.ID,
			Payload:   payload,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.snapshots.Insert(ctx, s.pool, snap); err != nil {
			s.logger.Error("snapshot insert failed", "code", session.Code, "error", err)
		}
	}

	s.broadcastSessionState(ctx, session.Code)
	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "game.finished", Data: map[string]string{
			"message": "Every player has finished the game!",
		}},
	})
	return nil
}

// TouchPresence refreshes a player's liveness metadata from a ping.
func (s *Service) TouchPresence(ctx context.Context, token string, connected bool) {
	if token == "" {
		return
	}
	player, err := s.players.FindByToken(ctx, s.pool, token)
	if err != nil || player == nil {
		return
	}
	if err := s.players.TouchPresence(ctx, s.pool, player.ID, connected); err != nil {
		s.logger.Warn("touch presence failed", "player", player.ID, "error", err)
	}
}

// Snapshot builds the initial message sequence for a fresh subscriber:
// session state, player list, then current standings. Payload shapes match
// the incremental broadcasts so clients handle both the same way.
func (s *Service) Snapshot(ctx context.Context, code string) ([]realtime.Message, error) {
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

	return []realtime.Message{
		{Type: realtime.KindSessionState, Payload: map[string]interface{}{
			"session_id": session.ID,
			"code":       session.Code,
			"status":     session.Status,
			"started_at": session.StartedAt,
			"ended_at":   session.EndedAt,
		}},
		{Type: realtime.KindPlayersList, Payload: map[string]interface{}{
			"session_id": session.ID,
			"players":    playerViews(players),
		}},
		{Type: realtime.KindLeaderboard, Payload: map[string]interface{}{
			"session_id":  session.ID,
			"leaderboard": ComputeLeaderboard(players),
		}},
	}, nil
}

// --- broadcast helpers ---

func (s *Service) broadcastSessionState(ctx context.Context, code string) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil || session == nil {
		return
	}
	s.pub.Publish(code, realtime.Message{Type: realtime.KindSessionState, Payload: map[string]interface{}{
		"session_id": session.ID,
		"code":       session.Code,
		"status":     session.Status,
		"started_at": session.StartedAt,
		"ended_at":   session.EndedAt,
	}})
}

func (s *Service) broadcastPlayers(ctx context.Context, session *domain.Session) {
	players, err := s.players.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return
	}
	s.pub.Publish(session.Code, realtime.Message{Type: realtime.KindPlayersList, Payload: map[string]interface{}{
		"session_id": session.ID,
		"players":    playerViews(players),
	}})
}

func (s *Service) broadcastPlayerUpdate(code string, player *domain.Player) {
	s.pub.Publish(code, realtime.Message{Type: realtime.KindPlayerUpdate, Payload: map[string]interface{}{
		"session_id": player.SessionID,
		"player":     playerView(*player),
	}})
}

func (s *Service) broadcastLeaderboard(ctx context.Context, session *domain.Session) {
	players, err := s.players.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return
	}
	s.pub.Publish(session.Code, realtime.Message{Type: realtime.KindLeaderboard, Payload: map[string]interface{}{
		"session_id":  session.ID,
		"leaderboard": ComputeLeaderboard(players),
	}})
}

// playerView is the wire shape of a player in list/update broadcasts.
type playerViewData struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Status       domain.PlayerStatus `json:"status"`
	CurrentLevel domain.Level        `json:"current_level"`
	TotalScore   int                 `json:"total_score"`
	BonusScore   int                 `json:"bonus_score"`
	FinalScore   int                 `json:"final_score"`
}

func playerView(p domain.Player) playerViewData {
	return playerViewData{
		ID:           p.ID,
		Name:         p.Name,
		Status:       p.Status,
		CurrentLevel: p.CurrentLevel,
		TotalScore:   p.TotalScore,
		BonusScore:   p.BonusScore,
		FinalScore:   p.FinalScore(),
	}
}

func playerViews(players []domain.Player) []playerViewData {
	out := make([]playerViewData, len(players))
	for i, p := range players {
		out[i] = playerView(p)
	}
	return out
}
