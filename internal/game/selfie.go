package game

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/realtime"
	"github.com/partyrush/backend/internal/repository"
)

// SelfieService stores uploaded selfies on disk and pushes the media event
// to the session.
type SelfieService struct {
	pool     *pgxpool.Pool
	sessions repository.SessionRepository
	players  repository.PlayerRepository
	selfies  repository.SelfieRepository
	mediaDir string
	baseURL  string
	pub      realtime.Publisher
	logger   *slog.Logger
}

// NewSelfieService creates the selfie service. mediaDir is created on
// first upload if missing.
func NewSelfieService(
	pool *pgxpool.Pool,
	sessions repository.SessionRepository,
	players repository.PlayerRepository,
	selfies repository.SelfieRepository,
	mediaDir, baseURL string,
	pub realtime.Publisher,
	logger *slog.Logger,
) *SelfieService {
	return &SelfieService{
		pool:     pool,
		sessions: sessions,
		players:  players,
		selfies:  selfies,
		mediaDir: mediaDir,
		baseURL:  baseURL,
		pub:      pub,
		logger:   logger,
	}
}

// SelfieFileName builds the collision-resistant stored name:
// code_timestamp_safename_idprefix.ext.
func SelfieFileName(sessionCode string, at time.Time, playerName string, selfieID uuid.UUID, ext string) string {
	safe := strings.NewReplacer(" ", "_", "/", "_").Replace(playerName)
	if r := []rune(safe); len(r) > 20 {
		safe = string(r[:20])
	}
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("%s_%s_%s_%s.%s",
		sessionCode, at.Format("20060102_150405"), safe, selfieID.String()[:8], ext)
}

// Upload saves the image and records the selfie, then broadcasts the
// selfie.uploaded media event to the session.
func (s *SelfieService) Upload(ctx context.Context, token, task, origName string, image io.Reader) (*domain.Selfie, string, error) {
	if token == "" {
		return nil, "", domain.ErrValidation("player token is required")
	}
	player, err := s.players.FindByToken(ctx, s.pool, token)
	if err != nil {
		return nil, "", domain.ErrInternal("find player", err)
	}
	if player == nil {
		return nil, "", domain.ErrUnauthorized("invalid player token")
	}
	session, err := s.sessions.FindByID(ctx, s.pool, player.SessionID)
	if err != nil || session == nil {
		return nil, "", domain.ErrInternal("find session", err)
	}

	ext := strings.ToLower(filepath.Ext(origName))
	if ext == "" {
		ext = ".jpg"
	}
	now := time.Now().UTC()
	selfieID := uuid.New()
	fileName := SelfieFileName(session.Code, now, player.Name, selfieID, ext)

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return nil, "", domain.ErrInternal("create media dir", err)
	}
	dst, err := os.Create(filepath.Join(s.mediaDir, fileName))
	if err != nil {
		return nil, "", domain.ErrInternal("create media file", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, image); err != nil {
		return nil, "", domain.ErrInternal("write media file", err)
	}

	selfie := &domain.Selfie{
		ID:        selfieID,
		PlayerID:  player.ID,
		SessionID: session.ID,
		Task:      task,
		FileName:  fileName,
		CreatedAt: now,
	}
	if err := s.selfies.Insert(ctx, s.pool, selfie); err != nil {
		return nil, "", domain.ErrInternal("insert selfie", err)
	}

	imageURL := s.imageURL(fileName)
	s.pub.Publish(session.Code, realtime.Message{
		Type: realtime.KindGameEvent,
		Payload: realtime.GameEvent{Kind: "selfie.uploaded", Data: map[string]interface{}{
			"selfie_id":   selfie.ID,
			"player_id":   player.ID,
			"player_name": player.Name,
			"task":        task,
			"image_url":   imageURL,
		}},
	})
	s.logger.Info("selfie uploaded", "code", session.Code, "player", player.Name, "file", fileName)
	return selfie, imageURL, nil
}

// SelfieView is the list shape returned to the shared display.
type SelfieView struct {
	SelfieID   uuid.UUID `json:"selfie_id"`
	PlayerID   uuid.UUID `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Task       string    `json:"task"`
	ImageURL   string    `json:"image_url"`
	CreatedAt  time.Time `json:"created_at"`
}

// List returns every selfie of a session, newest first.
func (s *SelfieService) List(ctx context.Context, code string) ([]SelfieView, error) {
	session, err := s.sessions.FindByCode(ctx, s.pool, code)
	if err != nil {
		return nil, domain.ErrInternal("find session", err)
	}
	if session == nil {
		return nil, domain.ErrNotFound("session", code)
	}
	selfies, err := s.selfies.ListBySession(ctx, s.pool, session.ID)
	if err != nil {
		return nil, domain.ErrInternal("list selfies", err)
	}

	views := make([]SelfieView, 0, len(selfies))
	for _, sf := range selfies {
		name := ""
		if p, err := s.players.FindByID(ctx, s.pool, sf.PlayerID); err == nil && p != nil {
			name = p.Name
		}
		views = append(views, SelfieView{
			SelfieID:   sf.ID,
			PlayerID:   sf.PlayerID,
			PlayerName: name,
			Task:       sf.Task,
			ImageURL:   s.imageURL(sf.FileName),
			CreatedAt:  sf.CreatedAt,
		})
	}
	return views, nil
}

func (s *SelfieService) imageURL(fileName string) string {
	return strings.TrimSuffix(s.baseURL, "/") + "/media/" + fileName
}
