package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/game"
)

// SessionHandler exposes the session lifecycle endpoints.
type SessionHandler struct {
	svc *game.Service
}

// NewSessionHandler creates a session handler.
func NewSessionHandler(svc *game.Service) *SessionHandler {
	return &SessionHandler{svc: svc}
}

// Create handles POST /api/sessions. An empty body creates a session with
// the default config.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input game.CreateSessionInput
	if r.ContentLength > 0 {
		if err := DecodeJSON(r, &input); err != nil {
			RespondError(w, domain.ErrValidation("invalid request body"))
			return
		}
	}

	session, err := h.svc.CreateSession(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, session)
}

// Get handles GET /api/sessions/{code}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	state, err := h.svc.GetState(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, state)
}

type joinRequest struct {
	Name       string `json:"name"`
	DeviceUUID string `json:"device_uuid"`
	DeviceType string `json:"device_type"`
}

// Join handles POST /api/sessions/{code}/join.
func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	var req joinRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	player, created, err := h.svc.Join(r.Context(), code, game.JoinInput{
		Name:       req.Name,
		DeviceUUID: req.DeviceUUID,
		DeviceType: req.DeviceType,
		IPAddress:  clientIP(r),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	RespondJSON(w, status, map[string]interface{}{
		"player":  player,
		"token":   player.Token,
		"resumed": !created,
	})
}

// Start handles POST /api/sessions/{code}/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	session, err := h.svc.Start(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, session)
}

// clientIP extracts the originating address, honoring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
