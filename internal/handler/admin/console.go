package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/partyrush/backend/internal/auth"
	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/game"
	"github.com/partyrush/backend/internal/handler"
)

// ConsoleHandler exposes the host/admin console endpoints.
type ConsoleHandler struct {
	svc *game.AdminService
}

// NewConsoleHandler creates a console handler.
func NewConsoleHandler(svc *game.AdminService) *ConsoleHandler {
	return &ConsoleHandler{svc: svc}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/admin/login.
func (h *ConsoleHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		handler.RespondError(w, domain.ErrValidation("username and password are required"))
		return
	}

	token, admin, err := h.svc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"token": token,
		"admin": map[string]interface{}{
			"id":       admin.ID,
			"username": admin.Username,
		},
	})
}

// ListPlayers handles GET /api/admin/sessions/{code}/players.
func (h *ConsoleHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	players, err := h.svc.ListPlayers(r.Context(), code)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]interface{}{"players": players})
}

// InspectPlayer handles GET /api/admin/players/{id}.
func (h *ConsoleHandler) InspectPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := playerIDParam(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	detail, err := h.svc.InspectPlayer(r.Context(), id)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, detail)
}

// DeletePlayer handles DELETE /api/admin/players/{id}.
func (h *ConsoleHandler) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	id, err := playerIDParam(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	if err := h.svc.DeletePlayer(r.Context(), id); err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type adjustPointsRequest struct {
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	Hidden bool   `json:"hidden"`
}

// AdjustPoints handles POST /api/admin/players/{id}/points.
func (h *ConsoleHandler) AdjustPoints(w http.ResponseWriter, r *http.Request) {
	id, err := playerIDParam(r)
	if err != nil {
		handler.RespondError(w, err)
		return
	}

	var req adjustPointsRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	adminID := auth.SubjectFromContext(r.Context())
	if adminID == uuid.Nil {
		handler.RespondError(w, domain.ErrUnauthorized("no admin context"))
		return
	}

	player, err := h.svc.AdjustPoints(r.Context(), id, req.Amount, req.Reason, req.Hidden, adminID)
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusOK, player)
}

type createRigRequest struct {
	SessionCode string  `json:"session_code"`
	PlayerID    *string `json:"player_id"`
	RigType     string  `json:"rig_type"`
	RoundNumber *int    `json:"round_number"`
	Value       float64 `json:"value"`
	ApplyOnce   bool    `json:"apply_once"`
}

// CreateRig handles POST /api/admin/rig.
func (h *ConsoleHandler) CreateRig(w http.ResponseWriter, r *http.Request) {
	var req createRigRequest
	if err := handler.DecodeJSON(r, &req); err != nil {
		handler.RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.SessionCode == "" {
		handler.RespondError(w, domain.ErrValidation("session_code is required"))
		return
	}

	var playerID *uuid.UUID
	if req.PlayerID != nil && *req.PlayerID != "" {
		id, err := uuid.Parse(*req.PlayerID)
		if err != nil {
			handler.RespondError(w, domain.ErrValidation("invalid player_id"))
			return
		}
		playerID = &id
	}

	adminID := auth.SubjectFromContext(r.Context())
	if adminID == uuid.Nil {
		handler.RespondError(w, domain.ErrUnauthorized("no admin context"))
		return
	}

	override, err := h.svc.CreateRig(r.Context(), game.CreateRigInput{
		SessionCode: req.SessionCode,
		PlayerID:    playerID,
		RigType:     domain.RigType(req.RigType),
		RoundNumber: req.RoundNumber,
		Value:       req.Value,
		ApplyOnce:   req.ApplyOnce,
		AdminID:     adminID,
	})
	if err != nil {
		handler.RespondError(w, err)
		return
	}
	handler.RespondJSON(w, http.StatusCreated, override)
}

func playerIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid player id")
	}
	return id, nil
}
