package handler

import (
	"net/http"
	"strings"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/game"
)

// ProgressHandler accepts game result submissions from players.
type ProgressHandler struct {
	svc *game.Service
}

// NewProgressHandler creates a progress handler.
func NewProgressHandler(svc *game.Service) *ProgressHandler {
	return &ProgressHandler{svc: svc}
}

// Submit handles POST /api/progress. The player token rides in the body or,
// failing that, in the Authorization header.
func (h *ProgressHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var input game.SubmitInput
	if err := DecodeJSON(r, &input); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if input.Token == "" {
		input.Token = PlayerTokenFromHeader(r)
	}

	player, err := h.svc.SubmitProgress(r.Context(), input)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, player)
}

// PlayerTokenFromHeader extracts an opaque player token from the
// Authorization header, accepting both "Bearer x" and "Token x" schemes.
func PlayerTokenFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	scheme := strings.ToLower(parts[0])
	if scheme != "bearer" && scheme != "token" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
