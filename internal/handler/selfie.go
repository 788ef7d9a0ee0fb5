package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/game"
)

// maxSelfieSize caps selfie uploads at 10 MiB.
const maxSelfieSize = 10 << 20

// SelfieHandler handles selfie uploads and gallery listing.
type SelfieHandler struct {
	svc *game.SelfieService
}

// NewSelfieHandler creates a selfie handler.
func NewSelfieHandler(svc *game.SelfieService) *SelfieHandler {
	return &SelfieHandler{svc: svc}
}

// Upload handles POST /api/selfies. Expects multipart form with an "image"
// file part; the player token comes from a "token" form field or the
// Authorization header.
func (h *SelfieHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSelfieSize)
	if err := r.ParseMultipartForm(maxSelfieSize); err != nil {
		RespondError(w, domain.ErrValidation("invalid multipart body"))
		return
	}

	token := r.FormValue("token")
	if token == "" {
		token = PlayerTokenFromHeader(r)
	}
	task := r.FormValue("task")

	file, header, err := r.FormFile("image")
	if err != nil {
		RespondError(w, domain.ErrValidation("image file is required"))
		return
	}
	defer file.Close()

	selfie, imageURL, err := h.svc.Upload(r.Context(), token, task, header.Filename, file)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, map[string]interface{}{
		"selfie_id": selfie.ID,
		"image_url": imageURL,
	})
}

// List handles GET /api/sessions/{code}/selfies.
func (h *SelfieHandler) List(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	selfies, err := h.svc.List(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"selfies": selfies})
}
