package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/partyrush/backend/internal/domain"
	"github.com/partyrush/backend/internal/game"
)

// CrashHandler exposes the crash mini-game endpoints.
type CrashHandler struct {
	svc *game.CrashService
}

// NewCrashHandler creates a crash handler.
func NewCrashHandler(svc *game.CrashService) *CrashHandler {
	return &CrashHandler{svc: svc}
}

// CreateRound handles POST /api/sessions/{code}/crash/rounds. Returns the
// current unterminated round when one already exists.
func (h *CrashHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	round, created, err := h.svc.CreateRound(r.Context(), code)
	if err != nil {
		RespondError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	RespondJSON(w, status, round)
}

// ListRounds handles GET /api/sessions/{code}/crash/rounds.
func (h *CrashHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	rounds, err := h.svc.ListRounds(r.Context(), code, queryLimit(r, 50))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"rounds": rounds})
}

// stakeAmount decodes leniently: a stake that is not a usable number
// counts as 0 instead of failing the whole request.
type stakeAmount int

func (s *stakeAmount) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*s = stakeAmount(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*s = stakeAmount(int(f))
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(str)); err == nil {
			*s = stakeAmount(n)
			return nil
		}
	}
	*s = 0
	return nil
}

type placeBetRequest struct {
	Token      string      `json:"token"`
	Stake      stakeAmount `json:"stake"`
	Multiplier float64     `json:"multiplier"`
}

// PlaceBet handles POST /api/crash/rounds/{id}/bets.
func (h *CrashHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req placeBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Token == "" {
		req.Token = PlayerTokenFromHeader(r)
	}

	bet, err := h.svc.PlaceBet(r.Context(), roundID, req.Token, int(req.Stake), req.Multiplier)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, bet)
}

type cashoutRequest struct {
	Token      string  `json:"token"`
	Multiplier float64 `json:"multiplier"`
}

// Cashout handles POST /api/crash/rounds/{id}/cashout.
func (h *CrashHandler) Cashout(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req cashoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.Token == "" {
		req.Token = PlayerTokenFromHeader(r)
	}

	bet, err := h.svc.Cashout(r.Context(), roundID, req.Token, req.Multiplier)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, bet)
}

// FinishRound handles POST /api/crash/rounds/{id}/finish. Reveals the seed
// and settles every pending bet.
func (h *CrashHandler) FinishRound(w http.ResponseWriter, r *http.Request) {
	roundID, err := roundIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	round, err := h.svc.FinishRound(r.Context(), roundID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, round)
}

// BetHistory handles GET /api/crash/bets.
func (h *CrashHandler) BetHistory(w http.ResponseWriter, r *http.Request) {
	token := PlayerTokenFromHeader(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	bets, err := h.svc.BetHistory(r.Context(), token, queryLimit(r, 50))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, map[string]interface{}{"bets": bets})
}

func roundIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, domain.ErrValidation("invalid round id")
	}
	return id, nil
}

func queryLimit(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 200 {
		return def
	}
	return n
}
