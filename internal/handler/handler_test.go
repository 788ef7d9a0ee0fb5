package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyrush/backend/internal/domain"
)

func TestRespondErrorMapsAppError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"not found", domain.ErrNotFound("session", "AB12CD"), 404, "NOT_FOUND"},
		{"conflict", domain.ErrConflict("round already ended"), 409, "CONFLICT"},
		{"validation", domain.ErrValidation("bad input"), 400, "VALIDATION_ERROR"},
		{"unauthorized", domain.ErrUnauthorized("nope"), 401, "UNAUTHORIZED"},
		{"not joinable", domain.ErrSessionNotJoinable(), 400, "SESSION_NOT_JOINABLE"},
		{"plain error hidden", errors.New("pq: connection refused"), 500, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["code"])
			if tt.wantCode == "INTERNAL_ERROR" {
				assert.NotContains(t, body["message"], "pq:", "internal detail must not leak")
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"alice"}`))

	var dst struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSON(r, &dst))
	assert.Equal(t, "alice", dst.Name)
}

func TestPlayerTokenFromHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"bearer", "Bearer abc123", "abc123"},
		{"token scheme", "Token abc123", "abc123"},
		{"case insensitive", "bearer abc123", "abc123"},
		{"missing", "", ""},
		{"wrong scheme", "Basic abc123", ""},
		{"no value", "Bearer", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, PlayerTokenFromHeader(r))
		})
	}
}

func TestRequestIDGeneratedAndEchoed(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	})

	rec := httptest.NewRecorder()
	RequestID(next).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	// A caller-provided ID is preserved.
	rec = httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Request-ID", "fixed-id")
	RequestID(next).ServeHTTP(rec, r)
	assert.Equal(t, "fixed-id", seen)
}

func TestCORSPreflight(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("preflight must not reach the handler")
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("OPTIONS", "/api/sessions", nil)
	CORS("*")(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRecoveryReturns500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	Recovery(logger)(next).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPlaceBetRequestStakeDecoding(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"integer", `{"stake": 100}`, 100},
		{"float truncates", `{"stake": 12.9}`, 12},
		{"numeric string", `{"stake": " 40 "}`, 40},
		{"garbage string", `{"stake": "all in"}`, 0},
		{"null", `{"stake": null}`, 0},
		{"array", `{"stake": [1, 2]}`, 0},
		{"object", `{"stake": {"amount": 5}}`, 0},
		{"absent", `{"multiplier": 2.0}`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req placeBetRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, tt.want, int(req.Stake))
		})
	}
}
