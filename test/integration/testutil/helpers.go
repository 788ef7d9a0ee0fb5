//go:build integration

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/partyrush/backend/internal/auth"
)

// GET performs an unauthenticated GET request.
func (env *TestEnv) GET(path string) *http.Response {
	env.t.Helper()
	resp, err := http.Get(env.Server.URL + path)
	if err != nil {
		env.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POST performs a POST request with an optional bearer token.
func (env *TestEnv) POST(path string, body interface{}, token string) *http.Response {
	env.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			env.t.Fatalf("POST %s: encode: %v", path, err)
		}
	}
	req, err := http.NewRequest("POST", env.Server.URL+path, &buf)
	if err != nil {
		env.t.Fatalf("POST %s: new request: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// RawPOST performs a POST request with raw bytes and custom headers.
func (env *TestEnv) RawPOST(path string, body []byte, headers map[string]string) *http.Response {
	env.t.Helper()
	req, err := http.NewRequest("POST", env.Server.URL+path, bytes.NewReader(body))
	if err != nil {
		env.t.Fatalf("RawPOST %s: new request: %v", path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		env.t.Fatalf("RawPOST %s: %v", path, err)
	}
	return resp
}

// CreateSession creates a session over HTTP and returns its join code.
func (env *TestEnv) CreateSession(minPlayers int, autoStart bool) string {
	env.t.Helper()
	resp := env.POST("/api/sessions", map[string]interface{}{
		"min_players": minPlayers,
		"auto_start":  autoStart,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		env.t.Fatalf("CreateSession: expected 201, got %d", resp.StatusCode)
	}

	var result struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateSession: decode: %v", err)
	}
	return result.Code
}

// JoinPlayer joins a session and returns the player token and ID.
func (env *TestEnv) JoinPlayer(code, name, deviceUUID string) (token string, playerID uuid.UUID) {
	env.t.Helper()
	resp := env.POST("/api/sessions/"+code+"/join", map[string]string{
		"name":        name,
		"device_uuid": deviceUUID,
	}, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		env.t.Fatalf("JoinPlayer: expected 200/201, got %d", resp.StatusCode)
	}

	var result struct {
		Token  string `json:"token"`
		Player struct {
			ID uuid.UUID `json:"id"`
		} `json:"player"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("JoinPlayer: decode: %v", err)
	}
	return result.Token, result.Player.ID
}

// StartSession issues the explicit start command.
func (env *TestEnv) StartSession(code string) {
	env.t.Helper()
	resp := env.POST("/api/sessions/"+code+"/start", nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		env.t.Fatalf("StartSession: expected 200, got %d", resp.StatusCode)
	}
}

// SubmitLevel posts a level result for the player token.
func (env *TestEnv) SubmitLevel(token, level string, score, game int) *http.Response {
	env.t.Helper()
	return env.POST("/api/progress", map[string]interface{}{
		"token": token,
		"level": level,
		"score": score,
		"game":  game,
	}, "")
}

// CreateRound creates (or returns) the session's crash round and returns
// its ID.
func (env *TestEnv) CreateRound(code string) uuid.UUID {
	env.t.Helper()
	resp := env.POST("/api/sessions/"+code+"/crash/rounds", nil, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		env.t.Fatalf("CreateRound: expected 200/201, got %d", resp.StatusCode)
	}

	var result struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		env.t.Fatalf("CreateRound: decode: %v", err)
	}
	return result.ID
}

// RegisterAdmin inserts an admin user directly and returns a JWT for it.
func (env *TestEnv) RegisterAdmin(username, password string) string {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	adminID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		env.t.Fatalf("RegisterAdmin: hash: %v", err)
	}

	_, err = env.Pool.Exec(ctx, `
		INSERT INTO admin_users (id, username, password_hash, is_active)
		VALUES ($1, $2, $3, true)`,
		adminID, username, string(hash))
	if err != nil {
		env.t.Fatalf("RegisterAdmin: insert: %v", err)
	}

	token, err := env.JWTMgr.GenerateToken(auth.RealmAdmin, adminID, username)
	if err != nil {
		env.t.Fatalf("RegisterAdmin: token: %v", err)
	}
	return token
}

// SessionID resolves a session code to its database ID.
func (env *TestEnv) SessionID(code string) uuid.UUID {
	env.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var id uuid.UUID
	if err := env.Pool.QueryRow(ctx, "SELECT id FROM sessions WHERE code = $1", code).Scan(&id); err != nil {
		env.t.Fatalf("SessionID: %v", err)
	}
	return id
}
