//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyrush/backend/internal/repository"
	"github.com/partyrush/backend/test/integration/testutil"
)

func TestJoin_SameDeviceResumes(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	device := uuid.New().String()

	resp := env.POST("/api/sessions/"+code+"/join", map[string]string{
		"name": "Alice", "device_uuid": device,
	}, "")
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var first struct {
		Resumed bool `json:"resumed"`
		Player  struct {
			ID uuid.UUID `json:"id"`
		} `json:"player"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.False(t, first.Resumed)

	resp2 := env.POST("/api/sessions/"+code+"/join", map[string]string{
		"name": "Alice Again", "device_uuid": device,
	}, "")
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)

	var second struct {
		Resumed bool `json:"resumed"`
		Player  struct {
			ID   uuid.UUID `json:"id"`
			Name string    `json:"name"`
		} `json:"player"`
	}
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&second))
	assert.True(t, second.Resumed)
	assert.Equal(t, first.Player.ID, second.Player.ID)
	assert.Equal(t, "Alice Again", second.Player.Name)

	var count int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM players WHERE session_id = $1", env.SessionID(code)).Scan(&count)
	assert.Equal(t, 1, count)
}

func TestJoin_ConcurrentSameDeviceCreatesOneRow(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(5, false)
	device := uuid.New().String()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := env.POST("/api/sessions/"+code+"/join", map[string]string{
				"name": "Bob", "device_uuid": device,
			}, "")
			resp.Body.Close()
		}()
	}
	wg.Wait()

	var count int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM players WHERE session_id = $1", env.SessionID(code)).Scan(&count)
	assert.Equal(t, 1, count)
}

func TestMarkActive_TransitionsExactlyOnce(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	sessionID := env.SessionID(code)

	repo := repository.NewSessionRepository()

	ok, err := repo.MarkActive(t.Context(), env.Pool, sessionID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkActive(t.Context(), env.Pool, sessionID)
	require.NoError(t, err)
	assert.False(t, ok)

	var status string
	env.Pool.QueryRow(t.Context(),
		"SELECT status FROM sessions WHERE id = $1", sessionID).Scan(&status)
	assert.Equal(t, "active", status)
}

func TestStart_ConcurrentRequestsLeaveConsistentState(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	env.JoinPlayer(code, "Alice", uuid.New().String())
	env.JoinPlayer(code, "Bob", uuid.New().String())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := env.POST("/api/sessions/"+code+"/start", nil, "")
			resp.Body.Close()
		}()
	}
	wg.Wait()

	sessionID := env.SessionID(code)
	var status string
	var startedAtCount int
	env.Pool.QueryRow(t.Context(),
		"SELECT status FROM sessions WHERE id = $1", sessionID).Scan(&status)
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM sessions WHERE id = $1 AND started_at IS NOT NULL", sessionID).Scan(&startedAtCount)
	assert.Equal(t, "active", status)
	assert.Equal(t, 1, startedAtCount)

	var playing int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM players WHERE session_id = $1 AND status = 'playing' AND current_level = 'green'",
		sessionID).Scan(&playing)
	assert.Equal(t, 2, playing)
}

func TestPlayers_ColumnDefaultsMatchDomain(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)

	_, err := env.Pool.Exec(t.Context(), `
		INSERT INTO players (id, session_id, name, device_uuid, token)
		VALUES ($1, $2, 'Minimal', $3, $4)`,
		uuid.New(), env.SessionID(code), uuid.New(), uuid.New().String())
	require.NoError(t, err)

	var status, level string
	env.Pool.QueryRow(t.Context(),
		"SELECT status, current_level FROM players WHERE name = 'Minimal'").Scan(&status, &level)
	assert.Equal(t, "ready", status)
	assert.Equal(t, "none", level)
}
