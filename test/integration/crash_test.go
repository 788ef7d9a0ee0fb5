//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyrush/backend/test/integration/testutil"
)

func roundMultiplier(t *testing.T, env *testutil.TestEnv, roundID uuid.UUID) float64 {
	t.Helper()
	var m float64
	require.NoError(t, env.Pool.QueryRow(t.Context(),
		"SELECT multiplier FROM crash_games WHERE id = $1", roundID).Scan(&m))
	return m
}

func TestPlaceBet_DuplicateRejected(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	token, _ := env.JoinPlayer(code, "Alice", uuid.New().String())
	roundID := env.CreateRound(code)

	resp := env.POST(fmt.Sprintf("/api/crash/rounds/%s/bets", roundID), map[string]interface{}{
		"token": token, "stake": 0, "multiplier": 2.0,
	}, "")
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.POST(fmt.Sprintf("/api/crash/rounds/%s/bets", roundID), map[string]interface{}{
		"token": token, "stake": 0, "multiplier": 3.0,
	}, "")
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var bets int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM crash_bets WHERE crash_game_id = $1", roundID).Scan(&bets)
	assert.Equal(t, 1, bets)
}

func TestPlaceBet_MalformedStakeDefaultsToZero(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	token, _ := env.JoinPlayer(code, "Alice", uuid.New().String())
	roundID := env.CreateRound(code)

	body := []byte(fmt.Sprintf(`{"token":%q,"stake":"all of it","multiplier":2.0}`, token))
	resp := env.RawPOST(fmt.Sprintf("/api/crash/rounds/%s/bets", roundID), body,
		map[string]string{"Content-Type": "application/json"})
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var bet struct {
		BetAmount int `json:"bet_amount"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&bet))
	assert.Equal(t, 0, bet.BetAmount)
}

func TestCreateRound_PlayerScopedRigApplies(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	_, playerID := env.JoinPlayer(code, "Alice", uuid.New().String())
	adminToken := env.RegisterAdmin("rigadmin", "secretpass123")

	resp := env.POST("/api/admin/rig", map[string]interface{}{
		"session_code": code,
		"player_id":    playerID.String(),
		"rig_type":     "multiplier",
		"value":        7.5,
		"apply_once":   true,
	}, adminToken)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	roundID := env.CreateRound(code)
	assert.InDelta(t, 7.5, roundMultiplier(t, env, roundID), 0.001)

	var consumed bool
	env.Pool.QueryRow(t.Context(),
		"SELECT consumed FROM rig_overrides WHERE player_id = $1", playerID).Scan(&consumed)
	assert.True(t, consumed)
}

func TestCreateRound_SessionScopedRigApplies(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	env.JoinPlayer(code, "Alice", uuid.New().String())
	adminToken := env.RegisterAdmin("rigadmin2", "secretpass123")

	resp := env.POST("/api/admin/rig", map[string]interface{}{
		"session_code": code,
		"rig_type":     "multiplier",
		"value":        3.25,
		"apply_once":   false,
	}, adminToken)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	roundID := env.CreateRound(code)
	assert.InDelta(t, 3.25, roundMultiplier(t, env, roundID), 0.001)
}

func TestCreateRig_RetirementScopedByRoundNumber(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	adminToken := env.RegisterAdmin("rigadmin3", "secretpass123")

	rig := func(round int, value float64) {
		resp := env.POST("/api/admin/rig", map[string]interface{}{
			"session_code": code,
			"rig_type":     "multiplier",
			"round_number": round,
			"value":        value,
			"apply_once":   true,
		}, adminToken)
		resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	rig(5, 2.5)
	rig(7, 9.0)

	// Overrides pinned to different rounds are separate scopes; the second
	// must not retire the first.
	var unconsumed int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM rig_overrides WHERE session_id = $1 AND consumed = false",
		env.SessionID(code)).Scan(&unconsumed)
	assert.Equal(t, 2, unconsumed)

	// Same scope still supersedes: a second round-5 override retires the
	// first round-5 one.
	rig(5, 4.0)
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM rig_overrides WHERE session_id = $1 AND consumed = false",
		env.SessionID(code)).Scan(&unconsumed)
	assert.Equal(t, 2, unconsumed)
}

func TestCreateRound_ConcurrentCreatesOneRound(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)

	done := make(chan uuid.UUID, 4)
	for i := 0; i < 4; i++ {
		go func() {
			done <- env.CreateRound(code)
		}()
	}
	first := <-done
	for i := 1; i < 4; i++ {
		assert.Equal(t, first, <-done)
	}

	var rounds int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM crash_games WHERE session_id = $1", env.SessionID(code)).Scan(&rounds)
	assert.Equal(t, 1, rounds)
}
