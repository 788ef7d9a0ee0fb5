//go:build integration

package integration

import (
	"net/http"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyrush/backend/test/integration/testutil"
)

func totalScore(t *testing.T, env *testutil.TestEnv, playerID uuid.UUID) int {
	t.Helper()
	var total int
	env.Pool.QueryRow(t.Context(),
		"SELECT total_score FROM players WHERE id = $1", playerID).Scan(&total)
	return total
}

func TestSubmitProgress_ResubmissionRecomputesTotal(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	token, playerID := env.JoinPlayer(code, "Alice", uuid.New().String())
	env.JoinPlayer(code, "Bob", uuid.New().String())
	env.StartSession(code)

	resp := env.SubmitLevel(token, "green", 100, 1)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 100, totalScore(t, env, playerID))

	// A second submission for the same level replaces the first row; the
	// total is recomputed, not accumulated.
	resp = env.SubmitLevel(token, "green", 40, 2)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 40, totalScore(t, env, playerID))

	var rows int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM progress WHERE player_id = $1", playerID).Scan(&rows)
	assert.Equal(t, 1, rows)
}

func TestSubmitProgress_WeightsLevels(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	token, playerID := env.JoinPlayer(code, "Alice", uuid.New().String())
	env.JoinPlayer(code, "Bob", uuid.New().String())
	env.StartSession(code)

	resp := env.SubmitLevel(token, "green", 10, 3)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.SubmitLevel(token, "yellow", 10, 3)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// green 10x1 + yellow 10x5
	assert.Equal(t, 60, totalScore(t, env, playerID))
}

func TestSubmitProgress_ConcurrentSameLevelNoLostUpdate(t *testing.T) {
	env := testutil.NewTestEnv(t)
	code := env.CreateSession(2, false)
	token, playerID := env.JoinPlayer(code, "Alice", uuid.New().String())
	env.JoinPlayer(code, "Bob", uuid.New().String())
	env.StartSession(code)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := env.SubmitLevel(token, "green", 70, 1)
			resp.Body.Close()
		}()
	}
	wg.Wait()

	// Racing identical submissions must converge on a single progress row
	// and a total equal to one submission, never a sum of several.
	var rows int
	env.Pool.QueryRow(t.Context(),
		"SELECT COUNT(*) FROM progress WHERE player_id = $1 AND level = 'green'", playerID).Scan(&rows)
	assert.Equal(t, 1, rows)
	assert.Equal(t, 70, totalScore(t, env, playerID))
}
