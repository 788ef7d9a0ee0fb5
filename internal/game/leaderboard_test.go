package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyrush/backend/internal/domain"
)

func TestComputeLeaderboardOrdering(t *testing.T) {
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)
	players := []domain.Player{
		{ID: uuid.New(), Name: "carol", TotalScore: 50, BonusScore: 0, CreatedAt: base},
		{ID: uuid.New(), Name: "alice", TotalScore: 100, BonusScore: 20, CreatedAt: base},
		{ID: uuid.New(), Name: "bob", TotalScore: 100, BonusScore: 20, RoleBuff: 10, CreatedAt: base.Add(time.Minute)},
	}

	entries := ComputeLeaderboard(players)
	require.Len(t, entries, 3)

	assert.Equal(t, "bob", entries[0].Name, "role buff lifts final score")
	assert.Equal(t, "alice", entries[1].Name)
	assert.Equal(t, "carol", entries[2].Name)

	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestComputeLeaderboardTieBreaks(t *testing.T) {
	base := time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

	// Equal final scores: higher earned total wins over bonus padding.
	earned := domain.Player{ID: uuid.New(), Name: "earned", TotalScore: 90, BonusScore: 10, CreatedAt: base.Add(time.Hour)}
	padded := domain.Player{ID: uuid.New(), Name: "padded", TotalScore: 50, BonusScore: 50, CreatedAt: base}

	entries := ComputeLeaderboard([]domain.Player{padded, earned})
	require.Len(t, entries, 2)
	assert.Equal(t, "earned", entries[0].Name)

	// Fully equal scores: earlier join wins.
	first := domain.Player{ID: uuid.New(), Name: "first", TotalScore: 50, BonusScore: 50, CreatedAt: base}
	entries = ComputeLeaderboard([]domain.Player{padded, first})
	assert.Equal(t, "first", entries[0].Name)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestComputeLeaderboardDoesNotMutateInput(t *testing.T) {
	players := []domain.Player{
		{Name: "low", TotalScore: 1},
		{Name: "high", TotalScore: 2},
	}
	ComputeLeaderboard(players)
	assert.Equal(t, "low", players[0].Name)
}

func TestComputeLeaderboardEmpty(t *testing.T) {
	assert.Empty(t, ComputeLeaderboard(nil))
}
