package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelWeight(t *testing.T) {
	assert.Equal(t, 1, LevelWeight(LevelGreen))
	assert.Equal(t, 5, LevelWeight(LevelYellow))
	assert.Equal(t, 10, LevelWeight(LevelRed))
	assert.Equal(t, 1, LevelWeight(LevelNone))
}

func TestNextLevel(t *testing.T) {
	next, ok := NextLevel(LevelGreen)
	assert.True(t, ok)
	assert.Equal(t, LevelYellow, next)

	next, ok = NextLevel(LevelYellow)
	assert.True(t, ok)
	assert.Equal(t, LevelRed, next)

	_, ok = NextLevel(LevelRed)
	assert.False(t, ok)
}

func TestValidPlayableLevel(t *testing.T) {
	assert.True(t, ValidPlayableLevel(LevelGreen))
	assert.True(t, ValidPlayableLevel(LevelYellow))
	assert.True(t, ValidPlayableLevel(LevelRed))
	assert.False(t, ValidPlayableLevel(LevelNone))
	assert.False(t, ValidPlayableLevel(Level("purple")))
}

func TestFinalScoreDerived(t *testing.T) {
	p := Player{TotalScore: 120, BonusScore: 30, RoleBuff: 10}
	assert.Equal(t, 160, p.FinalScore())

	p.BonusScore = -50
	assert.Equal(t, 80, p.FinalScore())
}

func TestAssignRole(t *testing.T) {
	tests := []struct {
		name     string
		wantRole string
		wantBuff int
	}{
		{"DJ", "Диджей", 10},
		{"dj mike", "Диджей", 10},
		{"Admin", "Администратор", 15},
		{"the big boss", "Босс вечеринки", 12},
		{"Star", "Звезда", 8},
		{"ninja turtle", "Ниндзя", 5},
		{"alice", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, buff := AssignRole(tt.name)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantBuff, buff)
		})
	}
}

func TestAssignRolePriorityOrder(t *testing.T) {
	// "admindj" matches both keywords as substrings; admin sits earlier
	// in the table and wins.
	role, buff := AssignRole("admindj")
	assert.Equal(t, "Администратор", role)
	assert.Equal(t, 15, buff)
}
