package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanStart(t *testing.T) {
	s := Session{Status: SessionPending, MinPlayers: 2}

	assert.Error(t, s.CanStart(1), "below minimum")
	assert.NoError(t, s.CanStart(2))
	assert.NoError(t, s.CanStart(5))

	s.Status = SessionActive
	assert.Error(t, s.CanStart(5), "already active")

	s.Status = SessionFinished
	assert.Error(t, s.CanStart(5), "already finished")
}

func TestShouldAutoStart(t *testing.T) {
	s := Session{Status: SessionPending, MinPlayers: 3, AutoStart: true}

	assert.False(t, s.ShouldAutoStart(2))
	assert.True(t, s.ShouldAutoStart(3))

	s.AutoStart = false
	assert.False(t, s.ShouldAutoStart(3))

	s.AutoStart = true
	s.Status = SessionActive
	assert.False(t, s.ShouldAutoStart(3))
}

func TestAllPlayersFinished(t *testing.T) {
	assert.False(t, AllPlayersFinished(nil), "empty session never finishes")

	players := []Player{
		{Status: PlayerDone, CurrentLevel: LevelRed},
		{Status: PlayerPlaying, CurrentLevel: LevelRed},
	}
	assert.True(t, AllPlayersFinished(players), "done or on the final level counts")

	players = append(players, Player{Status: PlayerPlaying, CurrentLevel: LevelYellow})
	assert.False(t, AllPlayersFinished(players))
}

func TestValidatePlayerName(t *testing.T) {
	assert.Error(t, ValidatePlayerName(""))
	assert.Error(t, ValidatePlayerName("a"))
	assert.NoError(t, ValidatePlayerName("ab"))
	assert.NoError(t, ValidatePlayerName("Юля"), "rune count, not byte count")
}

func TestParseDeviceUUID(t *testing.T) {
	_, err := ParseDeviceUUID("")
	assert.Error(t, err)

	_, err = ParseDeviceUUID("not-a-uuid")
	assert.Error(t, err)

	id, err := ParseDeviceUUID("6f9619ff-8b86-4d01-b42d-00cf4fc964ff")
	require.NoError(t, err)
	assert.Equal(t, "6f9619ff-8b86-4d01-b42d-00cf4fc964ff", id.String())
}
