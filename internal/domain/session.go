package domain

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a game session.
// Transitions are monotonic: pending → active → finished.
type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionActive   SessionStatus = "active"
	SessionFinished SessionStatus = "finished"
)

// Session is one instance of the party game, identified by a short code.
type Session struct {
	ID                   uuid.UUID     `json:"id"`
	Code                 string        `json:"code"`
	Status               SessionStatus `json:"status"`
	CreatedAt            time.Time     `json:"created_at"`
	StartedAt            *time.Time    `json:"started_at,omitempty"`
	EndedAt              *time.Time    `json:"ended_at,omitempty"`
	LevelDurationSeconds int           `json:"level_duration_seconds"`
	MinPlayers           int           `json:"min_players"`
	AutoStart            bool          `json:"auto_start"`
}

// CanStart reports whether an explicit start command is allowed.
func (s *Session) CanStart(playerCount int) error {
	if s.Status != SessionPending {
		return ErrConflict("session already started or finished")
	}
	if playerCount < s.MinPlayers {
		return ErrValidation("not enough players to start")
	}
	return nil
}

// ShouldAutoStart reports whether a join should trigger the automatic
// pending→active transition.
func (s *Session) ShouldAutoStart(readyCount int) bool {
	return s.AutoStart && s.Status == SessionPending && readyCount >= s.MinPlayers
}

// AllPlayersFinished reports whether every player satisfies the terminal
// condition (done, or sitting on the final red level).
func AllPlayersFinished(players []Player) bool {
	if len(players) == 0 {
		return false
	}
	for _, p := range players {
		if p.Status != PlayerDone && p.CurrentLevel != LevelRed {
			return false
		}
	}
	return true
}
