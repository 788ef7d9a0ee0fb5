package domain

import (
	"time"

	"github.com/google/uuid"
)

// PlayerStatus is the lifecycle state of a player within a session.
type PlayerStatus string

const (
	PlayerReady   PlayerStatus = "ready"
	PlayerPlaying PlayerStatus = "playing"
	PlayerDone    PlayerStatus = "done"
)

// Level is one of the sequential challenge tiers.
type Level string

const (
	LevelNone   Level = "none"
	LevelGreen  Level = "green"
	LevelYellow Level = "yellow"
	LevelRed    Level = "red"
)

// GamesPerLevel is how many sub-games must be completed before the
// player advances past a level.
const GamesPerLevel = 3

// LevelWeight returns the fixed point multiplier for a level.
func LevelWeight(l Level) int {
	switch l {
	case LevelGreen:
		return 1
	case LevelYellow:
		return 5
	case LevelRed:
		return 10
	default:
		return 1
	}
}

// ValidPlayableLevel reports whether l is one of the three real tiers.
func ValidPlayableLevel(l Level) bool {
	return l == LevelGreen || l == LevelYellow || l == LevelRed
}

// NextLevel returns the level that follows l in the sequence. Red has no
// successor; the player goes to done instead.
func NextLevel(l Level) (Level, bool) {
	switch l {
	case LevelGreen:
		return LevelYellow, true
	case LevelYellow:
		return LevelRed, true
	default:
		return l, false
	}
}

// Player is one participant within a session. The device UUID is unique per
// session; the token uniquely authenticates the player everywhere.
type Player struct {
	ID           uuid.UUID    `json:"id"`
	SessionID    uuid.UUID    `json:"session_id"`
	Name         string       `json:"name"`
	DeviceUUID   uuid.UUID    `json:"-"`
	Token        string       `json:"-"`
	Status       PlayerStatus `json:"status"`
	CurrentLevel Level        `json:"current_level"`
	TotalScore   int          `json:"total_score"`
	BonusScore   int          `json:"bonus_score"`
	Role         string       `json:"role,omitempty"`
	RoleBuff     int          `json:"role_buff"`
	LastSeen     *time.Time   `json:"last_seen,omitempty"`
	IsConnected  bool         `json:"is_connected"`
	DeviceType   string       `json:"-"`
	IPAddress    string       `json:"-"`
	UserAgent    string       `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
}

// FinalScore is derived on read, never stored.
func (p *Player) FinalScore() int {
	return p.TotalScore + p.BonusScore + p.RoleBuff
}
