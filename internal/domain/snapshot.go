package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LeaderboardEntry is one ranked row of a session leaderboard. Ranks are
// strictly sequential; ties never share a rank.
type LeaderboardEntry struct {
	Rank         int          `json:"rank"`
	PlayerID     uuid.UUID    `json:"player_id"`
	Name         string       `json:"name"`
	TotalScore   int          `json:"total_score"`
	BonusScore   int          `json:"bonus_score"`
	FinalScore   int          `json:"final_score"`
	CurrentLevel Level        `json:"current_level"`
	Status       PlayerStatus `json:"status"`
}

// LeaderboardSnapshot is an immutable point-in-time capture of standings.
type LeaderboardSnapshot struct {
	ID        uuid.UUID       `json:"id"`
	SessionID uuid.UUID       `json:"session_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// Selfie is the metadata row for an uploaded selfie image. The image file
// itself lives outside the database under a collision-resistant name.
type Selfie struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  uuid.UUID `json:"player_id"`
	SessionID uuid.UUID `json:"session_id"`
	Task      string    `json:"task"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
}
