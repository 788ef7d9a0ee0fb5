package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ProgressStatus is the state of one player's attempt at a level.
type ProgressStatus string

const (
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
	ProgressFailed     ProgressStatus = "failed"
)

// Progress records one player's result for one level. Unique per
// (player, level): a resubmission overwrites, it never duplicates.
type Progress struct {
	ID          uuid.UUID       `json:"id"`
	PlayerID    uuid.UUID       `json:"player_id"`
	Level       Level           `json:"level"`
	Status      ProgressStatus  `json:"status"`
	Score       int             `json:"score"`
	TimeSpentMS int             `json:"time_spent_ms"`
	Details     json.RawMessage `json:"details,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}
