package domain

import (
	"time"

	"github.com/google/uuid"
)

// PointsTransaction is an immutable audit log entry of a balance delta.
// Append-only: rows are never updated or deleted while the session lives.
type PointsTransaction struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	PlayerID  uuid.UUID  `json:"player_id"`
	Amount    int        `json:"amount"`
	Reason    string     `json:"reason,omitempty"`
	IsHidden  bool       `json:"is_hidden"`
	AdminID   *uuid.UUID `json:"admin_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ScoreBucket selects which player score column a ledger delta lands in.
type ScoreBucket string

const (
	BucketTotal ScoreBucket = "total"
	BucketBonus ScoreBucket = "bonus"
)
