package domain

import (
	"time"

	"github.com/google/uuid"
)

// RigType selects which kind of round outcome an override forces.
type RigType string

const (
	RigCase       RigType = "case"
	RigMultiplier RigType = "multiplier"
)

// RigOverride is a pending admin-injected outcome for the next applicable
// round. Only the most recent unconsumed override of a scope is active;
// creating a new one retires older unconsumed ones of the same scope.
type RigOverride struct {
	ID          uuid.UUID  `json:"id"`
	SessionID   uuid.UUID  `json:"session_id"`
	PlayerID    *uuid.UUID `json:"player_id,omitempty"`
	RigType     RigType    `json:"rig_type"`
	RoundNumber *int       `json:"round_number,omitempty"`
	Value       float64    `json:"value"`
	ApplyOnce   bool       `json:"apply_once"`
	Consumed    bool       `json:"consumed"`
	AdminID     *uuid.UUID `json:"admin_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AppliesToRound reports whether the override is eligible for the round
// with the given nonce. An override without a round number applies to any
// round; one with a round number applies to that round only.
func (o *RigOverride) AppliesToRound(nonce int) bool {
	if o.Consumed {
		return false
	}
	return o.RoundNumber == nil || *o.RoundNumber == nonce
}
