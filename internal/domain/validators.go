package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// ValidatePlayerName rejects names shorter than two characters.
func ValidatePlayerName(name string) error {
	if len([]rune(name)) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

// ParseDeviceUUID parses the device identifier sent by a client.
func ParseDeviceUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, fmt.Errorf("device_uuid is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid device_uuid format")
	}
	return id, nil
}

// ValidateCashoutMultiplier checks a chosen auto-cashout target.
func ValidateCashoutMultiplier(m float64) error {
	if m < MinCashoutMultiplier || m > MaxCrashMultiplier {
		return fmt.Errorf("multiplier must be between %.2f and %.0f", MinCashoutMultiplier, MaxCrashMultiplier)
	}
	return nil
}

// NormalizeStake clamps a bet stake to a non-negative integer. Malformed
// or negative input degrades to a zero-point bet rather than an error.
func NormalizeStake(stake int) int {
	if stake < 0 {
		return 0
	}
	return stake
}
