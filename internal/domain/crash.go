package domain

import (
	"time"

	"github.com/google/uuid"
)

// Crash bet limits. A chosen auto-cashout multiplier must fall inside
// [MinCashoutMultiplier, MaxCrashMultiplier].
const (
	MinCashoutMultiplier = 1.01
	MaxCrashMultiplier   = 50.0
)

// CrashGame is one round of the crash mini-game. The server seed stays
// secret until the round ends; its hash is published at creation so any
// observer can verify the outcome afterwards.
type CrashGame struct {
	ID                uuid.UUID  `json:"id"`
	SessionID         uuid.UUID  `json:"session_id"`
	Multiplier        float64    `json:"multiplier"`
	ServerSeed        string     `json:"server_seed,omitempty"`
	ServerSeedHash    string     `json:"server_seed_hash"`
	Nonce             int        `json:"nonce"`
	BettingPhaseStart *time.Time `json:"betting_phase_start,omitempty"`
	BettingPhaseEnd   *time.Time `json:"betting_phase_end,omitempty"`
	DurationSeconds   int        `json:"duration_seconds"`
	StartedAt         time.Time  `json:"started_at"`
	EndedAt           *time.Time `json:"ended_at,omitempty"`
}

// Ended reports whether the round is terminated.
func (g *CrashGame) Ended() bool { return g.EndedAt != nil }

// CrashBetStatus is the settlement state of one bet.
type CrashBetStatus string

const (
	BetPending   CrashBetStatus = "pending"
	BetCashedOut CrashBetStatus = "cashed_out"
	BetWon       CrashBetStatus = "won"
	BetLost      CrashBetStatus = "lost"
)

// Terminal reports whether the bet can no longer change state.
func (s CrashBetStatus) Terminal() bool { return s != BetPending }

// CrashBet is one player's bet in one round. Unique per (round, player).
type CrashBet struct {
	ID                uuid.UUID      `json:"id"`
	CrashGameID       uuid.UUID      `json:"crash_game_id"`
	PlayerID          uuid.UUID      `json:"player_id"`
	Multiplier        float64        `json:"multiplier"`
	BetAmount         int            `json:"bet_amount"`
	WinAmount         int            `json:"win_amount"`
	CashoutMultiplier *float64       `json:"cashout_multiplier,omitempty"`
	Status            CrashBetStatus `json:"status"`
	CreatedAt         time.Time      `json:"created_at"`
	CashedOutAt       *time.Time     `json:"cashed_out_at,omitempty"`
}

// SettleAuto resolves a still-pending bet against the round's final
// multiplier: the chosen auto-cashout wins when it is at or below the
// crash point. A win returns the stake plus stake × chosen multiplier.
func (b *CrashBet) SettleAuto(roundMultiplier float64) (CrashBetStatus, int) {
	if b.Multiplier <= roundMultiplier {
		return BetWon, b.BetAmount + int(float64(b.BetAmount)*b.Multiplier)
	}
	return BetLost, 0
}

// CashoutWin computes the payout for a manual cashout at the reported
// live multiplier: stake refunded plus stake × multiplier.
func (b *CrashBet) CashoutWin(atMultiplier float64) int {
	return b.BetAmount + int(float64(b.BetAmount)*atMultiplier)
}
