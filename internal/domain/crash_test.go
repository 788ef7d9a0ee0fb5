package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSettleAuto(t *testing.T) {
	tests := []struct {
		name       string
		stake      int
		chosen     float64
		crashPoint float64
		wantStatus CrashBetStatus
		wantWin    int
	}{
		{"wins below crash point", 100, 2.0, 2.5, BetWon, 300},
		{"wins at exact crash point", 100, 2.5, 2.5, BetWon, 350},
		{"loses above crash point", 100, 3.0, 2.5, BetLost, 0},
		{"zero stake win pays nothing", 0, 1.5, 2.0, BetWon, 0},
		{"fractional payout truncates", 10, 1.33, 2.0, BetWon, 23},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bet := CrashBet{BetAmount: tt.stake, Multiplier: tt.chosen}
			status, win := bet.SettleAuto(tt.crashPoint)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantWin, win)
		})
	}
}

func TestCashoutWin(t *testing.T) {
	bet := CrashBet{BetAmount: 100}
	assert.Equal(t, 250, bet.CashoutWin(1.5))
	assert.Equal(t, 100, bet.CashoutWin(0))
}

func TestBetStatusTerminal(t *testing.T) {
	assert.False(t, BetPending.Terminal())
	assert.True(t, BetCashedOut.Terminal())
	assert.True(t, BetWon.Terminal())
	assert.True(t, BetLost.Terminal())
}

func TestCrashGameEnded(t *testing.T) {
	g := CrashGame{}
	assert.False(t, g.Ended())

	now := time.Now()
	g.EndedAt = &now
	assert.True(t, g.Ended())
}

func TestValidateCashoutMultiplier(t *testing.T) {
	assert.Error(t, ValidateCashoutMultiplier(1.0))
	assert.NoError(t, ValidateCashoutMultiplier(1.01))
	assert.NoError(t, ValidateCashoutMultiplier(50.0))
	assert.Error(t, ValidateCashoutMultiplier(50.01))
	assert.Error(t, ValidateCashoutMultiplier(-2))
}

func TestNormalizeStake(t *testing.T) {
	assert.Equal(t, 0, NormalizeStake(-10))
	assert.Equal(t, 0, NormalizeStake(0))
	assert.Equal(t, 25, NormalizeStake(25))
}
