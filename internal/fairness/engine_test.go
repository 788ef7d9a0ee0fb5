package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSeedCommitment(t *testing.T) {
	seed, hash, err := GenerateSeed()
	require.NoError(t, err)
	assert.Len(t, seed, 64)
	assert.Len(t, hash, 64)
	assert.Equal(t, HashSeed(seed), hash)

	seed2, _, err := GenerateSeed()
	require.NoError(t, err)
	assert.NotEqual(t, seed, seed2)
}

func TestOutcomeDeterministic(t *testing.T) {
	seed := "f1e2d3c4b5a6978887796a5b4c3d2e1f00112233445566778899aabbccddeeff"

	first := Outcome(seed, 1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Outcome(seed, 1))
	}
	assert.NotEqual(t, Outcome(seed, 1), Outcome(seed, 2))
}

func TestOutcomeWithinBounds(t *testing.T) {
	seed := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	for nonce := 1; nonce <= 500; nonce++ {
		m := Outcome(seed, nonce)
		assert.GreaterOrEqual(t, m, MinMultiplier, "nonce %d", nonce)
		assert.LessOrEqual(t, m, MaxMultiplier, "nonce %d", nonce)
	}
}

func TestMapMultiplierBands(t *testing.T) {
	tests := []struct {
		name string
		r    float64
		want float64
	}{
		{"bottom of first band", 0.0, 1.00},
		{"middle of first band", 0.35, 1.50},
		{"start of second band", 0.70, 2.00},
		{"middle of second band", 0.80, 3.00},
		{"start of third band", 0.90, 4.00},
		{"start of fourth band", 0.97, 8.00},
		{"start of top band", 0.995, 15.00},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, MapMultiplier(tt.r), 0.005)
		})
	}
}

func TestMapMultiplierNeverExceedsMax(t *testing.T) {
	assert.LessOrEqual(t, MapMultiplier(0.9999999), MaxMultiplier)
}

func TestMapMultiplierRoundsToCents(t *testing.T) {
	m := MapMultiplier(0.123456)
	assert.Equal(t, m, float64(int(m*100))/100)
}

func TestVerify(t *testing.T) {
	seed, hash, err := GenerateSeed()
	require.NoError(t, err)
	m := Outcome(seed, 7)

	assert.True(t, Verify(seed, hash, 7, m))
	assert.False(t, Verify(seed, hash, 8, m), "wrong nonce")
	assert.False(t, Verify(seed, HashSeed("other"), 7, m), "wrong commitment")
	assert.False(t, Verify(seed, hash, 7, m+0.01), "wrong multiplier")
	assert.False(t, Verify("not-the-seed", hash, 7, m), "wrong seed")
}
