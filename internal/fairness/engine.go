// Package fairness implements the provably-fair crash round outcome
// scheme: the server commits to SHA256(seed) before the round, derives the
// multiplier deterministically from (seed, nonce), and reveals the seed
// after the round so anyone can recompute the result.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
)

// Multiplier bounds of the crash distribution.
const (
	MinMultiplier = 1.00
	MaxMultiplier = 50.0
)

// band is one segment of the piecewise distribution. A normalized draw in
// [pLo, pHi) maps linearly into [mLo, mHi).
type band struct {
	pLo, pHi float64
	mLo, mHi float64
}

// Distribution: ~70% of rounds land in [1.00, 2.0), ~20% in [2.0, 4.0),
// ~7% in [4.0, 8.0), ~2.5% in [8.0, 15.0), ~0.5% in [15.0, 50.0].
var bands = []band{
	{0.00, 0.70, 1.00, 2.0},
	{0.70, 0.90, 2.0, 4.0},
	{0.90, 0.97, 4.0, 8.0},
	{0.97, 0.995, 8.0, 15.0},
	{0.995, 1.0, 15.0, 50.0},
}

// GenerateSeed returns a fresh 32-byte server seed as hex together with
// its SHA-256 commitment. The seed stays secret until the round ends.
func GenerateSeed() (seed, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate server seed: %w", err)
	}
	seed = hex.EncodeToString(buf)
	return seed, HashSeed(seed), nil
}

// HashSeed returns the hex SHA-256 commitment published for a seed.
func HashSeed(seed string) string {
	sum := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(sum[:])
}

// Outcome derives the round multiplier from the secret seed and the
// per-session nonce. The derivation is pure: the same inputs always
// reproduce the same published outcome.
func Outcome(seed string, nonce int) float64 {
	sum := sha256.Sum256([]byte(seed + ":" + strconv.Itoa(nonce)))
	hexDigest := hex.EncodeToString(sum[:])
	v, _ := strconv.ParseUint(hexDigest[:8], 16, 64)
	r := float64(v) / float64(1<<32)
	return MapMultiplier(r)
}

// MapMultiplier maps a normalized draw in [0,1) through the piecewise
// distribution, clamped to MaxMultiplier and rounded to 2 decimals.
func MapMultiplier(r float64) float64 {
	m := MaxMultiplier
	for _, b := range bands {
		if r >= b.pLo && r < b.pHi {
			m = b.mLo + (r-b.pLo)/(b.pHi-b.pLo)*(b.mHi-b.mLo)
			break
		}
	}
	if m > MaxMultiplier {
		m = MaxMultiplier
	}
	return math.Round(m*100) / 100
}

// Verify recomputes the outcome from a revealed seed and checks it against
// both the published commitment and the published multiplier. This is the
// auditor-side half of the commit-reveal scheme.
func Verify(seed, publishedHash string, nonce int, publishedMultiplier float64) bool {
	if HashSeed(seed) != publishedHash {
		return false
	}
	return Outcome(seed, nonce) == publishedMultiplier
}
