package game

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSelfieFileName(t *testing.T) {
	at := time.Date(2026, 7, 4, 21, 30, 15, 0, time.UTC)
	id := uuid.MustParse("6f9619ff-8b86-4d01-b42d-00cf4fc964ff")

	name := SelfieFileName("AB12CD", at, "alice", id, ".jpg")
	assert.Equal(t, "AB12CD_20260704_213015_alice_6f9619ff.jpg", name)
}

func TestSelfieFileNameSanitizesName(t *testing.T) {
	at := time.Date(2026, 7, 4, 21, 30, 15, 0, time.UTC)
	id := uuid.New()

	name := SelfieFileName("AB12CD", at, "a b/c", id, "png")
	assert.Contains(t, name, "a_b_c")
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, " ")
}

func TestSelfieFileNameTruncatesLongNames(t *testing.T) {
	at := time.Now()
	long := strings.Repeat("й", 40)

	name := SelfieFileName("AB12CD", at, long, uuid.New(), ".jpg")
	assert.Contains(t, name, strings.Repeat("й", 20))
	assert.NotContains(t, name, strings.Repeat("й", 21))
}
