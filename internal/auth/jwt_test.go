package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTManager() *JWTManager {
	return NewJWTManager("test-secret-key", 8*time.Hour)
}

func TestGenerateAndValidateAdminToken(t *testing.T) {
	mgr := newTestJWTManager()
	adminID := uuid.New()

	token, err := mgr.GenerateToken(RealmAdmin, adminID, "host")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := mgr.ValidateTokenForRealm(token, RealmAdmin)
	require.NoError(t, err)
	assert.Equal(t, adminID.String(), claims.Subject)
	assert.Equal(t, RealmAdmin, claims.Realm)
	assert.Equal(t, "host", claims.Username)
}

func TestUnknownRealmRejected(t *testing.T) {
	mgr := newTestJWTManager()

	_, err := mgr.GenerateToken(Realm("player"), uuid.New(), "x")
	assert.Error(t, err)
}

func TestRealmMismatchRejected(t *testing.T) {
	mgr := newTestJWTManager()

	token, err := mgr.GenerateToken(RealmAdmin, uuid.New(), "host")
	require.NoError(t, err)

	_, err = mgr.ValidateTokenForRealm(token, Realm("other"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "expected realm other")
}

func TestInvalidSecretRejected(t *testing.T) {
	mgr1 := NewJWTManager("secret-1", 8*time.Hour)
	mgr2 := NewJWTManager("secret-2", 8*time.Hour)

	token, err := mgr1.GenerateToken(RealmAdmin, uuid.New(), "host")
	require.NoError(t, err)

	_, err = mgr2.ValidateToken(token)
	assert.Error(t, err)
}

func TestExpiredTokenRejected(t *testing.T) {
	mgr := NewJWTManager("test-secret-key", -1*time.Minute)

	token, err := mgr.GenerateToken(RealmAdmin, uuid.New(), "host")
	require.NoError(t, err)

	_, err = mgr.ValidateToken(token)
	assert.Error(t, err)
}

func TestGarbageTokenRejected(t *testing.T) {
	mgr := newTestJWTManager()

	_, err := mgr.ValidateToken("not.a.jwt")
	assert.Error(t, err)
}
