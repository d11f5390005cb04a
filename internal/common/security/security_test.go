package security

import (
	"testing"
	"time"

	"taskini/internal/platform/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupJWT(t *testing.T) {
	t.Helper()
	prev := config.AppConfig
	config.AppConfig = &config.Config{JWTKey: []byte("test-secret"), JWTExp: time.Hour}
	InitJWT()
	t.Cleanup(func() { config.AppConfig = prev })
}

func TestGenerateTokenRoundTrip(t *testing.T) {
	setupJWT(t)

	tokenString, err := GenerateToken("user-1", "admin")
	require.NoError(t, err)

	token, err := TokenAuth.Decode(tokenString)
	require.NoError(t, err)
	claims, err := token.AsMap(t.Context())
	require.NoError(t, err)

	userID, err := GetUserIDFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)

	role, err := GetUserRoleFromClaims(claims)
	require.NoError(t, err)
	assert.Equal(t, "admin", role)

	jti, err := GetTokenIDFromClaims(claims)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	exp, err := GetExpiryFromClaims(claims)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)
}

func TestTokensAreUnique(t *testing.T) {
	setupJWT(t)

	a, err := GenerateToken("user-1", "member")
	require.NoError(t, err)
	b, err := GenerateToken("user-1", "member")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestClaimHelpersRejectMissingClaims(t *testing.T) {
	_, err := GetUserIDFromClaims(map[string]interface{}{})
	assert.Error(t, err)
	_, err = GetUserRoleFromClaims(map[string]interface{}{"role": 1})
	assert.Error(t, err)
	_, err = GetExpiryFromClaims(map[string]interface{}{"exp": "tomorrow"})
	assert.Error(t, err)

	exp, err := GetExpiryFromClaims(map[string]interface{}{"exp": float64(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), exp.Unix())
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", hash)
	assert.True(t, CheckPasswordHash("secret1", hash))
	assert.False(t, CheckPasswordHash("secret2", hash))
	assert.False(t, CheckPasswordHash("", hash))

	other, err := HashPassword("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other)
}
