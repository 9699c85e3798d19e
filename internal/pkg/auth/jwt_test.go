package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/domain/identity"
)

func testConfig(expiry time.Duration) *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "storefront-api"},
		JWT: config.JWTConfig{
			Secret:            "0123456789abcdef0123456789abcdef",
			AccessTokenExpiry: expiry,
		},
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	manager := NewJWTManager(testConfig(time.Hour))

	token, err := manager.GenerateAccessToken("user-1", true)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, identity.Admin("user-1"), claims.Actor())
	assert.Equal(t, "storefront-api", claims.Issuer)
	assert.Equal(t, "user:user-1", claims.Subject)
}

func TestValidateAccessTokenRejects(t *testing.T) {
	manager := NewJWTManager(testConfig(time.Hour))

	expired := NewJWTManager(testConfig(-time.Minute))
	stale, err := expired.GenerateAccessToken("user-1", false)
	require.NoError(t, err)
	_, err = manager.ValidateAccessToken(stale)
	assert.Error(t, err)

	other := testConfig(time.Hour)
	other.JWT.Secret = "ffffffffffffffffffffffffffffffff"
	forged, err := NewJWTManager(other).GenerateAccessToken("user-1", true)
	require.NoError(t, err)
	_, err = manager.ValidateAccessToken(forged)
	assert.Error(t, err)

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		UserID:    "user-1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := refresh.SignedString([]byte(testConfig(time.Hour).JWT.Secret))
	require.NoError(t, err)
	_, err = manager.ValidateAccessToken(signed)
	assert.Error(t, err)

	_, err = manager.ValidateAccessToken("not-a-token")
	assert.Error(t, err)

	_, err = manager.GenerateAccessToken(" ", false)
	assert.ErrorIs(t, err, ErrMissingSubject)
}

func TestExtractTokenFromHeader(t *testing.T) {
	assert.Equal(t, "abc", ExtractTokenFromHeader("Bearer abc"))
	assert.Equal(t, "abc", ExtractTokenFromHeader("bearer abc"))
	assert.Empty(t, ExtractTokenFromHeader("Basic abc"))
	assert.Empty(t, ExtractTokenFromHeader("Bearer"))
	assert.Empty(t, ExtractTokenFromHeader(""))
}
