package accounts_test

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	accounts "github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTokenConfig() accounts.SimpleConfig {
	return accounts.SimpleConfig{
		AccessSigningKey:  "access-signing-key",
		RefreshSigningKey: "refresh-signing-key",
		AccessTokenTTL:    15 * time.Minute,
		RefreshTokenTTL:   7 * 24 * time.Hour,
		Issuer:            "test-issuer",
		Audience:          []string{"test-audience"},
	}
}

func TestNewTokenService(t *testing.T) {
	t.Run("creates token service with nil logger", func(t *testing.T) {
		service := accounts.NewTokenService(testTokenConfig(), nil)
		assert.NotNil(t, service)
	})
}

func TestTokenService_AccessToken(t *testing.T) {
	service := accounts.NewTokenService(testTokenConfig(), nil)

	t.Run("round trip", func(t *testing.T) {
		tokenString, err := service.MintAccessToken("account-123", accounts.RoleAdmin)
		require.NoError(t, err)
		require.NotEmpty(t, tokenString)

		claims, err := service.ValidateAccessToken(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "account-123", claims.AccountID())
		assert.Equal(t, accounts.RoleAdmin, claims.Role())
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.Expires(), time.Minute)
	})

	t.Run("back to back mints for the same account differ", func(t *testing.T) {
		first, err := service.MintAccessToken("account-123", accounts.RoleUser)
		require.NoError(t, err)

		second, err := service.MintAccessToken("account-123", accounts.RoleUser)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
	})

	t.Run("rejects token signed with the refresh secret", func(t *testing.T) {
		refreshToken, err := service.MintRefreshToken("account-123")
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(refreshToken)
		assert.Error(t, err)
	})

	t.Run("rejects tampered token", func(t *testing.T) {
		tokenString, err := service.MintAccessToken("account-123", accounts.RoleUser)
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(tokenString + "x")
		require.Error(t, err)

		var rich *goerrors.Error
		require.True(t, goerrors.As(err, &rich))
		assert.Equal(t, accounts.TextCodeInvalidToken, rich.TextCode)
	})

	t.Run("rejects expired token", func(t *testing.T) {
		cfg := testTokenConfig()
		cfg.AccessTokenTTL = -time.Minute
		expired := accounts.NewTokenService(cfg, nil)

		tokenString, err := expired.MintAccessToken("account-123", accounts.RoleUser)
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(tokenString)
		assert.ErrorIs(t, err, accounts.ErrTokenExpired)
	})

	t.Run("rejects non HMAC signing method", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "account-123"})
		tokenString, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateAccessToken(tokenString)
		assert.Error(t, err)
	})
}

func TestTokenService_RefreshToken(t *testing.T) {
	service := accounts.NewTokenService(testTokenConfig(), nil)

	t.Run("round trip", func(t *testing.T) {
		tokenString, err := service.MintRefreshToken("account-456")
		require.NoError(t, err)

		claims, err := service.ValidateRefreshToken(tokenString)
		require.NoError(t, err)
		assert.Equal(t, "account-456", claims.AccountID())
	})

	t.Run("rejects token signed with the access secret", func(t *testing.T) {
		accessToken, err := service.MintAccessToken("account-456", accounts.RoleUser)
		require.NoError(t, err)

		_, err = service.ValidateRefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("back to back mints for the same account differ", func(t *testing.T) {
		// Without a unique jti two mints inside the same second would be
		// byte identical and rotation would be a no-op.
		first, err := service.MintRefreshToken("account-456")
		require.NoError(t, err)

		second, err := service.MintRefreshToken("account-456")
		require.NoError(t, err)
		assert.NotEqual(t, first, second)

		firstClaims, err := service.ValidateRefreshToken(first)
		require.NoError(t, err)
		secondClaims, err := service.ValidateRefreshToken(second)
		require.NoError(t, err)
		assert.NotEmpty(t, firstClaims.ID)
		assert.NotEqual(t, firstClaims.ID, secondClaims.ID)
	})
}

func TestMintOpaqueToken(t *testing.T) {
	token, err := accounts.MintOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, token, accounts.OpaqueTokenBytes*2)

	_, err = hex.DecodeString(token)
	assert.NoError(t, err)

	other, err := accounts.MintOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
