package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "article-insights"

func TestJWTMaker_GenerateAndParseToken_ValidCases(t *testing.T) {
	tokenTTL := 15 * time.Minute
	maker := NewJWTMaker("test_secret_key_1234567890", testIssuer, tokenTTL)

	tests := []struct {
		name      string
		accountID string
		email     string
	}{
		{name: "regular account", accountID: "2f1c1a4e-8a53-4b4e-9d59-5a1d3b0f8e11", email: "reader@example.com"},
		{name: "oauth account", accountID: "acc-42", email: "User.Name@Gmail.com"},
		{name: "empty email", accountID: "acc-43", email: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := maker.GenerateToken(tt.accountID, tt.email)
			require.NoError(t, err)
			assert.NotEmpty(t, token)

			claims, err := maker.ParseToken(token)
			require.NoError(t, err)

			assert.Equal(t, tt.accountID, claims.AccountID())
			assert.Equal(t, tt.email, claims.Email)
			assert.Equal(t, testIssuer, claims.Issuer)
			assert.WithinDuration(t, time.Now(), claims.IssuedAt.Time, time.Second)
			assert.WithinDuration(t, time.Now().Add(tokenTTL), claims.ExpiresAt.Time, time.Second)
		})
	}
}

func TestJWTMaker_GenerateToken_EmptyAccount(t *testing.T) {
	maker := NewJWTMaker("secret", testIssuer, time.Minute)

	_, err := maker.GenerateToken("", "a@b.c")
	assert.Error(t, err)
}

func TestJWTMaker_ParseToken_InvalidTokens(t *testing.T) {
	secretKey := "test_secret_key_1234567890"
	maker := NewJWTMaker(secretKey, testIssuer, 15*time.Minute)

	validToken, err := maker.GenerateToken("acc-1", "a@example.com")
	require.NoError(t, err)

	expired, err := NewJWTMaker(secretKey, testIssuer, -time.Hour).GenerateToken("acc-1", "a@example.com")
	require.NoError(t, err)

	wrongSecret, err := NewJWTMaker("wrong_secret_key", testIssuer, time.Hour).GenerateToken("acc-1", "a@example.com")
	require.NoError(t, err)

	wrongIssuer, err := NewJWTMaker(secretKey, "someone-else", time.Hour).GenerateToken("acc-1", "a@example.com")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty token", token: ""},
		{name: "malformed token", token: "invalid.token.here"},
		{name: "expired token", token: expired},
		{name: "wrong secret key", token: wrongSecret},
		{name: "wrong issuer", token: wrongIssuer},
		{name: "tampered token", token: validToken + "tampered"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := maker.ParseToken(tt.token)
			assert.Error(t, err)
			assert.Nil(t, claims)
		})
	}
}

func TestJWTMaker_TokenExpiration(t *testing.T) {
	maker := NewJWTMaker("test_secret_key", testIssuer, 2*time.Second)

	token, err := maker.GenerateToken("acc-1", "a@example.com")
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	require.NoError(t, err)

	time.Sleep(3 * time.Second)

	_, err = maker.ParseToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired")
}
