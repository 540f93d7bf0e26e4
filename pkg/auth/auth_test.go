package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTValidator_ValidateToken(t *testing.T) {
	validator, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256", SecretKey: "s3cret", Issuer: "inventory-backend"})
	require.NoError(t, err)

	valid, err := GenerateToken("s3cret", "inventory-backend", "user-1", []string{"operator"}, time.Hour)
	require.NoError(t, err)
	expired, err := GenerateToken("s3cret", "inventory-backend", "user-1", nil, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := GenerateToken("other", "inventory-backend", "user-1", nil, time.Hour)
	require.NoError(t, err)
	wrongIssuer, err := GenerateToken("s3cret", "someone-else", "user-1", nil, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid with bearer prefix", token: "Bearer " + valid},
		{name: "missing", token: "  ", wantErr: ErrMissingToken},
		{name: "expired", token: expired, wantErr: ErrExpiredToken},
		{name: "wrong key", token: wrongKey, wantErr: ErrInvalidSignature},
		{name: "wrong issuer", token: wrongIssuer, wantErr: ErrInvalidClaims},
		{name: "garbage", token: "not-a-jwt", wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := validator.ValidateToken(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-1", claims.UserID)
			assert.Equal(t, []string{"operator"}, claims.Roles)
		})
	}
}

func TestNewJWTValidator_RequiresKey(t *testing.T) {
	_, err := NewJWTValidator(JWTConfig{SigningMethod: "HS256"})
	assert.Error(t, err)

	_, err = NewJWTValidator(JWTConfig{SigningMethod: "ES512", SecretKey: "x"})
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "user-1"})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.UserID)
}

func TestKeyedLimiter_Allow(t *testing.T) {
	// Arrange
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewKeyedLimiter(1, 2)
	limiter.now = func() time.Time { return now }

	// Act & Assert
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))

	now = now.Add(time.Hour)
	assert.True(t, limiter.Allow("10.0.0.3"))
	assert.Equal(t, 1, limiter.Len())
}
