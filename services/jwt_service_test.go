package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"angeleyes-http-service/config"
)

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService(testConfig(), nil)

	token, err := svc.GenerateToken(7, "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, parsed.Valid)

	claims, err := svc.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "angeleyes-http-service", claims.Issuer)
}

func TestJWTWrongSecret(t *testing.T) {
	svc := NewJWTService(testConfig(), nil)
	other := NewJWTService(&config.Config{JWTSecretKey: "a-different-secret"}, nil)

	token, err := svc.GenerateToken(7, "alice@example.com")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	_, err = other.ExtractClaims(token)
	assert.Error(t, err)
}

func TestJWTGarbageToken(t *testing.T) {
	svc := NewJWTService(testConfig(), nil)

	_, err := svc.ValidateToken("not.a.token")
	assert.Error(t, err)

	_, err = svc.ExtractClaims("")
	assert.Error(t, err)
}
