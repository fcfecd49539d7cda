package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openhealth/shared-backend/internal/platform/logger"
	"github.com/openhealth/shared-backend/internal/requestdata"
)

const testJWTSecret = "test-secret"

func signTestToken(t *testing.T, claims JWTClaims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func newTestAuthService() *authService {
	return &authService{
		log:          logger.NewNop(),
		jwtSecretKey: testJWTSecret,
		accessTTL:    time.Hour,
	}
}

func TestSetContextFromToken(t *testing.T) {
	as := newTestAuthService()
	userID := uuid.New()
	token := signTestToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}, testJWTSecret)

	ctx, err := as.SetContextFromToken(context.Background(), token)
	require.NoError(t, err)

	rd := requestdata.GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.Equal(t, userID, rd.UserID)
	assert.False(t, rd.IsAdmin)
	assert.Equal(t, token, rd.TokenString)
}

func TestSetContextFromTokenAdminClaims(t *testing.T) {
	as := newTestAuthService()
	adminID := uuid.New()
	token := signTestToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		IsAdmin: true,
		Role:    "analyst",
	}, testJWTSecret)

	ctx, err := as.SetContextFromToken(context.Background(), token)
	require.NoError(t, err)

	rd := requestdata.GetRequestData(ctx)
	require.NotNil(t, rd)
	assert.True(t, rd.IsAdmin)
	assert.Equal(t, "analyst", rd.AdminRole)
}

func TestSetContextFromTokenRejectsExpired(t *testing.T) {
	as := newTestAuthService()
	token := signTestToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, testJWTSecret)

	_, err := as.SetContextFromToken(context.Background(), token)
	assert.Error(t, err)
}

func TestSetContextFromTokenRejectsWrongSecret(t *testing.T) {
	as := newTestAuthService()
	token := signTestToken(t, JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, "other-secret")

	_, err := as.SetContextFromToken(context.Background(), token)
	assert.Error(t, err)

	_, err = as.SetContextFromToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}
