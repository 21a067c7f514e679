package auth_test

import (
	"testing"
	"time"

	"workhub/internal/auth"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testSecret = []byte("test-secret-key")

func TestGenerateAndParseToken(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(testSecret, userID, 24*time.Hour)

	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	parsedUserID, err := auth.ParseToken(testSecret, token)

	assert.NoError(t, err)
	assert.Equal(t, userID.String(), parsedUserID)
}

func TestParseToken_InvalidToken(t *testing.T) {
	_, err := auth.ParseToken(testSecret, "invalid-token")

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, err := auth.GenerateToken([]byte("other-secret"), uuid.New(), time.Hour)
	assert.NoError(t, err)

	_, err = auth.ParseToken(testSecret, token)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_ExpiredToken(t *testing.T) {
	claims := jwt.MapClaims{
		"user_id": "test-user-id",
		"exp":     time.Now().Add(-1 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	expiredToken, _ := token.SignedString(testSecret)

	_, err := auth.ParseToken(testSecret, expiredToken)

	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestParseToken_MissingClaims(t *testing.T) {
	claims := jwt.MapClaims{
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenWithoutUserID, _ := token.SignedString(testSecret)

	_, err := auth.ParseToken(testSecret, tokenWithoutUserID)

	assert.ErrorIs(t, err, auth.ErrInvalidClaims)
}
