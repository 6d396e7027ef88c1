package session

import (
	"testing"
	"time"

	"campus-forum/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "session-test-secret"

func TestTokenRoundTrip(t *testing.T) {
	identity := models.Author{
		ID:          "u1",
		DisplayName: "Alice",
		AvatarURL:   "https://cdn.example.edu/avatars/alice.png",
	}

	token, err := GenerateToken(identity, testSecret)
	require.NoError(t, err)

	claims, err := ValidateToken(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "Alice", claims.DisplayName)
	assert.Equal(t, "u1", claims.Subject)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken(models.Author{ID: "u1"}, testSecret)
	require.NoError(t, err)

	_, err = ValidateToken(token, "not-the-secret")
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	claims := &Claims{
		UserID: "u1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ValidateToken(token, testSecret)
	assert.Error(t, err)
}

func TestSessionLifecycle(t *testing.T) {
	sess := New(testSecret)
	assert.False(t, sess.Active())

	_, ok := sess.User()
	assert.False(t, ok)

	token, err := GenerateToken(models.Author{ID: "u1", DisplayName: "Alice"}, testSecret)
	require.NoError(t, err)
	require.NoError(t, sess.SetToken(token))

	assert.True(t, sess.Active())
	assert.Equal(t, token, sess.Token())

	user, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, "Alice", user.DisplayName)

	sess.Clear()
	assert.False(t, sess.Active())
	assert.Empty(t, sess.Token())
}

func TestSetTokenRejectsGarbage(t *testing.T) {
	sess := New(testSecret)
	assert.Error(t, sess.SetToken("not.a.jwt"))
	assert.False(t, sess.Active())
}
