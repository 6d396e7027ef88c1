// internal/session/session.go
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"campus-forum/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Token expiration time - 24 hours
const tokenExpiration = 24 * time.Hour

// Claims represents the JWT claims issued by the forum backend
type Claims struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	jwt.RegisteredClaims
}

// Session holds the current user's identity and bearer token. It is the
// read-only identity source for optimistic entries and the gate for the
// like-toggle authorization check.
type Session struct {
	mu     sync.RWMutex
	secret []byte
	user   *models.Author
	token  string
}

func New(secret string) *Session {
	return &Session{secret: []byte(secret)}
}

// SetToken validates a backend-issued token and activates the session.
func (s *Session) SetToken(tokenString string) error {
	claims, err := ValidateToken(tokenString, string(s.secret))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tokenString
	s.user = &models.Author{
		ID:          claims.UserID,
		DisplayName: claims.DisplayName,
		AvatarURL:   claims.AvatarURL,
	}
	return nil
}

// Clear logs the session out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.user = nil
}

// Active reports whether a user is currently signed in.
func (s *Session) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil
}

// User returns the current identity snapshot, if any.
func (s *Session) User() (models.Author, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.Author{}, false
	}
	return *s.user, true
}

// Token returns the raw bearer token for outbound requests.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// GenerateToken creates a signed token for the given identity. Used by the
// simulator and tests; real tokens come from the backend's login endpoint.
func GenerateToken(user models.Author, secret string) (string, error) {
	expirationTime := time.Now().Add(tokenExpiration)

	claims := &Claims{
		UserID:      user.ID,
		DisplayName: user.DisplayName,
		AvatarURL:   user.AvatarURL,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "campus-forum-api",
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ValidateToken validates the provided JWT token
func ValidateToken(tokenString string, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		if claims.ExpiresAt != nil && time.Now().After(claims.ExpiresAt.Time) {
			return nil, errors.New("token expired")
		}
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
