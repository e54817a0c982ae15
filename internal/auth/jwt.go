package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrMissingToken = errors.New("missing authorization token")
	ErrNoSubject    = errors.New("token carries no subject")
)

// Claims holds the JWT payload. UserID duplicates the registered subject so
// older tokens that only carry user_id still resolve.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// PlayerID returns the player identity the token was issued for.
func (c *Claims) PlayerID() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UserID
}

// SubjectFromToken decodes a token without verifying its signature and
// returns the embedded subject. The client never holds the signing secret;
// it only needs the subject to tell which match participant it is.
func SubjectFromToken(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", ErrMissingToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
		return "", ErrInvalidToken
	}
	sub := claims.PlayerID()
	if sub == "" {
		return "", ErrNoSubject
	}
	return sub, nil
}

// JWTManager issues and validates player credentials for the dev authority.
type JWTManager struct {
	secret []byte
	expiry time.Duration
}

// NewJWTManager creates a JWTManager with the given secret.
func NewJWTManager(secret string) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: 12 * time.Hour,
	}
}

// GenerateAccessToken creates a signed token for the given player.
func (m *JWTManager) GenerateAccessToken(userID, username string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateToken parses and validates a JWT string, returning the claims.
func (m *JWTManager) ValidateToken(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
