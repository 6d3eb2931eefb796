// Package auth issues and verifies the bearer tokens used by the API
// surface, and tracks revoked tokens through a shared store so that logout
// holds across service instances.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the authenticated caller carried inside a token. It supplies
// the provenance fields recorded on loans and payments.
type Identity struct {
	UserID    string
	Username  string
	FirstName string
	LastName  string
	Email     string
	Role      string
}

// Claims is the JWT payload for an Identity.
type Claims struct {
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// TokenManager signs and verifies HS256 tokens and consults a revocation
// store on every verification.
type TokenManager struct {
	secret  []byte
	expiry  time.Duration
	revoked RevocationStore
}

// NewTokenManager builds a TokenManager. A nil revocation store falls back
// to an in-memory one, which is only suitable for single-process use.
func NewTokenManager(secret string, expiry time.Duration, revoked RevocationStore) *TokenManager {
	if revoked == nil {
		revoked = NewInMemoryRevocationStore()
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &TokenManager{
		secret:  []byte(secret),
		expiry:  expiry,
		revoked: revoked,
	}
}

// Issue signs a token for the given identity.
func (m *TokenManager) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Username:  id.Username,
		FirstName: id.FirstName,
		LastName:  id.LastName,
		Email:     id.Email,
		Role:      id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the identity it carries.
// Revoked tokens are rejected even while still within their expiry.
func (m *TokenManager) Verify(tokenString string) (Identity, error) {
	revoked, err := m.revoked.IsRevoked(tokenString)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return Identity{}, ErrTokenRevoked
	}

	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID:    claims.Subject,
		Username:  claims.Username,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Email:     claims.Email,
		Role:      claims.Role,
	}, nil
}

// Revoke invalidates a token for the remainder of its lifetime.
func (m *TokenManager) Revoke(tokenString string) error {
	return m.revoked.Revoke(tokenString)
}
