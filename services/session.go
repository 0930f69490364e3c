package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpiredSession = errors.New("session expired")
	ErrInvalidSession = errors.New("invalid session")
)

// Identity is the authenticated caller as reported by the session provider.
type Identity struct {
	MemberID string
	Email    string
	Roles    []string
}

func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SessionVerifier turns a bearer token into an Identity.
type SessionVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// SessionClaims is the payload of a ZE Club session token.
type SessionClaims struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 session tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	var claims SessionClaims
	t, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredSession
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if !t.Valid || claims.Subject == "" {
		return nil, ErrInvalidSession
	}
	return &Identity{MemberID: claims.Subject, Email: claims.Email, Roles: claims.Roles}, nil
}

// Sign issues a session token for the identity. Used by tooling and tests.
func (v *JWTVerifier) Sign(id Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = id.MemberID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		Email:            id.Email,
		Roles:            id.Roles,
		RegisteredClaims: claims,
	})
	return token.SignedString(v.secret)
}
