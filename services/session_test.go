package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTVerifier_RoundTrip(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	token, err := v.Sign(Identity{MemberID: "m-1", Email: "kai@ze.gg", Roles: []string{"admin"}},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	require.NoError(t, err)

	id, err := v.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "m-1", id.MemberID)
	assert.Equal(t, "kai@ze.gg", id.Email)
	assert.True(t, id.HasRole("admin"))
	assert.False(t, id.HasRole("owner"))
}

func TestJWTVerifier_Rejects(t *testing.T) {
	v := NewJWTVerifier("test-secret")
	hour := jwt.NewNumericDate(time.Now().Add(time.Hour))

	expired, err := v.Sign(Identity{MemberID: "m-1"},
		jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.True(t, errors.Is(err, ErrExpiredSession))

	other, err := NewJWTVerifier("other-secret").Sign(Identity{MemberID: "m-1"}, jwt.RegisteredClaims{ExpiresAt: hour})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), other)
	assert.True(t, errors.Is(err, ErrInvalidSession))

	noSubject, err := v.Sign(Identity{}, jwt.RegisteredClaims{ExpiresAt: hour})
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.True(t, errors.Is(err, ErrInvalidSession))

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "m-1", ExpiresAt: hour},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), unsigned)
	assert.True(t, errors.Is(err, ErrInvalidSession))

	_, err = v.Verify(context.Background(), "garbage")
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestAuthServiceClient_Verify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/validate", r.URL.Path)
		assert.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		switch body["access_token"] {
		case "good":
			_ = json.NewEncoder(w).Encode(ValidateResponse{UserID: "m-7", Email: "jo@ze.gg", Roles: []string{"member"}})
		case "revoked":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewAuthServiceClient(srv.URL, "svc-token")

	id, err := c.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "m-7", id.MemberID)
	assert.Equal(t, []string{"member"}, id.Roles)

	_, err = c.Verify(context.Background(), "revoked")
	assert.True(t, errors.Is(err, ErrInvalidSession))

	_, err = c.Verify(context.Background(), "boom")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSession))
}
