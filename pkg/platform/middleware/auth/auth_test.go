package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"profilecheck/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

type stubRevocations struct {
	revoked bool
	err     error
}

func (s stubRevocations) IsTokenRevoked(context.Context, string) (bool, error) {
	return s.revoked, s.err
}

func serve(t *testing.T, v JWTValidator, rc TokenRevocationChecker, header string) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	var seen *http.Request
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodPost, "/v1/verifications", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	RequireAuth(v, rc, logger)(next).ServeHTTP(rec, req)
	return rec, seen
}

func TestRequireAuthStoresAccountAndSigner(t *testing.T) {
	v := stubValidator{claims: &JWTClaims{AccountID: "alice.near", SignerID: "ops.near", JTI: "j1"}}
	rec, seen := serve(t, v, stubRevocations{}, "Bearer tok")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice.near", requestcontext.AccountID(seen.Context()).String())
	assert.Equal(t, "ops.near", requestcontext.SignerID(seen.Context()).String())
}

func TestRequireAuthStoresTokenIDAndExpiry(t *testing.T) {
	exp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	v := stubValidator{claims: &JWTClaims{AccountID: "alice.near", JTI: "j1", ExpiresAt: exp}}
	rec, seen := serve(t, v, stubRevocations{}, "Bearer tok")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "j1", requestcontext.TokenID(seen.Context()))
	assert.Equal(t, exp, requestcontext.TokenExpiry(seen.Context()))
}

func TestRequireAuthSignerDefaultsToAccount(t *testing.T) {
	v := stubValidator{claims: &JWTClaims{AccountID: "alice.testnet"}}
	rec, seen := serve(t, v, nil, "Bearer tok")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "alice.testnet", requestcontext.SignerID(seen.Context()).String())
}

func TestRequireAuthRejections(t *testing.T) {
	valid := &JWTClaims{AccountID: "alice.near", JTI: "j1"}
	cases := []struct {
		name   string
		v      JWTValidator
		rc     TokenRevocationChecker
		header string
		status int
	}{
		{"missing header", stubValidator{claims: valid}, nil, "", http.StatusUnauthorized},
		{"wrong scheme", stubValidator{claims: valid}, nil, "Basic abc", http.StatusUnauthorized},
		{"invalid token", stubValidator{err: errors.New("bad")}, nil, "Bearer tok", http.StatusUnauthorized},
		{"invalid subject", stubValidator{claims: &JWTClaims{AccountID: "Not An Account"}}, nil, "Bearer tok", http.StatusUnauthorized},
		{"missing jti", stubValidator{claims: &JWTClaims{AccountID: "alice.near"}}, stubRevocations{}, "Bearer tok", http.StatusUnauthorized},
		{"revoked", stubValidator{claims: valid}, stubRevocations{revoked: true}, "Bearer tok", http.StatusUnauthorized},
		{"revocation lookup fails", stubValidator{claims: valid}, stubRevocations{err: errors.New("down")}, "Bearer tok", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, seen := serve(t, tc.v, tc.rc, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.Nil(t, seen)
			assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
		})
	}
}
