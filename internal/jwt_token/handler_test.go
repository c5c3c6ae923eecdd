package jwttoken

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	authmw "profilecheck/pkg/platform/middleware/auth"
	request "profilecheck/pkg/platform/middleware/request"
	"profilecheck/pkg/testutil"
)

type TokenHandlerSuite struct {
	suite.Suite
	router      chi.Router
	revocations *MemoryRevocationList
}

func TestTokenHandlerSuite(t *testing.T) {
	suite.Run(t, new(TokenHandlerSuite))
}

func (s *TokenHandlerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.revocations = NewMemoryRevocationList()
	requireAuth := authmw.RequireAuth(NewJWTServiceAdapter(jwtService), s.revocations, logger)

	s.router = chi.NewRouter()
	s.router.Use(request.RequestID)
	NewHandler(s.revocations, logger, requireAuth).Register(s.router)
	s.router.With(requireAuth).Get("/whoami", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func (s *TokenHandlerSuite) revoke(token string) int {
	req := testutil.WithBearer(testutil.NewRequestWithBody(s.T(), http.MethodDelete, "/v1/tokens/current", ""), token)
	return testutil.DoRequest(s.router, req).Code
}

func (s *TokenHandlerSuite) TestRevokeCurrentToken() {
	token, err := jwtService.GenerateAccessToken(account, signer, time.Hour)
	s.Require().NoError(err)
	claims, err := jwtService.ValidateToken(token)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, s.revoke(token))

	revoked, err := s.revocations.IsTokenRevoked(context.Background(), claims.ID)
	s.Require().NoError(err)
	s.True(revoked)

	req := testutil.WithBearer(testutil.NewRequestWithBody(s.T(), http.MethodGet, "/whoami", ""), token)
	rr := testutil.DoRequest(s.router, req)
	errResp := testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	s.Equal("Token has been revoked", errResp.ErrorDescription)
}

func (s *TokenHandlerSuite) TestRevokeLeavesOtherTokensValid() {
	first, err := jwtService.GenerateAccessToken(account, "", time.Hour)
	s.Require().NoError(err)
	second, err := jwtService.GenerateAccessToken(account, "", time.Hour)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, s.revoke(first))

	req := testutil.WithBearer(testutil.NewRequestWithBody(s.T(), http.MethodGet, "/whoami", ""), second)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusOK)
}

func (s *TokenHandlerSuite) TestRevokeRequiresToken() {
	rr := testutil.DoRequest(s.router, testutil.NewRequestWithBody(s.T(), http.MethodDelete, "/v1/tokens/current", ""))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *TokenHandlerSuite) TestRevokeTwiceIsRejected() {
	token, err := jwtService.GenerateAccessToken(account, "", time.Hour)
	s.Require().NoError(err)

	s.Equal(http.StatusNoContent, s.revoke(token))
	s.Equal(http.StatusUnauthorized, s.revoke(token))
}
