//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"profilecheck/pkg/domain"
	audit "profilecheck/pkg/platform/audit"
	"profilecheck/pkg/platform/audit/store/postgres"
	"profilecheck/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *postgres.Store
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = postgres.New(s.pg.DB)
	s.Require().NoError(s.store.Migrate(context.Background()))
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(context.Background(), "audit_events"))
}

func (s *PostgresStoreSuite) TestAppendDerivesCategory() {
	ctx := context.Background()
	alice := domain.MustAccountID("alice.near")
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Category:  audit.CategoryOperations,
		Timestamp: base,
		AccountID: alice,
		Action:    string(audit.EventVerificationRecorded),
		Amount:    "580000000000000000000",
	}))
	s.Require().NoError(s.store.Append(ctx, audit.Event{
		Timestamp: base.Add(time.Second),
		AccountID: alice,
		ActorID:   "mallory.near",
		Action:    string(audit.EventRemovalDenied),
	}))

	events, err := s.store.ListByAccount(ctx, alice)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.CategoryCompliance, events[0].Category)
	s.Equal("580000000000000000000", events[0].Amount)
	s.Equal(audit.CategorySecurity, events[1].Category)
	s.Equal("mallory.near", events[1].ActorID)
}

func (s *PostgresStoreSuite) TestMigrateIsIdempotent() {
	s.NoError(s.store.Migrate(context.Background()))
}
