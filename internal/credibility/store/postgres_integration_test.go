//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/credibility/models"
	identitymodels "veritas/internal/identity/models"
	identitystore "veritas/internal/identity/store"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/testutil/containers"
)

type PostgresLedgerSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	users *identitystore.Postgres
	ctx   context.Context
}

func TestPostgresLedgerSuite(t *testing.T) {
	suite.Run(t, new(PostgresLedgerSuite))
}

func (s *PostgresLedgerSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.users = identitystore.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresLedgerSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "verification_requests", "users"))
}

func (s *PostgresLedgerSuite) seedUser(email string) id.UserID {
	user, err := identitymodels.NewUser(id.NewUserID(), "Requester", email, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user.ID
}

func (s *PostgresLedgerSuite) newRequest(userID id.UserID, createdAt time.Time) *models.VerificationRequest {
	request, err := models.NewVerificationRequest(
		id.NewRequestID(), userID, id.DomainScience, "https://example.com/proof", createdAt)
	s.Require().NoError(err)
	return request
}

func (s *PostgresLedgerSuite) TestCreateAndFind() {
	userID := s.seedUser("alice@example.com")
	request := s.newRequest(userID, time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, request))

	found, err := s.store.FindByID(s.ctx, request.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(userID, found.UserID)
	s.Nil(found.ApprovedAt)
	s.Nil(found.ApprovedBy)
}

func (s *PostgresLedgerSuite) TestListPendingNewestFirst() {
	userID := s.seedUser("alice@example.com")
	base := time.Now().UTC()
	older := s.newRequest(userID, base.Add(-time.Hour))
	newer := s.newRequest(userID, base)
	s.Require().NoError(s.store.Create(s.ctx, older))
	s.Require().NoError(s.store.Create(s.ctx, newer))

	pending, err := s.store.ListPending(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(pending, 2)
	s.Equal(newer.ID, pending[0].ID)
}

func (s *PostgresLedgerSuite) TestApproveIsIdempotentGate() {
	userID := s.seedUser("alice@example.com")
	admin := s.seedUser("admin@example.com")
	request := s.newRequest(userID, time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, request))

	approved, err := s.store.Approve(s.ctx, request.ID, admin, time.Now().UTC())
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, approved.Status)
	s.Require().NotNil(approved.ApprovedBy)
	s.Equal(admin, *approved.ApprovedBy)

	_, err = s.store.Approve(s.ctx, request.ID, admin, time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *PostgresLedgerSuite) TestApproveUnknownRequest() {
	_, err := s.store.Approve(s.ctx, id.NewRequestID(), id.NewUserID(), time.Now().UTC())
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// Two admins racing on the same request: exactly one wins the conditional
// UPDATE, the other observes ErrAlreadyUsed.
func (s *PostgresLedgerSuite) TestConcurrentApproveSingleWinner() {
	userID := s.seedUser("alice@example.com")
	admin := s.seedUser("admin@example.com")
	request := s.newRequest(userID, time.Now().UTC())
	s.Require().NoError(s.store.Create(s.ctx, request))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Approve(s.ctx, request.ID, admin, time.Now().UTC())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				conflicts++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(3, conflicts)
}
