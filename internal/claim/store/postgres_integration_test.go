//go:build integration

package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/claim/models"
	identitymodels "veritas/internal/identity/models"
	identitystore "veritas/internal/identity/store"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/testutil/containers"
)

type PostgresClaimStoreSuite struct {
	suite.Suite
	pg    *containers.PostgresContainer
	store *Postgres
	users *identitystore.Postgres
	ctx   context.Context
}

func TestPostgresClaimStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresClaimStoreSuite))
}

func (s *PostgresClaimStoreSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.store = NewPostgres(s.pg.DB)
	s.users = identitystore.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresClaimStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "claims", "claim_votes", "users"))
}

func (s *PostgresClaimStoreSuite) seedUser(email string) id.UserID {
	user, err := identitymodels.NewUser(id.NewUserID(), "Voter", email, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.users.Create(s.ctx, user))
	return user.ID
}

func (s *PostgresClaimStoreSuite) seedClaim(authorID id.UserID) *models.Claim {
	claim, err := models.NewClaim(
		id.NewClaimID(), authorID, id.DomainScience, "The earth orbits the sun", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, claim))
	return claim
}

func (s *PostgresClaimStoreSuite) TestCreateAndFind() {
	author := s.seedUser("author@example.com")
	claim := s.seedClaim(author)

	found, err := s.store.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Equal(claim.Statement, found.Statement)
	s.Equal(author, found.AuthorID)
	s.Empty(found.Votes)
}

func (s *PostgresClaimStoreSuite) TestListNewestFirst() {
	author := s.seedUser("author@example.com")
	first := s.seedClaim(author)
	time.Sleep(10 * time.Millisecond)
	second := s.seedClaim(author)

	claims, err := s.store.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(claims, 2)
	s.Equal(second.ID, claims[0].ID)
	s.Equal(first.ID, claims[1].ID)
}

func (s *PostgresClaimStoreSuite) TestAppendVoteAndDuplicate() {
	author := s.seedUser("author@example.com")
	voter := s.seedUser("voter@example.com")
	claim := s.seedClaim(author)

	updated, err := s.store.AppendVote(s.ctx, claim.ID, models.Vote{
		VoterID: voter, Type: models.VoteAgree, CastAt: time.Now().UTC(),
	})
	s.Require().NoError(err)
	s.Require().Len(updated.Votes, 1)

	_, err = s.store.AppendVote(s.ctx, claim.ID, models.Vote{
		VoterID: voter, Type: models.VoteDisagree, CastAt: time.Now().UTC(),
	})
	s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Votes, 1)
	s.Equal(models.VoteAgree, found.Votes[0].Type)
}

func (s *PostgresClaimStoreSuite) TestAppendVoteUnknownClaim() {
	voter := s.seedUser("voter@example.com")

	_, err := s.store.AppendVote(s.ctx, id.NewClaimID(), models.Vote{
		VoterID: voter, Type: models.VoteAgree, CastAt: time.Now().UTC(),
	})
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// The primary key makes the duplicate check race-free: of N racing votes by
// one voter exactly one lands.
func (s *PostgresClaimStoreSuite) TestConcurrentVotesSingleWinner() {
	author := s.seedUser("author@example.com")
	voter := s.seedUser("voter@example.com")
	claim := s.seedClaim(author)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, duplicates := 0, 0
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.AppendVote(s.ctx, claim.ID, models.Vote{
				VoterID: voter, Type: models.VoteAgree, CastAt: time.Now().UTC(),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, sentinel.ErrAlreadyUsed):
				duplicates++
			}
		}()
	}
	wg.Wait()

	s.Equal(1, wins)
	s.Equal(3, duplicates)

	found, err := s.store.FindByID(s.ctx, claim.ID)
	s.Require().NoError(err)
	s.Len(found.Votes, 1)
}
