// Package store persists claims and their votes.
package store

import (
	"context"
	"sort"
	"sync"

	"veritas/internal/claim/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// InMemory keeps claims in process memory.
type InMemory struct {
	mu     sync.RWMutex
	claims map[id.ClaimID]*models.Claim
}

func NewInMemory() *InMemory {
	return &InMemory{claims: make(map[id.ClaimID]*models.Claim)}
}

func (s *InMemory) Create(_ context.Context, claim *models.Claim) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.claims[claim.ID]; exists {
		return sentinel.ErrConflict
	}
	s.claims[claim.ID] = cloneClaim(claim)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, claimID id.ClaimID) (*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if claim, ok := s.claims[claimID]; ok {
		return cloneClaim(claim), nil
	}
	return nil, sentinel.ErrNotFound
}

// List returns all claims, newest first.
func (s *InMemory) List(_ context.Context) ([]*models.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Claim, 0, len(s.claims))
	for _, claim := range s.claims {
		out = append(out, cloneClaim(claim))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// AppendVote records a vote. The duplicate check and the append happen under
// one write lock so two racing votes from the same voter cannot both land.
func (s *InMemory) AppendVote(_ context.Context, claimID id.ClaimID, vote models.Vote) (*models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	claim, ok := s.claims[claimID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if claim.HasVoted(vote.VoterID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	claim.Votes = append(claim.Votes, vote)
	return cloneClaim(claim), nil
}

func cloneClaim(c *models.Claim) *models.Claim {
	cp := *c
	cp.Votes = append([]models.Vote(nil), c.Votes...)
	return &cp
}
