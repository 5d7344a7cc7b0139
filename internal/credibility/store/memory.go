// Package store persists verification requests.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"veritas/internal/credibility/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// InMemory keeps verification requests in process memory.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.VerificationRequest
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]*models.VerificationRequest)}
}

func (s *InMemory) Create(_ context.Context, request *models.VerificationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[request.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[request.ID] = cloneRequest(request)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if request, ok := s.requests[requestID]; ok {
		return cloneRequest(request), nil
	}
	return nil, sentinel.ErrNotFound
}

// ListPending returns pending requests, newest first.
func (s *InMemory) ListPending(_ context.Context) ([]*models.VerificationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.VerificationRequest
	for _, request := range s.requests {
		if request.IsPending() {
			out = append(out, cloneRequest(request))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Approve performs the pending→approved transition as a test-and-set under
// the write lock. A request that is already approved yields ErrAlreadyUsed
// so a second approval can never double-apply the credibility step.
func (s *InMemory) Approve(_ context.Context, requestID id.RequestID, approver id.UserID, now time.Time) (*models.VerificationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !request.IsPending() {
		return nil, sentinel.ErrAlreadyUsed
	}
	request.ApplyApproval(approver, now)
	return cloneRequest(request), nil
}

func cloneRequest(r *models.VerificationRequest) *models.VerificationRequest {
	cp := *r
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		cp.ApprovedAt = &at
	}
	if r.ApprovedBy != nil {
		by := *r.ApprovedBy
		cp.ApprovedBy = &by
	}
	return &cp
}
