package store

import (
	"context"
	"strings"
	"sync"

	"veritas/internal/identity/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

// InMemory keeps users in process memory. It favors clarity over performance
// and backs unit tests and dependency-free development runs.
type InMemory struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func NewInMemory() *InMemory {
	return &InMemory{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return sentinel.ErrConflict
	}
	s.users[user.ID] = cloneUser(user)
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if user, ok := s.users[userID]; ok {
		return cloneUser(user), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if userID, ok := s.byEmail[strings.ToLower(email)]; ok {
		return cloneUser(s.users[userID]), nil
	}
	return nil, sentinel.ErrNotFound
}

// FindByIDs resolves a batch of users; unknown ids are simply absent from the
// result, the caller decides whether that is an error.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.UserID) (map[id.UserID]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[id.UserID]*models.User, len(ids))
	for _, userID := range ids {
		if user, ok := s.users[userID]; ok {
			out[userID] = cloneUser(user)
		}
	}
	return out, nil
}

// MarkVerified records a completed OTP registration: sets the password hash
// and flips the verified flag.
func (s *InMemory) MarkVerified(_ context.Context, userID id.UserID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.PasswordHash = passwordHash
	user.Verified = true
	return nil
}

func (s *InMemory) SavePreferences(_ context.Context, userID id.UserID, interests []id.Domain, linkedin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	user.Interests = append([]id.Domain(nil), interests...)
	user.LinkedIn = linkedin
	return nil
}

// IncrementCredibility raises one domain score by step, clamped at MaxScore,
// and returns the new value. The mutation happens under the write lock and
// touches only the addressed domain, so concurrent approvals on different
// domains of the same user never lose updates.
func (s *InMemory) IncrementCredibility(_ context.Context, userID id.UserID, d id.Domain, step float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	next := user.Credibility.Get(d) + step
	if next > models.MaxScore {
		next = models.MaxScore
	}
	user.Credibility[d] = next
	return next, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

func cloneUser(u *models.User) *models.User {
	cp := *u
	cp.Credibility = u.Credibility.Clone()
	cp.Interests = append([]id.Domain(nil), u.Interests...)
	return &cp
}
