package models

import (
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// Role distinguishes regular accounts from the admin reviewers who approve
// credential verification requests.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Credibility scoring rule. A newly created account scores DefaultScore in
// every domain; each approved verification raises exactly one domain by
// VerificationStep, clamped at MaxScore. There is no decrement: a verified
// credential never reduces standing.
const (
	DefaultScore     = 0.3
	VerificationStep = 0.2
	MaxScore         = 1.0
)

// Vector is the per-user credibility profile, keyed by knowledge domain.
// Keying by Domain value (never by raw index) is deliberate: it makes drift
// between the domain list and the score positions unrepresentable.
type Vector map[id.Domain]float64

// NewVector returns a full profile at the default score.
func NewVector() Vector {
	v := make(Vector, id.NumDomains)
	for _, d := range id.Domains() {
		v[d] = DefaultScore
	}
	return v
}

// Get returns the score for a domain, falling back to the default for a
// missing entry so a sparse or legacy profile still weighs votes.
func (v Vector) Get(d id.Domain) float64 {
	if v == nil {
		return DefaultScore
	}
	if score, ok := v[d]; ok {
		return score
	}
	return DefaultScore
}

// Profile serializes the vector as 8 floats in canonical domain order. This
// is the only place ordering matters; it is the wire format for clients.
func (v Vector) Profile() []float64 {
	out := make([]float64, id.NumDomains)
	for _, d := range id.Domains() {
		out[d.Index()] = v.Get(d)
	}
	return out
}

// Clone returns an independent copy so stores can hand out snapshots.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for d, score := range v {
		out[d] = score
	}
	return out
}

// User is the account aggregate.
//
// Invariants:
//   - Email is unique (case-insensitive) and immutable after creation
//   - Every credibility component stays within [0, MaxScore] at all times
//   - Verified flips to true exactly once, on successful OTP confirmation
type User struct {
	ID           id.UserID
	Name         string
	Email        string
	PasswordHash string
	Verified     bool
	Role         Role
	LinkedIn     string
	Interests    []id.Domain
	Credibility  Vector
	CreatedAt    time.Time
}

// NewUser constructs an unverified account with a default credibility profile.
func NewUser(userID id.UserID, name, email string, now time.Time) (*User, error) {
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "name cannot be empty")
	}
	return &User{
		ID:          userID,
		Name:        name,
		Email:       email,
		Verified:    false,
		Role:        RoleUser,
		Credibility: NewVector(),
		CreatedAt:   now,
	}, nil
}

// IsAdmin reports whether the account may perform admin actions.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
