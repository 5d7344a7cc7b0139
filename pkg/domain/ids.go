package domain

import (
	"github.com/google/uuid"

	dErrors "veritas/pkg/domain-errors"
)

// Typed IDs prevent cross-entity assignment at compile time. Parse functions
// enforce the trust-boundary invariant: IDs must be valid, non-nil UUIDs.
type (
	UserID    uuid.UUID
	ClaimID   uuid.UUID
	RequestID uuid.UUID
)

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewClaimID() ClaimID     { return ClaimID(uuid.New()) }
func NewRequestID() RequestID { return RequestID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id ClaimID) String() string   { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ClaimID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func parseUUID(s string) (uuid.UUID, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "malformed id")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "nil id")
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	return UserID(u), err
}

func ParseClaimID(s string) (ClaimID, error) {
	u, err := parseUUID(s)
	return ClaimID(u), err
}

func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s)
	return RequestID(u), err
}

func (id UserID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ClaimID) MarshalText() ([]byte, error)   { return []byte(id.String()), nil }
func (id RequestID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *UserID) UnmarshalText(b []byte) error {
	parsed, err := ParseUserID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ClaimID) UnmarshalText(b []byte) error {
	parsed, err := ParseClaimID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *RequestID) UnmarshalText(b []byte) error {
	parsed, err := ParseRequestID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
