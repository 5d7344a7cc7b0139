// Package models defines claims and their append-only vote records.
package models

import (
	"strings"
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// VoteType is a voter's position on a claim.
type VoteType string

const (
	VoteAgree    VoteType = "agree"
	VoteDisagree VoteType = "disagree"
)

// ParseVoteType validates a raw vote type.
func ParseVoteType(raw string) (VoteType, error) {
	switch VoteType(strings.ToLower(strings.TrimSpace(raw))) {
	case VoteAgree:
		return VoteAgree, nil
	case VoteDisagree:
		return VoteDisagree, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "vote type must be agree or disagree")
	}
}

// Vote is one voter's immutable position on a claim. Votes are append-only:
// there is no update or delete, a voter's first word is final.
type Vote struct {
	VoterID id.UserID
	Type    VoteType
	CastAt  time.Time
}

// Claim is a statement filed under a knowledge domain, accumulating votes.
type Claim struct {
	ID        id.ClaimID
	AuthorID  id.UserID
	Domain    id.Domain
	Statement string
	Votes     []Vote
	CreatedAt time.Time
}

const maxStatementLength = 1000

// NewClaim constructs a claim with no votes.
func NewClaim(claimID id.ClaimID, authorID id.UserID, d id.Domain, statement string, now time.Time) (*Claim, error) {
	if !d.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown domain")
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "statement cannot be empty")
	}
	if len(statement) > maxStatementLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "statement is too long")
	}
	return &Claim{
		ID:        claimID,
		AuthorID:  authorID,
		Domain:    d,
		Statement: statement,
		CreatedAt: now,
	}, nil
}

// HasVoted reports whether the voter already cast a vote on this claim.
func (c *Claim) HasVoted(voterID id.UserID) bool {
	for _, vote := range c.Votes {
		if vote.VoterID == voterID {
			return true
		}
	}
	return false
}

// Tally counts raw votes by type.
func (c *Claim) Tally() (agree, disagree int) {
	for _, vote := range c.Votes {
		switch vote.Type {
		case VoteAgree:
			agree++
		case VoteDisagree:
			disagree++
		}
	}
	return agree, disagree
}
