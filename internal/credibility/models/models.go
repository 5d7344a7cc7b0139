// Package models defines the verification request ledger entries.
package models

import (
	"strings"
	"time"

	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// Status is the lifecycle state of a verification request. There are exactly
// two states; a request never leaves approved.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// VerificationRequest records a user's claim of expertise in one domain,
// backed by a proof link, awaiting admin review.
type VerificationRequest struct {
	ID         id.RequestID
	UserID     id.UserID
	Domain     id.Domain
	ProofLink  string
	Status     Status
	CreatedAt  time.Time
	ApprovedAt *time.Time
	ApprovedBy *id.UserID
}

// NewVerificationRequest constructs a pending request.
func NewVerificationRequest(requestID id.RequestID, userID id.UserID, d id.Domain, proofLink string, now time.Time) (*VerificationRequest, error) {
	if !d.Valid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown domain")
	}
	proofLink = strings.TrimSpace(proofLink)
	if proofLink == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "proof link cannot be empty")
	}
	return &VerificationRequest{
		ID:        requestID,
		UserID:    userID,
		Domain:    d,
		ProofLink: proofLink,
		Status:    StatusPending,
		CreatedAt: now,
	}, nil
}

// IsPending reports whether the request still awaits review.
func (r *VerificationRequest) IsPending() bool {
	return r.Status == StatusPending
}

// ApplyApproval transitions the request to approved. Callers must have
// already established the request is pending; stores enforce this atomically.
func (r *VerificationRequest) ApplyApproval(approver id.UserID, now time.Time) {
	r.Status = StatusApproved
	r.ApprovedAt = &now
	r.ApprovedBy = &approver
}
