package audit

import (
	"context"
	"time"

	id "veritas/pkg/domain"
)

// EventCategory classifies audit events for retention and routing.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle and credential decisions.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity that can be sampled.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// ActorID tracks who performed the action when different from UserID,
	// e.g. the admin who approved another user's verification request.
	ActorID   id.UserID
	Subject   string
	Action    string
	RequestID string
}

type AuditEvent string

const (
	EventUserRegistered     AuditEvent = "user_registered"
	EventUserVerified       AuditEvent = "user_verified"
	EventUserLoggedIn       AuditEvent = "user_logged_in"
	EventLoginFailed        AuditEvent = "login_failed"
	EventPreferencesUpdated AuditEvent = "preferences_updated"

	EventClaimCreated AuditEvent = "claim_created"
	EventVoteCast     AuditEvent = "vote_cast"

	EventVerificationSubmitted AuditEvent = "verification_submitted"
	EventVerificationApproved  AuditEvent = "verification_approved"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserRegistered:        CategoryCompliance,
	EventUserVerified:          CategoryCompliance,
	EventVerificationSubmitted: CategoryCompliance,
	EventVerificationApproved:  CategoryCompliance,

	EventUserLoggedIn: CategorySecurity,
	EventLoginFailed:  CategorySecurity,

	EventPreferencesUpdated: CategoryOperations,
	EventClaimCreated:       CategoryOperations,
	EventVoteCast:           CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
