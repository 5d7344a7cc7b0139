// Package service orchestrates the verification request ledger: submission,
// admin review, and the credibility increment that follows approval.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Ledger,UserDirectory,AuditPublisher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"veritas/internal/audit"
	"veritas/internal/credibility/models"
	identitymodels "veritas/internal/identity/models"
	"veritas/internal/platform/metrics"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

// Ledger persists verification requests.
type Ledger interface {
	Create(ctx context.Context, request *models.VerificationRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.VerificationRequest, error)
	ListPending(ctx context.Context) ([]*models.VerificationRequest, error)
	Approve(ctx context.Context, requestID id.RequestID, approver id.UserID, now time.Time) (*models.VerificationRequest, error)
}

// UserDirectory is the slice of the identity store this service needs.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*identitymodels.User, error)
	IncrementCredibility(ctx context.Context, userID id.UserID, d id.Domain, step float64) (float64, error)
}

// AuditPublisher records review actions.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// PendingRequest is the admin review projection: the raw request enriched
// with who asked and where their score in that domain currently stands.
type PendingRequest struct {
	Request        *models.VerificationRequest
	RequesterName  string
	RequesterEmail string
	CurrentScore   float64
}

// Service coordinates verification request review.
type Service struct {
	ledger Ledger
	users  UserDirectory

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(ledger Ledger, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		ledger: ledger,
		users:  users,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit files a verification request. Multiple pending requests per user
// and domain are allowed; each approval is a separate +0.2 step.
func (s *Service) Submit(ctx context.Context, userID id.UserID, rawDomain, proofLink string) (*models.VerificationRequest, error) {
	d, err := id.ParseDomain(rawDomain)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown domain: "+rawDomain)
	}
	proofLink = strings.TrimSpace(proofLink)
	if proofLink == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "proof link is required")
	}
	if !strings.HasPrefix(proofLink, "https://") && !strings.HasPrefix(proofLink, "http://") {
		return nil, dErrors.New(dErrors.CodeValidation, "proof link must be a URL")
	}

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	request, err := models.NewVerificationRequest(id.NewRequestID(), userID, d, proofLink, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}
	if err := s.ledger.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store verification request")
	}

	if s.metrics != nil {
		s.metrics.VerificationsSubmitted.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  userID,
		Subject: request.ID.String(),
		Action:  string(audit.EventVerificationSubmitted),
	})
	s.logger.InfoContext(ctx, "verification request submitted",
		"request_id", request.ID,
		"user_id", userID,
		"domain", d,
	)
	return request, nil
}

// ListPending returns the review queue, newest first, with requester details
// resolved in one batch.
func (s *Service) ListPending(ctx context.Context) ([]PendingRequest, error) {
	requests, err := s.ledger.ListPending(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list verification requests")
	}

	ids := make([]id.UserID, 0, len(requests))
	seen := make(map[id.UserID]bool, len(requests))
	for _, request := range requests {
		if !seen[request.UserID] {
			seen[request.UserID] = true
			ids = append(ids, request.UserID)
		}
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve requesters")
	}

	out := make([]PendingRequest, 0, len(requests))
	for _, request := range requests {
		pending := PendingRequest{Request: request, CurrentScore: identitymodels.DefaultScore}
		if user, ok := users[request.UserID]; ok {
			pending.RequesterName = user.Name
			pending.RequesterEmail = user.Email
			pending.CurrentScore = user.Credibility.Get(request.Domain)
		}
		out = append(out, pending)
	}
	return out, nil
}

// Approve transitions a request to approved and applies exactly one +0.2
// credibility step to the requester's domain score. The ledger's test-and-set
// makes the whole operation idempotent: a repeat approval gets a conflict and
// never a second increment.
func (s *Service) Approve(ctx context.Context, requestID id.RequestID, approver id.UserID) (*identitymodels.User, error) {
	request, err := s.ledger.Approve(ctx, requestID, approver, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "verification request not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "verification request already approved")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve verification request")
		}
	}

	score, err := s.users.IncrementCredibility(ctx, request.UserID, request.Domain, identitymodels.VerificationStep)
	if err != nil {
		// The approval is recorded but the increment failed; surface loudly,
		// this needs operator attention.
		s.logger.ErrorContext(ctx, "approved request but credibility increment failed",
			"request_id", requestID,
			"user_id", request.UserID,
			"domain", request.Domain,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to apply credibility increment")
	}

	if s.metrics != nil {
		s.metrics.VerificationsApproved.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  request.UserID,
		ActorID: approver,
		Subject: request.ID.String(),
		Action:  string(audit.EventVerificationApproved),
	})
	s.logger.InfoContext(ctx, "verification request approved",
		"request_id", requestID,
		"user_id", request.UserID,
		"domain", request.Domain,
		"new_score", score,
	)

	user, err := s.users.FindByID(ctx, request.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload account")
	}
	return user, nil
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"error", err,
		)
	}
}
