// Package service orchestrates claims: creation, listing, voting, and the
// credibility-weighted consensus view.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"veritas/internal/audit"
	"veritas/internal/claim/models"
	"veritas/internal/claim/truth"
	identitymodels "veritas/internal/identity/models"
	"veritas/internal/platform/metrics"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

// ClaimStore persists claims and votes.
type ClaimStore interface {
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error)
	List(ctx context.Context) ([]*models.Claim, error)
	AppendVote(ctx context.Context, claimID id.ClaimID, vote models.Vote) (*models.Claim, error)
}

// UserDirectory resolves authors and voter credibility.
type UserDirectory interface {
	FindByID(ctx context.Context, userID id.UserID) (*identitymodels.User, error)
	FindByIDs(ctx context.Context, ids []id.UserID) (map[id.UserID]*identitymodels.User, error)
}

// AuditPublisher records claim activity.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Summary is the list view of a claim. It deliberately excludes the weighted
// percentage: browsing must not anchor voters before they commit.
type Summary struct {
	ID            id.ClaimID
	Domain        id.Domain
	Statement     string
	AuthorName    string
	AgreeCount    int
	DisagreeCount int
	VoterIDs      []id.UserID
	CreatedAt     time.Time
}

// VoterView is one vote with the voter's identity and the weight it carried.
type VoterView struct {
	VoterID    id.UserID
	VoterName  string
	VoterEmail string
	Type       models.VoteType
	Weight     float64
	CastAt     time.Time
}

// Detail is the full consensus view of a claim.
type Detail struct {
	Summary
	Votes            []VoterView
	WeightedAgree    float64
	WeightedDisagree float64
	TruthPercentage  int
	Label            truth.Label
}

// Service coordinates claim operations.
type Service struct {
	claims ClaimStore
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

func New(claims ClaimStore, users UserDirectory, opts ...Option) *Service {
	s := &Service{
		claims: claims,
		users:  users,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create files a new claim by the acting user.
func (s *Service) Create(ctx context.Context, authorID id.UserID, rawDomain, statement string) (*Summary, error) {
	d, err := id.ParseDomain(rawDomain)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown domain: "+rawDomain)
	}

	author, err := s.users.FindByID(ctx, authorID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	claim, err := models.NewClaim(id.NewClaimID(), authorID, d, statement, requestcontext.Now(ctx))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store claim")
	}

	if s.metrics != nil {
		s.metrics.ClaimsCreated.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  authorID,
		Subject: claim.ID.String(),
		Action:  string(audit.EventClaimCreated),
	})
	s.logger.InfoContext(ctx, "claim created",
		"claim_id", claim.ID,
		"author_id", authorID,
		"domain", d,
	)

	summary := summarize(claim, author.Name)
	return &summary, nil
}

// List returns all claims as summaries, newest first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	claims, err := s.claims.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list claims")
	}

	authors, err := s.resolveUsers(ctx, authorIDs(claims))
	if err != nil {
		return nil, err
	}

	out := make([]Summary, 0, len(claims))
	for _, claim := range claims {
		out = append(out, summarize(claim, nameOf(authors, claim.AuthorID)))
	}
	return out, nil
}

// Get returns the full weighted consensus view of one claim.
func (s *Service) Get(ctx context.Context, claimID id.ClaimID) (*Detail, error) {
	claim, err := s.claims.FindByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claim")
	}

	ids := append(voterIDs(claim), claim.AuthorID)
	users, err := s.resolveUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := truth.Aggregate(claim.Votes, func(voterID id.UserID) (float64, bool) {
		user, ok := users[voterID]
		if !ok {
			return 0, false
		}
		return user.Credibility.Get(claim.Domain), true
	})
	if result.Fallbacks > 0 {
		// A vote without a resolvable credibility score weighs the default;
		// it shifts consensus, so make it visible.
		s.logger.WarnContext(ctx, "votes weighted at default score",
			"claim_id", claimID,
			"fallbacks", result.Fallbacks,
		)
		if s.metrics != nil {
			s.metrics.WeightFallbacks.Add(float64(result.Fallbacks))
		}
	}

	votes := make([]VoterView, len(result.Votes))
	for i, vw := range result.Votes {
		votes[i] = VoterView{
			VoterID:    vw.Vote.VoterID,
			VoterName:  nameOf(users, vw.Vote.VoterID),
			VoterEmail: emailOf(users, vw.Vote.VoterID),
			Type:       vw.Vote.Type,
			Weight:     vw.Weight,
			CastAt:     vw.Vote.CastAt,
		}
	}

	return &Detail{
		Summary:          summarize(claim, nameOf(users, claim.AuthorID)),
		Votes:            votes,
		WeightedAgree:    result.WeightedAgree,
		WeightedDisagree: result.WeightedDisagree,
		TruthPercentage:  result.Percentage,
		Label:            result.Label,
	}, nil
}

// Vote records the acting user's position on a claim. One vote per user per
// claim; the store enforces this atomically.
func (s *Service) Vote(ctx context.Context, claimID id.ClaimID, voterID id.UserID, rawType string) (*Summary, error) {
	voteType, err := models.ParseVoteType(rawType)
	if err != nil {
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, voterID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	claim, err := s.claims.AppendVote(ctx, claimID, models.Vote{
		VoterID: voterID,
		Type:    voteType,
		CastAt:  requestcontext.Now(ctx),
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "claim not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeConflict, "you have already voted on this claim")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
		}
	}

	if s.metrics != nil {
		s.metrics.VotesCast.Inc()
	}
	s.emitAudit(ctx, audit.Event{
		UserID:  voterID,
		Subject: claimID.String(),
		Action:  string(audit.EventVoteCast),
	})
	s.logger.InfoContext(ctx, "vote cast",
		"claim_id", claimID,
		"voter_id", voterID,
		"vote", voteType,
	)

	authors, err := s.resolveUsers(ctx, []id.UserID{claim.AuthorID})
	if err != nil {
		return nil, err
	}
	summary := summarize(claim, nameOf(authors, claim.AuthorID))
	return &summary, nil
}

func (s *Service) resolveUsers(ctx context.Context, ids []id.UserID) (map[id.UserID]*identitymodels.User, error) {
	users, err := s.users.FindByIDs(ctx, dedupe(ids))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve users")
	}
	return users, nil
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

func summarize(claim *models.Claim, authorName string) Summary {
	agree, disagree := claim.Tally()
	return Summary{
		ID:            claim.ID,
		Domain:        claim.Domain,
		Statement:     claim.Statement,
		AuthorName:    authorName,
		AgreeCount:    agree,
		DisagreeCount: disagree,
		VoterIDs:      voterIDs(claim),
		CreatedAt:     claim.CreatedAt,
	}
}

func voterIDs(claim *models.Claim) []id.UserID {
	out := make([]id.UserID, len(claim.Votes))
	for i, vote := range claim.Votes {
		out[i] = vote.VoterID
	}
	return out
}

func authorIDs(claims []*models.Claim) []id.UserID {
	out := make([]id.UserID, len(claims))
	for i, claim := range claims {
		out[i] = claim.AuthorID
	}
	return out
}

func nameOf(users map[id.UserID]*identitymodels.User, userID id.UserID) string {
	if user, ok := users[userID]; ok {
		return user.Name
	}
	return ""
}

func emailOf(users map[id.UserID]*identitymodels.User, userID id.UserID) string {
	if user, ok := users[userID]; ok {
		return user.Email
	}
	return ""
}

func dedupe(ids []id.UserID) []id.UserID {
	seen := make(map[id.UserID]bool, len(ids))
	out := make([]id.UserID, 0, len(ids))
	for _, userID := range ids {
		if !seen[userID] {
			seen[userID] = true
			out = append(out, userID)
		}
	}
	return out
}
