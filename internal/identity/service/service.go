// Package service orchestrates account registration, authentication, and
// profile management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"veritas/internal/audit"
	"veritas/internal/identity/mailer"
	"veritas/internal/identity/models"
	"veritas/internal/identity/otp"
	"veritas/internal/identity/secrets"
	"veritas/internal/platform/metrics"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/email"
	"veritas/pkg/platform/sentinel"
	"veritas/pkg/requestcontext"
)

// UserStore persists accounts and their credibility profiles.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	MarkVerified(ctx context.Context, userID id.UserID, passwordHash string) error
	SavePreferences(ctx context.Context, userID id.UserID, interests []id.Domain, linkedin string) error
}

// TokenIssuer mints signed access tokens.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role string, expiresIn time.Duration) (string, error)
}

// AuditPublisher records significant account actions.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service coordinates the registration and login flows.
type Service struct {
	users    UserStore
	codes    otp.CodeStore
	sender   mailer.Sender
	tokens   TokenIssuer
	tokenTTL time.Duration
	otpTTL   time.Duration

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

func New(users UserStore, codes otp.CodeStore, sender mailer.Sender, tokens TokenIssuer,
	tokenTTL, otpTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:    users,
		codes:    codes,
		sender:   sender,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		otpTTL:   otpTTL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RequestOTP begins registration: it creates an unverified account if the
// email is new and delivers a one-time code. An already-verified account gets
// a conflict so callers are pointed at login instead.
func (s *Service) RequestOTP(ctx context.Context, name, address string) error {
	address = email.Normalize(address)
	if address == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = email.DeriveDisplayName(address)
	}

	user, err := s.users.FindByEmail(ctx, address)
	switch {
	case err == nil:
		if user.Verified {
			return dErrors.New(dErrors.CodeConflict, "account already exists")
		}
		// Unverified account from an earlier attempt: reissue the code.
	case errors.Is(err, sentinel.ErrNotFound):
		user, err = models.NewUser(id.NewUserID(), name, address, requestcontext.Now(ctx))
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "account already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create account")
		}
		s.emitAudit(ctx, audit.Event{UserID: user.ID, Action: string(audit.EventUserRegistered)})
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	if err := s.codes.Save(ctx, address, code, s.otpTTL); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store verification code")
	}
	if err := s.sender.SendOTP(ctx, address, code); err != nil {
		if s.metrics != nil {
			s.metrics.OTPSendFailures.Inc()
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to deliver verification code")
	}

	s.logger.InfoContext(ctx, "otp requested", "user_id", user.ID)
	return nil
}

// VerifyOTP completes registration: it checks the pending code, sets the
// password, marks the account verified, and returns an access token.
func (s *Service) VerifyOTP(ctx context.Context, address, code, password string) (*models.User, string, error) {
	address = email.Normalize(address)
	if address == "" || code == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "email and code are required")
	}
	if len(password) < 8 {
		return nil, "", dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}

	stored, err := s.codes.Consume(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check verification code")
	}
	if stored != code {
		// The pending code is already consumed; a retry needs a fresh one.
		return nil, "", dErrors.New(dErrors.CodeUnauthorized, "invalid or expired code")
	}

	user, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}

	hash, err := secrets.Hash(password)
	if err != nil {
		return nil, "", err
	}
	if err := s.users.MarkVerified(ctx, user.ID, hash); err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify account")
	}
	user.Verified = true
	user.PasswordHash = hash

	token, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.metrics != nil {
		s.metrics.UsersRegistered.Inc()
	}
	s.emitAudit(ctx, audit.Event{UserID: user.ID, Action: string(audit.EventUserVerified)})
	s.logger.InfoContext(ctx, "account verified", "user_id", user.ID)
	return user, token, nil
}

// Login authenticates a verified account and returns an access token.
// Unknown emails, unverified accounts, and bad passwords all collapse into
// the same unauthorized response so the endpoint cannot be used to probe for
// registered addresses.
func (s *Service) Login(ctx context.Context, address, password string) (*models.User, string, error) {
	address = email.Normalize(address)
	if address == "" || password == "" {
		return nil, "", dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, "", s.failLogin(ctx, address)
		}
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up account")
	}
	if !user.Verified {
		return nil, "", s.failLogin(ctx, address)
	}
	if err := secrets.Verify(password, user.PasswordHash); err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			return nil, "", s.failLogin(ctx, address)
		}
		return nil, "", err
	}

	token, err := s.tokens.GenerateAccessToken(user.ID, string(user.Role), s.tokenTTL)
	if err != nil {
		return nil, "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.emitAudit(ctx, audit.Event{UserID: user.ID, Action: string(audit.EventUserLoggedIn)})
	return user, token, nil
}

func (s *Service) failLogin(ctx context.Context, address string) error {
	s.emitAudit(ctx, audit.Event{Subject: address, Action: string(audit.EventLoginFailed)})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// Profile returns the account including its credibility vector.
func (s *Service) Profile(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return user, nil
}

// SavePreferences stores the interest domains and optional LinkedIn URL.
func (s *Service) SavePreferences(ctx context.Context, userID id.UserID, rawInterests []string, linkedin string) error {
	interests := make([]id.Domain, 0, len(rawInterests))
	for _, raw := range rawInterests {
		d, err := id.ParseDomain(raw)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "unknown domain: "+raw)
		}
		interests = append(interests, d)
	}

	linkedin = strings.TrimSpace(linkedin)
	if linkedin != "" && !strings.HasPrefix(linkedin, "https://") {
		return dErrors.New(dErrors.CodeValidation, "linkedin url must use https")
	}

	if err := s.users.SavePreferences(ctx, userID, interests, linkedin); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save preferences")
	}

	s.emitAudit(ctx, audit.Event{UserID: userID, Action: string(audit.EventPreferencesUpdated)})
	return nil
}

// ResolveRole reports the current role for an account. Admin checks go
// through here rather than trusting the role baked into an old token.
func (s *Service) ResolveRole(ctx context.Context, userID id.UserID) (string, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return "", dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}
	return string(user.Role), nil
}

// SeedAdmin provisions the bootstrap admin account on startup. It is
// idempotent: an existing account with the email is left untouched.
func (s *Service) SeedAdmin(ctx context.Context, name, address, password string) error {
	address = email.Normalize(address)
	if address == "" || password == "" {
		return nil
	}

	if _, err := s.users.FindByEmail(ctx, address); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up admin account")
	}

	user, err := models.NewUser(id.NewUserID(), name, address, requestcontext.Now(ctx))
	if err != nil {
		return err
	}
	user.Role = models.RoleAdmin
	user.Verified = true
	user.PasswordHash, err = secrets.Hash(password)
	if err != nil {
		return err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to seed admin account")
	}

	s.logger.InfoContext(ctx, "admin account seeded", "user_id", user.ID)
	return nil
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
