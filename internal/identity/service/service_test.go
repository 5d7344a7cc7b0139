package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/audit"
	"veritas/internal/identity/models"
	"veritas/internal/identity/otp"
	"veritas/internal/identity/store"
	"veritas/internal/jwttoken"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

// capturingSender records issued codes instead of sending mail.
type capturingSender struct {
	lastTo   string
	lastCode string
	fail     bool
}

func (s *capturingSender) SendOTP(_ context.Context, to, code string) error {
	if s.fail {
		return dErrors.New(dErrors.CodeUnavailable, "relay down")
	}
	s.lastTo = to
	s.lastCode = code
	return nil
}

type IdentityServiceSuite struct {
	suite.Suite
	users      *store.InMemory
	codes      *otp.MemoryStore
	sender     *capturingSender
	auditStore *audit.MemoryStore
	svc        *Service
	ctx        context.Context
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.users = store.NewInMemory()
	s.codes = otp.NewMemoryStore()
	s.sender = &capturingSender{}
	s.auditStore = audit.NewMemoryStore()
	s.svc = New(
		s.users,
		s.codes,
		s.sender,
		jwttoken.New("test-key", "veritas", "veritas-api"),
		time.Hour,
		5*time.Minute,
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
	)
	s.ctx = context.Background()
}

func (s *IdentityServiceSuite) register(email, password string) *models.User {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Test User", email))
	user, _, err := s.svc.VerifyOTP(s.ctx, email, s.sender.lastCode, password)
	s.Require().NoError(err)
	return user
}

func (s *IdentityServiceSuite) TestRequestOTPCreatesUnverifiedAccount() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	s.Equal("alice@example.com", s.sender.lastTo)
	s.Len(s.sender.lastCode, otp.CodeLength)

	user, err := s.users.FindByEmail(s.ctx, "alice@example.com")
	s.Require().NoError(err)
	s.False(user.Verified)
	s.Equal(models.RoleUser, user.Role)
}

func (s *IdentityServiceSuite) TestRequestOTPDerivesNameFromEmail() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "", "jane.doe@example.com"))

	user, err := s.users.FindByEmail(s.ctx, "jane.doe@example.com")
	s.Require().NoError(err)
	s.Equal("Jane Doe", user.Name)
}

func (s *IdentityServiceSuite) TestRequestOTPRejectsVerifiedAccount() {
	s.register("alice@example.com", "password123")

	err := s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestRequestOTPReissuesForUnverifiedAccount() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	// The reissued code is pending; the account was not duplicated.
	_, _, err := s.svc.VerifyOTP(s.ctx, "alice@example.com", s.sender.lastCode, "password123")
	s.Require().NoError(err)
	n, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *IdentityServiceSuite) TestRequestOTPSendFailure() {
	s.sender.fail = true
	err := s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *IdentityServiceSuite) TestVerifyOTPIssuesToken() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	user, token, err := s.svc.VerifyOTP(s.ctx, "alice@example.com", s.sender.lastCode, "password123")
	s.Require().NoError(err)
	s.True(user.Verified)
	s.NotEmpty(token)

	events, err := s.auditStore.ListByUser(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(string(audit.EventUserRegistered), events[0].Action)
	s.Equal(string(audit.EventUserVerified), events[1].Action)
}

func (s *IdentityServiceSuite) TestVerifyOTPRejectsWrongCode() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	_, _, err := s.svc.VerifyOTP(s.ctx, "alice@example.com", "000000", "password123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	// The code was consumed by the failed attempt; the right code no longer works.
	_, _, err = s.svc.VerifyOTP(s.ctx, "alice@example.com", s.sender.lastCode, "password123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *IdentityServiceSuite) TestVerifyOTPRejectsShortPassword() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	_, _, err := s.svc.VerifyOTP(s.ctx, "alice@example.com", s.sender.lastCode, "short")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestLoginSucceeds() {
	created := s.register("alice@example.com", "password123")

	user, token, err := s.svc.Login(s.ctx, "Alice@Example.com", "password123")
	s.Require().NoError(err)
	s.Equal(created.ID, user.ID)
	s.NotEmpty(token)
}

func (s *IdentityServiceSuite) TestLoginRejectsWrongPassword() {
	s.register("alice@example.com", "password123")

	_, _, err := s.svc.Login(s.ctx, "alice@example.com", "wrong-password")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal("invalid credentials", dErrors.Message(err))
}

func (s *IdentityServiceSuite) TestLoginRejectsUnknownEmail() {
	_, _, err := s.svc.Login(s.ctx, "nobody@example.com", "password123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	s.Equal("invalid credentials", dErrors.Message(err))
}

func (s *IdentityServiceSuite) TestLoginRejectsUnverifiedAccount() {
	s.Require().NoError(s.svc.RequestOTP(s.ctx, "Alice", "alice@example.com"))

	_, _, err := s.svc.Login(s.ctx, "alice@example.com", "password123")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *IdentityServiceSuite) TestProfileReturnsCredibilityVector() {
	user := s.register("alice@example.com", "password123")

	profile, err := s.svc.Profile(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Len(profile.Credibility.Profile(), id.NumDomains)
	s.InDelta(models.DefaultScore, profile.Credibility.Get(id.DomainScience), 1e-9)
}

func (s *IdentityServiceSuite) TestProfileUnknownUser() {
	_, err := s.svc.Profile(s.ctx, id.NewUserID())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentityServiceSuite) TestSavePreferences() {
	user := s.register("alice@example.com", "password123")

	err := s.svc.SavePreferences(s.ctx, user.ID,
		[]string{string(id.DomainScience), string(id.DomainHealth)},
		"https://linkedin.com/in/alice")
	s.Require().NoError(err)

	profile, err := s.svc.Profile(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal([]id.Domain{id.DomainScience, id.DomainHealth}, profile.Interests)
	s.Equal("https://linkedin.com/in/alice", profile.LinkedIn)
}

func (s *IdentityServiceSuite) TestSavePreferencesRejectsUnknownDomain() {
	user := s.register("alice@example.com", "password123")

	err := s.svc.SavePreferences(s.ctx, user.ID, []string{"Astrology"}, "")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestSavePreferencesRejectsPlainHTTPLink() {
	user := s.register("alice@example.com", "password123")

	err := s.svc.SavePreferences(s.ctx, user.ID, nil, "http://linkedin.com/in/alice")
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestResolveRole() {
	user := s.register("alice@example.com", "password123")

	role, err := s.svc.ResolveRole(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("user", role)
}

func (s *IdentityServiceSuite) TestSeedAdminIsIdempotent() {
	s.Require().NoError(s.svc.SeedAdmin(s.ctx, "Admin", "admin@example.com", "admin-password"))
	s.Require().NoError(s.svc.SeedAdmin(s.ctx, "Admin", "admin@example.com", "admin-password"))

	n, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	user, token, err := s.svc.Login(s.ctx, "admin@example.com", "admin-password")
	s.Require().NoError(err)
	s.True(user.IsAdmin())
	s.NotEmpty(token)

	role, err := s.svc.ResolveRole(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal("admin", role)
}

func (s *IdentityServiceSuite) TestSeedAdminSkipsWhenUnconfigured() {
	s.Require().NoError(s.svc.SeedAdmin(s.ctx, "Admin", "", ""))
	n, err := s.users.Count(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
}
