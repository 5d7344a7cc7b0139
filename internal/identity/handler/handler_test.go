package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/identity/mailer"
	"veritas/internal/identity/otp"
	"veritas/internal/identity/service"
	"veritas/internal/identity/store"
	"veritas/internal/jwttoken"
	id "veritas/pkg/domain"
	"veritas/pkg/testutil"
)

// captureSender keeps the last issued code so tests can complete the OTP flow.
type captureSender struct {
	lastCode string
}

func (s *captureSender) SendOTP(_ context.Context, _, code string) error {
	s.lastCode = code
	return nil
}

var _ mailer.Sender = (*captureSender)(nil)

func newTestRouter(t *testing.T) (*chi.Mux, *captureSender, *store.InMemory) {
	t.Helper()

	users := store.NewInMemory()
	sender := &captureSender{}
	svc := service.New(
		users,
		otp.NewMemoryStore(),
		sender,
		jwttoken.New("test-key", "veritas", "veritas-api"),
		time.Hour,
		5*time.Minute,
	)
	h := New(svc, slog.Default())

	router := chi.NewRouter()
	h.RegisterPublic(router)
	h.RegisterAuthed(router)
	return router, sender, users
}

func registerUser(t *testing.T, router *chi.Mux, sender *captureSender, email string) (id.UserID, string) {
	t.Helper()

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/otp", map[string]string{
		"name":  "Test User",
		"email": email,
	}))
	testutil.AssertStatus(t, rr, http.StatusAccepted)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/verify", map[string]string{
		"email":    email,
		"code":     sender.lastCode,
		"password": "password123",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
	userID, err := id.ParseUserID(resp.User.ID)
	require.NoError(t, err)
	return userID, resp.AccessToken
}

func TestRegistrationFlow(t *testing.T) {
	router, sender, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/otp", map[string]string{
		"name":  "Alice",
		"email": "alice@example.com",
	}))
	testutil.AssertStatus(t, rr, http.StatusAccepted)
	require.Len(t, sender.lastCode, otp.CodeLength)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/verify", map[string]string{
		"email":    "alice@example.com",
		"code":     sender.lastCode,
		"password": "password123",
	}))
	testutil.AssertStatus(t, rr, http.StatusCreated)

	resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.True(t, resp.User.Verified)
	assert.Len(t, resp.User.Credibility, id.NumDomains)
	assert.Len(t, resp.User.Domains, id.NumDomains)
}

func TestRequestOTPValidation(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/otp", map[string]string{
		"name": "Alice",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/otp", map[string]string{
		"email": "not-an-email",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/otp", map[string]string{
		"email": "alice@example.com",
	}))
	testutil.AssertStatus(t, rr, http.StatusAccepted)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/verify", map[string]string{
		"email":    "alice@example.com",
		"code":     "000000",
		"password": "password123",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestLogin(t *testing.T) {
	router, sender, _ := newTestRouter(t)
	registerUser(t, router, sender, "alice@example.com")

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "password123",
	}))
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[TokenResponse](t, rr)
	assert.NotEmpty(t, resp.AccessToken)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", map[string]string{
		"email":    "alice@example.com",
		"password": "wrong",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMeRequiresAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/auth/me"))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestMeReturnsProfile(t *testing.T) {
	router, sender, _ := newTestRouter(t)
	userID, _ := registerUser(t, router, sender, "alice@example.com")

	req := testutil.AuthedRequest(testutil.NewRequest(t, http.MethodGet, "/auth/me"), userID, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[UserResponse](t, rr)
	assert.Equal(t, userID.String(), resp.ID)
	assert.Equal(t, "alice@example.com", resp.Email)
}

func TestPreferencesRoundTrip(t *testing.T) {
	router, sender, _ := newTestRouter(t)
	userID, _ := registerUser(t, router, sender, "alice@example.com")

	req := testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost, "/auth/preferences", map[string]any{
		"interests": []string{string(id.DomainScience)},
		"linkedin":  "https://linkedin.com/in/alice",
	}), userID, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[UserResponse](t, rr)
	assert.Equal(t, []string{string(id.DomainScience)}, resp.Interests)
	assert.Equal(t, "https://linkedin.com/in/alice", resp.LinkedIn)
}

func TestPreferencesRejectsUnknownDomain(t *testing.T) {
	router, sender, _ := newTestRouter(t)
	userID, _ := registerUser(t, router, sender, "alice@example.com")

	req := testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost, "/auth/preferences", map[string]any{
		"interests": []string{"Astrology"},
	}), userID, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}
