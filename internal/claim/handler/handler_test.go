package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/claim/service"
	"veritas/internal/claim/store"
	"veritas/internal/claim/truth"
	identitymodels "veritas/internal/identity/models"
	identitystore "veritas/internal/identity/store"
	id "veritas/pkg/domain"
	"veritas/pkg/testutil"
)

func newTestRouter(t *testing.T) (*chi.Mux, *identitystore.InMemory) {
	t.Helper()

	users := identitystore.NewInMemory()
	svc := service.New(store.NewInMemory(), users)
	h := New(svc, slog.Default())

	router := chi.NewRouter()
	h.RegisterAuthed(router)
	return router, users
}

func seedUser(t *testing.T, users *identitystore.InMemory, name, email string) id.UserID {
	t.Helper()
	user, err := identitymodels.NewUser(id.NewUserID(), name, email, time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(t.Context(), user))
	return user.ID
}

func createClaim(t *testing.T, router *chi.Mux, authorID id.UserID, statement string) SummaryResponse {
	t.Helper()
	req := testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost, "/claims", map[string]string{
		"domain":    string(id.DomainScience),
		"statement": statement,
	}), authorID, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusCreated)
	return *testutil.UnmarshalResponse[SummaryResponse](t, rr)
}

func castVote(t *testing.T, router *chi.Mux, claimID string, voterID id.UserID, vote string) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost,
		"/claims/"+claimID+"/vote", map[string]string{"vote": vote}), voterID, "user")
	return testutil.DoRequest(router, req)
}

func TestCreateClaim(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")

	resp := createClaim(t, router, author, "Water boils at 100C at sea level")
	assert.Equal(t, "Alice", resp.AuthorName)
	assert.Equal(t, string(id.DomainScience), resp.Domain)
	assert.Zero(t, resp.AgreeCount)
	assert.NotEmpty(t, resp.ID)
}

func TestCreateRequiresAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/claims", map[string]string{
		"domain":    string(id.DomainScience),
		"statement": "No login, no claim",
	}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestCreateValidation(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")

	req := testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost, "/claims", map[string]string{
		"domain": string(id.DomainScience),
	}), author, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	req = testutil.AuthedRequest(testutil.NewJSONRequest(t, http.MethodPost, "/claims", map[string]string{
		"domain":    "Astrology",
		"statement": "Mercury retrograde causes outages",
	}), author, "user")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestListShowsTalliesWithoutPercentage(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")
	voter := seedUser(t, users, "Bob", "bob@example.com")
	claim := createClaim(t, router, author, "Water is wet")

	rr := castVote(t, router, claim.ID, voter, "agree")
	testutil.AssertStatus(t, rr, http.StatusOK)

	req := testutil.AuthedRequest(testutil.NewRequest(t, http.MethodGet, "/claims"), author, "user")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	body := testutil.ReadBody(t, rr)

	var claims []SummaryResponse
	require.NoError(t, json.Unmarshal(body, &claims))
	require.Len(t, claims, 1)
	assert.Equal(t, 1, claims[0].AgreeCount)
	assert.Equal(t, []string{voter.String()}, claims[0].VoterIDs)

	// The list payload must not leak the weighted percentage.
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	_, present := raw[0]["truth_percentage"]
	assert.False(t, present)
}

func TestGetDetailWeighsVotes(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")
	expert := seedUser(t, users, "Eve", "eve@example.com")
	claim := createClaim(t, router, author, "Water is wet")

	_, err := users.IncrementCredibility(t.Context(), expert, id.DomainScience, 2*identitymodels.VerificationStep)
	require.NoError(t, err)

	rr := castVote(t, router, claim.ID, expert, "agree")
	testutil.AssertStatus(t, rr, http.StatusOK)

	req := testutil.AuthedRequest(testutil.NewRequest(t, http.MethodGet, "/claims/"+claim.ID), author, "user")
	rr = testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	detail := testutil.UnmarshalResponse[DetailResponse](t, rr)
	assert.Equal(t, 100, detail.TruthPercentage)
	assert.Equal(t, string(truth.LabelHigh), detail.Label)
	require.Len(t, detail.Votes, 1)
	assert.Equal(t, "Eve", detail.Votes[0].VoterName)
	assert.Equal(t, "eve@example.com", detail.Votes[0].VoterEmail)
	assert.InDelta(t, 0.7, detail.Votes[0].Weight, 1e-9)
}

func TestVoteReturnsRefreshedSummary(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")
	voter := seedUser(t, users, "Bob", "bob@example.com")
	claim := createClaim(t, router, author, "Water is wet")

	rr := castVote(t, router, claim.ID, voter, "disagree")
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[SummaryResponse](t, rr)
	assert.Equal(t, 1, resp.DisagreeCount)
	assert.Zero(t, resp.AgreeCount)
}

func TestVoteDuplicateConflicts(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")
	voter := seedUser(t, users, "Bob", "bob@example.com")
	claim := createClaim(t, router, author, "Water is wet")

	rr := castVote(t, router, claim.ID, voter, "agree")
	testutil.AssertStatus(t, rr, http.StatusOK)

	rr = castVote(t, router, claim.ID, voter, "disagree")
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
}

func TestVoteInvalidType(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")
	claim := createClaim(t, router, author, "Water is wet")

	rr := castVote(t, router, claim.ID, author, "maybe")
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}

func TestVoteUnknownClaim(t *testing.T) {
	router, users := newTestRouter(t)
	voter := seedUser(t, users, "Bob", "bob@example.com")

	rr := castVote(t, router, id.NewClaimID().String(), voter, "agree")
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestGetMalformedID(t *testing.T) {
	router, users := newTestRouter(t)
	author := seedUser(t, users, "Alice", "alice@example.com")

	req := testutil.AuthedRequest(testutil.NewRequest(t, http.MethodGet, "/claims/not-a-uuid"), author, "user")
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
}
