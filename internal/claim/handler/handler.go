// Package handler exposes the claim endpoints: creation, browsing, the
// weighted consensus view, and voting.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/internal/claim/service"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Service defines the claim operations the handler needs.
type Service interface {
	Create(ctx context.Context, authorID id.UserID, domain, statement string) (*service.Summary, error)
	List(ctx context.Context) ([]service.Summary, error)
	Get(ctx context.Context, claimID id.ClaimID) (*service.Detail, error)
	Vote(ctx context.Context, claimID id.ClaimID, voterID id.UserID, voteType string) (*service.Summary, error)
}

// Handler wires claim endpoints to the claim service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAuthed mounts the claim endpoints. All of them require an
// authenticated user, reading included.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/claims", h.HandleCreate)
	r.Get("/claims", h.HandleList)
	r.Get("/claims/{id}", h.HandleGet)
	r.Post("/claims/{id}/vote", h.HandleVote)
}

// HandleCreate handles POST /claims.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeValid[CreateRequest](w, r)
	if !ok {
		return
	}

	summary, err := h.service.Create(ctx, userID, req.Domain, req.Statement)
	if err != nil {
		h.logError(ctx, "claim creation failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromSummary(*summary))
}

// HandleList handles GET /claims.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	summaries, err := h.service.List(ctx)
	if err != nil {
		h.logError(ctx, "claim list failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSummaries(summaries))
}

// HandleGet handles GET /claims/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid claim id"))
		return
	}

	detail, err := h.service.Get(ctx, claimID)
	if err != nil {
		h.logError(ctx, "claim detail failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromDetail(detail))
}

// HandleVote handles POST /claims/{id}/vote.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	claimID, err := id.ParseClaimID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid claim id"))
		return
	}

	req, ok := httputil.DecodeValid[VoteRequest](w, r)
	if !ok {
		return
	}

	summary, err := h.service.Vote(ctx, claimID, userID, req.Vote)
	if err != nil {
		h.logError(ctx, "vote failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromSummary(*summary))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return
	}
	h.logger.DebugContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
}
