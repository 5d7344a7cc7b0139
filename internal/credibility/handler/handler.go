// Package handler exposes the verification request endpoints: submission for
// users, the review queue and approval for admins.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/internal/credibility/models"
	"veritas/internal/credibility/service"
	identitymodels "veritas/internal/identity/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Service defines the verification operations the handler needs.
type Service interface {
	Submit(ctx context.Context, userID id.UserID, domain, proofLink string) (*models.VerificationRequest, error)
	ListPending(ctx context.Context) ([]service.PendingRequest, error)
	Approve(ctx context.Context, requestID id.RequestID, approver id.UserID) (*identitymodels.User, error)
}

// Handler wires verification endpoints to the credibility service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAuthed mounts the user-facing submission endpoint.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Post("/credibility", h.HandleSubmit)
}

// RegisterAdmin mounts the review endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/credibility", h.HandleListPending)
	r.Post("/admin/credibility/{id}/approve", h.HandleApprove)
}

// HandleSubmit handles POST /credibility.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeValid[SubmitRequest](w, r)
	if !ok {
		return
	}

	request, err := h.service.Submit(ctx, userID, req.Domain, req.ProofLink)
	if err != nil {
		h.logError(ctx, "verification submission failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromRequest(request))
}

// HandleListPending handles GET /admin/credibility.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	pending, err := h.service.ListPending(ctx)
	if err != nil {
		h.logError(ctx, "pending list failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPending(pending))
}

// HandleApprove handles POST /admin/credibility/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	approver := requestcontext.UserID(ctx)
	if approver.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	requestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request id"))
		return
	}

	user, err := h.service.Approve(ctx, requestID, approver)
	if err != nil {
		h.logError(ctx, "approval failed", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification request approved",
		"request_id", requestID,
		"approver", approver,
	)
	httputil.WriteJSON(w, http.StatusOK, FromUpdatedUser(user))
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
