// Package handler exposes the account endpoints: OTP registration, login,
// profile, and preferences.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"veritas/internal/identity/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
	"veritas/pkg/platform/httputil"
	"veritas/pkg/requestcontext"
)

// Service defines the account operations the handler needs.
type Service interface {
	RequestOTP(ctx context.Context, name, email string) error
	VerifyOTP(ctx context.Context, email, code, password string) (*models.User, string, error)
	Login(ctx context.Context, email, password string) (*models.User, string, error)
	Profile(ctx context.Context, userID id.UserID) (*models.User, error)
	SavePreferences(ctx context.Context, userID id.UserID, interests []string, linkedin string) error
}

// Handler wires account endpoints to the identity service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/otp", h.HandleRequestOTP)
	r.Post("/auth/verify", h.HandleVerifyOTP)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterAuthed mounts the endpoints that require a valid token.
func (h *Handler) RegisterAuthed(r chi.Router) {
	r.Get("/auth/me", h.HandleMe)
	r.Post("/auth/preferences", h.HandlePreferences)
}

// HandleRequestOTP handles POST /auth/otp.
func (h *Handler) HandleRequestOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeValid[RequestOTPRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.RequestOTP(ctx, req.Name, req.Email); err != nil {
		h.logError(ctx, "otp request failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "code_sent",
	})
}

// HandleVerifyOTP handles POST /auth/verify.
func (h *Handler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeValid[VerifyOTPRequest](w, r)
	if !ok {
		return
	}

	user, token, err := h.service.VerifyOTP(ctx, req.Email, req.Code, req.Password)
	if err != nil {
		h.logError(ctx, "otp verification failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, tokenResponse(user, token))
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeValid[LoginRequest](w, r)
	if !ok {
		return
	}

	user, token, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logError(ctx, "login failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, tokenResponse(user, token))
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	user, err := h.service.Profile(ctx, userID)
	if err != nil {
		h.logError(ctx, "profile lookup failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromUser(user))
}

// HandlePreferences handles POST /auth/preferences.
func (h *Handler) HandlePreferences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeValid[PreferencesRequest](w, r)
	if !ok {
		return
	}

	if err := h.service.SavePreferences(ctx, userID, req.Interests, req.LinkedIn); err != nil {
		h.logError(ctx, "preferences update failed", err)
		httputil.WriteError(w, err)
		return
	}

	user, err := h.service.Profile(ctx, userID)
	if err != nil {
		h.logError(ctx, "profile reload failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromUser(user))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	// Expected domain outcomes stay at debug; real failures get error level.
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
