package testutil

import (
	"context"
	"net/http"
	"time"

	id "veritas/pkg/domain"
	"veritas/pkg/requestcontext"
)

// AuthedContext builds a context that looks like it passed the auth middleware.
func AuthedContext(ctx context.Context, userID id.UserID, role string) context.Context {
	ctx = requestcontext.WithUserID(ctx, userID)
	ctx = requestcontext.WithRole(ctx, role)
	return ctx
}

// WithFixedTime pins the request time for deterministic timestamps.
func WithFixedTime(ctx context.Context, t time.Time) context.Context {
	return requestcontext.WithTime(ctx, t)
}

// AuthedRequest attaches an authenticated identity to an HTTP request.
func AuthedRequest(req *http.Request, userID id.UserID, role string) *http.Request {
	return req.WithContext(AuthedContext(req.Context(), userID, role))
}
