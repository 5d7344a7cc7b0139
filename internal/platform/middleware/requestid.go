package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"veritas/pkg/requestcontext"
)

// RequestID assigns every request a correlation id, honoring an inbound
// X-Request-ID when a proxy already set one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
