// Package httpapi assembles the HTTP surface: middleware chain, public auth
// endpoints, the authenticated API, and the admin review endpoints.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	claimhandler "veritas/internal/claim/handler"
	credibilityhandler "veritas/internal/credibility/handler"
	identityhandler "veritas/internal/identity/handler"
	"veritas/internal/jwttoken"
	"veritas/internal/platform/middleware"
	"veritas/pkg/platform/httputil"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger      *slog.Logger
	Tokens      *jwttoken.Service
	Roles       middleware.RoleResolver
	Identity    identityhandler.Service
	Claims      claimhandler.Service
	Credibility credibilityhandler.Service
}

// tokenValidator adapts the JWT service to the middleware's claim shape so the
// middleware package does not import the token implementation.
type tokenValidator struct {
	tokens *jwttoken.Service
}

func (v tokenValidator) ValidateToken(tokenString string) (*middleware.TokenClaims, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.TokenClaims{UserID: claims.UserID, Role: claims.Role}, nil
}

// NewRouter builds the full route tree.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	identityH := identityhandler.New(deps.Identity, deps.Logger)
	claimH := claimhandler.New(deps.Claims, deps.Logger)
	credibilityH := credibilityhandler.New(deps.Credibility, deps.Logger)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	identityH.RegisterPublic(r)

	requireAuth := middleware.RequireAuth(tokenValidator{tokens: deps.Tokens}, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		identityH.RegisterAuthed(r)
		claimH.RegisterAuthed(r)
		credibilityH.RegisterAuthed(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireAdmin(deps.Roles, deps.Logger))
		credibilityH.RegisterAdmin(r)
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
