// Package router arma el árbol de rutas chi del servicio.
package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	authzctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/authz"
	healthctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/health"
	rbacctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/rbac"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	mw "github.com/dropDatabas3/consolegate/internal/http/middlewares"
	"github.com/dropDatabas3/consolegate/internal/metrics"
)

// ScopeLookup devuelve el scope dueño de un recurso por id.
type ScopeLookup func(ctx context.Context, id string) (repository.Scope, error)

// Deps contiene todo lo que el router necesita.
type Deps struct {
	Authz  *authzctrl.Controller
	RBAC   *rbacctrl.Controller
	Health *healthctrl.Controller

	Tokens      mw.TokenParser
	Permissions mw.PermissionChecker

	RoleScope       ScopeLookup
	PermissionScope ScopeLookup

	// Límites opcionales (nil = sin límite).
	MintLimit     mw.Middleware
	ExchangeLimit mw.Middleware

	// Metrics es el handler de /metrics (nil = no se expone).
	Metrics http.Handler
	IsProd  bool
}

func passthrough(next http.Handler) http.Handler { return next }

func orPass(m mw.Middleware) mw.Middleware {
	if m == nil {
		return passthrough
	}
	return m
}

// New construye el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRecover(),
		mw.WithRequestID(),
		mw.WithLogging(),
		metrics.Middleware,
		mw.WithSecurityHeaders(d.IsProd),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound.WithDetail("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	registerHealthRoutes(r, d)
	registerAuthzRoutes(r, d)
	registerRBACRoutes(r, d)
	return r
}

func registerHealthRoutes(r chi.Router, d Deps) {
	r.Get("/healthz", d.Health.Healthz)
	r.Get("/readyz", d.Health.Readyz)
	r.Get("/.well-known/jwks.json", d.Health.JWKS)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}
}

func registerAuthzRoutes(r chi.Router, d Deps) {
	auth := mw.RequireAuth(d.Tokens)
	r.Route("/authz", func(r chi.Router) {
		r.Use(mw.WithNoStore())
		r.With(auth, orPass(d.MintLimit)).Post("/mint", d.Authz.Mint)
		r.With(orPass(d.ExchangeLimit)).Post("/exchange", d.Authz.Exchange)
		r.With(auth).Get("/targets", d.Authz.Targets)
	})
}
