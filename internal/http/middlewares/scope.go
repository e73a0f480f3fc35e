package middlewares

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
)

// ScopeFunc resuelve el scope RBAC de un request.
type ScopeFunc func(r *http.Request) (repository.Scope, error)

// PathScope arma el scope desde los parámetros {tenantID} / {appID} del
// subrouter; sin parámetros es platform.
func PathScope(r *http.Request) (repository.Scope, error) {
	tid := chi.URLParam(r, "tenantID")
	aid := chi.URLParam(r, "appID")
	var s repository.Scope
	switch {
	case tid == "":
		s = repository.PlatformScope()
	case aid == "":
		s = repository.TenantScope(tid)
	default:
		s = repository.AppScope(tid, aid)
	}
	return s, s.Validate()
}

// QueryScope lee ?scope=platform|tenant/{id}|tenant/{id}/app/{id}.
func QueryScope(r *http.Request) (repository.Scope, error) {
	return repository.ParseScope(r.URL.Query().Get("scope"))
}

// OwnerScope toma el scope del recurso identificado por el parámetro param
// (p.ej. el rol en DELETE /rbac/roles/{roleID}).
func OwnerScope(param string, lookup func(ctx context.Context, id string) (repository.Scope, error)) ScopeFunc {
	return func(r *http.Request) (repository.Scope, error) {
		return lookup(r.Context(), chi.URLParam(r, param))
	}
}

// WithRequestScope resuelve el scope y lo deja en contexto. Además exige que
// el scope del token (si es de consola) cubra el del request.
func WithRequestScope(resolve ScopeFunc) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := resolve(r)
			if err != nil {
				httperrors.WriteError(w, err)
				return
			}
			if c := GetClaims(r.Context()); c != nil && c.IsConsoleAccess() {
				tokScope, err := repository.ParseScope(c.Scope)
				if err != nil || !tokScope.Covers(s) {
					httperrors.WriteError(w, httperrors.ErrPermissionDenied.WithDetail("token scope does not cover "+s.String()))
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), s)))
		})
	}
}
