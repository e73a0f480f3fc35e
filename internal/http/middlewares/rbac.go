package middlewares

import (
	"context"
	"net/http"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// PermissionChecker consulta el motor RBAC en vivo (no los perms del token).
type PermissionChecker interface {
	HasPermission(ctx context.Context, principalID string, scope repository.Scope, code string) (bool, error)
}

// RequirePermission exige code en el scope del request. Va después de
// RequireAuth y WithRequestScope.
func RequirePermission(pc PermissionChecker, code string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principal := GetPrincipalID(ctx)
			scope, ok := GetScope(ctx)
			if principal == "" || !ok {
				httperrors.WriteError(w, httperrors.ErrUnauthorized)
				return
			}
			allowed, err := pc.HasPermission(ctx, principal, scope, code)
			if err != nil {
				logger.From(ctx).Error("permission check failed", logger.Err(err), logger.Scope(scope.String()))
				httperrors.WriteError(w, err)
				return
			}
			if !allowed {
				logger.From(ctx).Info("permission denied",
					logger.String("permission", code), logger.Scope(scope.String()))
				httperrors.WriteError(w, httperrors.ErrPermissionDenied.WithDetail("missing permission "+code))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
