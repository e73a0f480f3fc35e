package middlewares

import (
	"context"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/jwt"
)

type ctxKey string

const (
	ctxClaimsKey    ctxKey = "claims"
	ctxScopeKey     ctxKey = "scope"
	ctxRequestIDKey ctxKey = "request_id"
)

// WithClaims inyecta los claims del bearer ya validado.
func WithClaims(ctx context.Context, c *jwt.Claims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// WithScope inyecta el scope RBAC del request.
func WithScope(ctx context.Context, s repository.Scope) context.Context {
	return context.WithValue(ctx, ctxScopeKey, s)
}

func setRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// GetClaims retorna nil si el request no pasó por RequireAuth.
func GetClaims(ctx context.Context) *jwt.Claims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwt.Claims)
	return c
}

// GetPrincipalID es el sub del token autenticado ("" si no hay).
func GetPrincipalID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// GetScope retorna el scope resuelto por WithRequestScope.
func GetScope(ctx context.Context) (repository.Scope, bool) {
	s, ok := ctx.Value(ctxScopeKey).(repository.Scope)
	return s, ok
}

func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(ctxRequestIDKey).(string)
	return s
}
