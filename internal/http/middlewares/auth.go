package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/consolegate/internal/jwt"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// TokenParser valida un bearer y retorna sus claims.
type TokenParser interface {
	Parse(token string) (*jwt.Claims, error)
}

func bearer(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// RequireAuth exige un bearer válido del issuer (sesión o access de consola).
// El sub queda en el contexto y en el logger.
func RequireAuth(p TokenParser) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok := bearer(r)
			if tok == "" {
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("missing bearer token"))
				return
			}
			claims, err := p.Parse(tok)
			if err != nil {
				logger.From(r.Context()).Debug("bearer rejected", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrUnauthorized.WithDetail("invalid token"))
				return
			}
			ctx := WithClaims(r.Context(), claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.PrincipalID(claims.Subject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireConsoleAccess exige que el token sea un access de consola. Va
// después de RequireAuth.
func RequireConsoleAccess() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := GetClaims(r.Context())
			if c == nil || !c.IsConsoleAccess() {
				httperrors.WriteError(w, httperrors.ErrPermissionDenied.WithDetail("console access token required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
