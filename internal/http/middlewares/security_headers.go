package middlewares

import (
	"net/http"

	"github.com/unrolled/secure"

	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// WithSecurityHeaders aplica cabeceras para una API JSON (no servimos HTML).
// HSTS sólo cuando el request llegó por HTTPS, directo o vía proxy.
func WithSecurityHeaders(isProd bool) Middleware {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; base-uri 'none'",
		PermissionsPolicy:     "geolocation=(), microphone=(), camera=(), payment=()",
		STSSeconds:            15552000,
		STSIncludeSubdomains:  true,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !isProd,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.From(r.Context()).Warn("secure headers blocked request", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrValidation.WithDetail("request rejected"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
