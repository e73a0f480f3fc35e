package middlewares

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/jwt"
	"github.com/dropDatabas3/consolegate/internal/rate"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

type fakeParser map[string]*jwt.Claims

func (f fakeParser) Parse(tok string) (*jwt.Claims, error) {
	if c, ok := f[tok]; ok {
		return c, nil
	}
	return nil, errors.New("bad token")
}

type fakeChecker struct {
	allow map[string]bool // principal|scope|code
	err   error
}

func (f fakeChecker) HasPermission(_ context.Context, p string, s repository.Scope, code string) (bool, error) {
	return f.allow[p+"|"+s.String()+"|"+code], f.err
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Code
}

func console(sub, scope string) *jwt.Claims {
	c := &jwt.Claims{Type: jwt.TypeConsoleAccess, Scope: scope}
	c.Subject = sub
	return c
}

func session(sub string) *jwt.Claims {
	c := &jwt.Claims{Type: jwt.TypeSession}
	c.Subject = sub
	return c
}

func TestWithRequestID(t *testing.T) {
	var seen string
	h := WithRequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", seen)
}

func TestWithNoStore(t *testing.T) {
	rec := httptest.NewRecorder()
	WithNoStore()(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
}

func TestWithRecover(t *testing.T) {
	h := WithRecover()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", errorCode(t, rec))
}

func TestRequireAuth(t *testing.T) {
	p := fakeParser{"good": session("u1")}
	var principal string
	h := RequireAuth(p)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = GetPrincipalID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("invalid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
	t.Run("valid", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer good")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "u1", principal)
	})
}

func TestRequireConsoleAccess(t *testing.T) {
	p := fakeParser{"sess": session("u1"), "cons": console("u1", "platform")}
	h := RequireAuth(p)(RequireConsoleAccess()(ok))

	for tok, want := range map[string]int{"sess": http.StatusForbidden, "cons": http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, tok)
	}
}

func TestWithRequestScope_PathAndCover(t *testing.T) {
	p := fakeParser{
		"t5":   console("u1", "tenant/5"),
		"plat": console("admin", "platform"),
	}
	var got repository.Scope
	r := chi.NewRouter()
	r.Use(RequireAuth(p))
	r.Route("/tenant/{tenantID}", func(r chi.Router) {
		r.With(WithRequestScope(PathScope)).Get("/x", func(w http.ResponseWriter, r *http.Request) {
			got, _ = GetScope(r.Context())
		})
		r.With(WithRequestScope(PathScope)).Get("/app/{appID}/x", func(w http.ResponseWriter, r *http.Request) {
			got, _ = GetScope(r.Context())
		})
	})

	do := func(tok, path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("t5", "/tenant/5/x"))
	assert.Equal(t, repository.TenantScope("5"), got)

	assert.Equal(t, http.StatusOK, do("t5", "/tenant/5/app/a1/x"))
	assert.Equal(t, repository.AppScope("5", "a1"), got)

	assert.Equal(t, http.StatusForbidden, do("t5", "/tenant/6/x"))
	assert.Equal(t, http.StatusOK, do("plat", "/tenant/6/x"))
}

func TestQueryScope(t *testing.T) {
	h := WithRequestScope(QueryScope)(ok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?scope=tenant/5", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?scope=galaxy", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, rec))
}

func TestOwnerScope_NotFound(t *testing.T) {
	lookup := func(context.Context, string) (repository.Scope, error) {
		return repository.Scope{}, repository.ErrNotFound
	}
	r := chi.NewRouter()
	r.With(WithRequestScope(OwnerScope("roleID", lookup))).Get("/roles/{roleID}", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/roles/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequirePermission(t *testing.T) {
	pc := fakeChecker{allow: map[string]bool{"u1|tenant/5|rbac.roles.read": true}}
	h := func(principal string, s repository.Scope, code string, checker PermissionChecker) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		ctx := req.Context()
		if principal != "" {
			ctx = WithClaims(ctx, session(principal))
		}
		ctx = WithScope(ctx, s)
		rec := httptest.NewRecorder()
		RequirePermission(checker, code)(ok).ServeHTTP(rec, req.WithContext(ctx))
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, h("u1", repository.TenantScope("5"), repository.PermRolesRead, pc))
	assert.Equal(t, http.StatusForbidden, h("u1", repository.TenantScope("5"), repository.PermRolesWrite, pc))
	assert.Equal(t, http.StatusForbidden, h("u1", repository.TenantScope("6"), repository.PermRolesRead, pc))
	assert.Equal(t, http.StatusUnauthorized, h("", repository.TenantScope("5"), repository.PermRolesRead, pc))

	unavailable := fakeChecker{err: repository.ErrUnavailable}
	assert.Equal(t, http.StatusServiceUnavailable, h("u1", repository.TenantScope("5"), repository.PermRolesRead, unavailable))
}

func TestWithRateLimit_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	h := WithRateLimit(rate.NewRedisLimiter(rdb, "test", "mint", 2, time.Minute))(ok)
	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	// otra IP tiene su propia ventana
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithRateLimit_FailOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	h := WithRateLimit(rate.NewRedisLimiter(rdb, "test", "mint", 1, time.Minute))(ok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestWithLocalRateLimit(t *testing.T) {
	h := WithLocalRateLimit(1, time.Minute)(ok)

	first := httptest.NewRecorder()
	h.ServeHTTP(first, httptest.NewRequest(http.MethodPost, "/", nil))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusNoContent, first.Code)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, second))
}

func TestRateKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "ip:1.2.3.4", RateKey(req))

	req = req.WithContext(WithClaims(req.Context(), session("u9")))
	assert.Equal(t, "p:u9", RateKey(req))
}
