package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/rbac/tenant/{tenantID}/roles", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := value(t, httpRequestsTotal.WithLabelValues("GET", "/rbac/tenant/{tenantID}/roles", "418"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/rbac/tenant/5/roles", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	after := value(t, httpRequestsTotal.WithLabelValues("GET", "/rbac/tenant/{tenantID}/roles", "418"))
	assert.Equal(t, before+1, after)
}

func TestDomainCounters(t *testing.T) {
	before := value(t, rbacMutations.WithLabelValues("delete_role", "error"))
	RBACMutation("delete_role", errors.New("boom"))
	assert.Equal(t, before+1, value(t, rbacMutations.WithLabelValues("delete_role", "error")))

	sweptBefore := value(t, codesSwept)
	CodesSwept(0)
	CodesSwept(3)
	assert.Equal(t, sweptBefore+3, value(t, codesSwept))
}

func TestRegister_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := Register(Config{Registry: reg})
	require.NoError(t, err)
	require.NotNil(t, h)
	_, err = Register(Config{Registry: reg})
	require.NoError(t, err)
}
