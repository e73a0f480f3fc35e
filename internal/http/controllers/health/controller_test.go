package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadyz(t *testing.T) {
	up := Check{Name: "store", Ping: func(context.Context) error { return nil }}
	down := Check{Name: "cache", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}

	tests := []struct {
		name   string
		checks []Check
		status int
		want   map[string]string
	}{
		{"all up", []Check{up}, http.StatusOK, map[string]string{"store": "up"}},
		{"one down", []Check{up, down}, http.StatusServiceUnavailable, map[string]string{"store": "up", "cache": "down"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(func() []byte { return []byte(`{"keys":[]}`) }, tt.checks...)
			rec := httptest.NewRecorder()
			c.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.status, rec.Code)

			var resp readyResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.want, resp.Components)
		})
	}
}

func TestJWKS(t *testing.T) {
	c := NewController(func() []byte { return []byte(`{"keys":[{"kid":"k1"}]}`) })
	rec := httptest.NewRecorder()
	c.JWKS(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "max-age")
	assert.JSONEq(t, `{"keys":[{"kid":"k1"}]}`, rec.Body.String())
}
