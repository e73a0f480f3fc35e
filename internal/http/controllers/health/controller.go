// Package health expone /healthz, /readyz y /.well-known/jwks.json.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// Check es un componente que readyz consulta (store, cache).
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

type Controller struct {
	checks  []Check
	jwks    func() []byte
	timeout time.Duration
}

func NewController(jwks func() []byte, checks ...Check) *Controller {
	return &Controller{checks: checks, jwks: jwks, timeout: 2 * time.Second}
}

type readyResponse struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// Healthz responde mientras el proceso esté vivo.
func (c *Controller) Healthz(w http.ResponseWriter, _ *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz pinguea cada componente; cualquiera caído = 503.
func (c *Controller) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), c.timeout)
	defer cancel()

	resp := readyResponse{Status: "ready", Components: map[string]string{}}
	status := http.StatusOK
	for _, chk := range c.checks {
		if err := chk.Ping(ctx); err != nil {
			logger.From(ctx).Warn("readiness check failed", logger.Component(chk.Name), logger.Err(err))
			resp.Components[chk.Name] = "down"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Components[chk.Name] = "up"
	}
	helpers.WriteJSON(w, status, resp)
}

// JWKS publica la clave pública para validar los access de consola.
func (c *Controller) JWKS(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(c.jwks())
}
