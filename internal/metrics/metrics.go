// Package metrics define los collectors Prometheus del servicio y el
// middleware HTTP que los alimenta.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricsOnce sync.Once
	metricsErr  error

	// HTTP
	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Número total de requests procesadas",
	}, []string{"method", "path", "status"})

	httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Latencia de los requests HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	httpInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_inflight_requests",
		Help: "Requests en vuelo",
	})

	// Códigos de consola
	codesMinted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_codes_minted_total",
		Help: "Códigos emitidos por consola destino",
	}, []string{"target"})

	codeExchanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_code_exchanges_total",
		Help: "Canjes de código por resultado",
	}, []string{"result"}) // ok | invalid | unavailable | error

	codesSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_codes_swept_total",
		Help: "Códigos expirados borrados por el sweeper",
	})

	// RBAC
	rbacMutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbac_mutations_total",
		Help: "Mutaciones RBAC por operación y resultado",
	}, []string{"op", "result"})

	permissionCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rbac_permission_cache_total",
		Help: "Resoluciones de permisos efectivos por resultado de cache",
	}, []string{"result"}) // hit | miss | error
)

// Config agrupa dependencias para exponer /metrics.
type Config struct {
	Registry prometheus.Registerer
	// Pool opcional: expone gauges del pgxpool.
	Pool func() *pgxpool.Pool
}

// Register registra los collectors (una vez por proceso) y devuelve el handler de /metrics.
func Register(cfg Config) (http.Handler, error) {
	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	metricsOnce.Do(func() {
		for _, c := range []prometheus.Collector{
			httpRequestsTotal, httpRequestDuration, httpInflight,
			codesMinted, codeExchanges, codesSwept,
			rbacMutations, permissionCache,
		} {
			if err := registerCollector(registry, c); err != nil {
				metricsErr = err
				return
			}
		}
	})
	if metricsErr != nil {
		return nil, metricsErr
	}

	if cfg.Pool != nil {
		if err := registerCollector(registry, newPoolCollector(cfg.Pool)); err != nil {
			return nil, err
		}
	}
	return promhttp.Handler(), nil
}

// registerCollector registra ignorando duplicados.
func registerCollector(reg prometheus.Registerer, c prometheus.Collector) error {
	if err := reg.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return nil
		}
		return err
	}
	return nil
}

// ─── Contadores de dominio ───

func CodeMinted(target string) { codesMinted.WithLabelValues(target).Inc() }

func CodeExchange(result string) { codeExchanges.WithLabelValues(result).Inc() }

func CodesSwept(n int64) {
	if n > 0 {
		codesSwept.Add(float64(n))
	}
}

func RBACMutation(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	rbacMutations.WithLabelValues(op, result).Inc()
}

func PermissionCache(result string) { permissionCache.WithLabelValues(result).Inc() }

// ─── HTTP ───

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Middleware instrumenta requests. El label path es el patrón de chi
// (p.ej. /rbac/tenant/{tenantID}/roles) para no explotar cardinalidad.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.ToUpper(r.Method)
		httpInflight.Inc()
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		defer func() {
			httpInflight.Dec()
			path := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil {
				if p := rc.RoutePattern(); p != "" {
					path = p
				}
			}
			httpRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
			status := rec.status
			if status == 0 {
				status = http.StatusOK
			}
			httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		}()

		next.ServeHTTP(rec, r)
	})
}

// ─── pgxpool ───

type poolCollector struct {
	pool         func() *pgxpool.Pool
	acquiredDesc *prometheus.Desc
	idleDesc     *prometheus.Desc
	totalDesc    *prometheus.Desc
}

func newPoolCollector(pool func() *pgxpool.Pool) *poolCollector {
	return &poolCollector{
		pool:         pool,
		acquiredDesc: prometheus.NewDesc("pg_pool_acquired", "Conexiones adquiridas", nil, nil),
		idleDesc:     prometheus.NewDesc("pg_pool_idle", "Conexiones inactivas", nil, nil),
		totalDesc:    prometheus.NewDesc("pg_pool_total", "Conexiones totales", nil, nil),
	}
}

func (c *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.acquiredDesc
	ch <- c.idleDesc
	ch <- c.totalDesc
}

func (c *poolCollector) Collect(ch chan<- prometheus.Metric) {
	p := c.pool()
	if p == nil {
		return
	}
	stat := p.Stat()
	ch <- prometheus.MustNewConstMetric(c.acquiredDesc, prometheus.GaugeValue, float64(stat.AcquiredConns()))
	ch <- prometheus.MustNewConstMetric(c.idleDesc, prometheus.GaugeValue, float64(stat.IdleConns()))
	ch <- prometheus.MustNewConstMetric(c.totalDesc, prometheus.GaugeValue, float64(stat.TotalConns()))
}
