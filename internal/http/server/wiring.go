// Package server arma el servicio completo a partir de la config.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/consolegate/internal/bootstrap"
	"github.com/dropDatabas3/consolegate/internal/cache"
	"github.com/dropDatabas3/consolegate/internal/config"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	authzctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/authz"
	healthctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/health"
	rbacctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/rbac"
	mw "github.com/dropDatabas3/consolegate/internal/http/middlewares"
	"github.com/dropDatabas3/consolegate/internal/http/router"
	authzsvc "github.com/dropDatabas3/consolegate/internal/http/services/authz"
	rbacsvc "github.com/dropDatabas3/consolegate/internal/http/services/rbac"
	"github.com/dropDatabas3/consolegate/internal/jwt"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	"github.com/dropDatabas3/consolegate/internal/rate"
	"github.com/dropDatabas3/consolegate/internal/store"
	redisstore "github.com/dropDatabas3/consolegate/internal/store/adapters/redis"
	"github.com/dropDatabas3/consolegate/internal/util"
	migrations "github.com/dropDatabas3/consolegate/migrations/postgres"

	// adapters registrados por init()
	_ "github.com/dropDatabas3/consolegate/internal/store/adapters/memory"
	_ "github.com/dropDatabas3/consolegate/internal/store/adapters/pg"
)

// App es el servicio armado.
type App struct {
	Handler http.Handler
	Sweeper *authzsvc.Sweeper
	Tokens  *jwt.Issuer
	Engine  *rbacsvc.Engine

	closers []func() error
}

// Close libera conexiones en orden inverso de apertura.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type poolProvider interface{ Pool() *pgxpool.Pool }

// Build conecta storage, cache y redis según cfg y arma el handler.
// Ante error cierra lo que ya había abierto.
func Build(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.From(ctx).With(logger.Component("server.wiring"))
	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	// 1. Storage
	conn, err := store.OpenAdapter(ctx, store.AdapterConfig{
		Name:         cfg.Storage.Driver,
		DSN:          cfg.Storage.DSN,
		MaxOpenConns: cfg.Storage.MaxOpenConns,
		MaxIdleConns: cfg.Storage.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}
	app.closers = append(app.closers, conn.Close)
	if cfg.Storage.DSN != "" {
		log.Info("storage connected", logger.String("driver", conn.Name()), logger.String("dsn", util.MaskDSN(cfg.Storage.DSN)))
	}

	if mc, ok := conn.(store.MigratableConnection); ok && cfg.Storage.MigrateOnStart {
		res, err := store.NewMigrator(migrations.FS, migrations.Dir).Run(ctx, mc.MigrationExecutor())
		if err != nil {
			return nil, fmt.Errorf("migrations: %w", err)
		}
		log.Info("migrations applied", logger.Count(len(res.Applied)), logger.Int("skipped", len(res.Skipped)))
	}

	// 2. Redis (opcional)
	var rdb *goredis.Client
	if cfg.NeedsRedis() {
		rdb, err = cache.NewRedisConn(ctx, cache.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.closers = append(app.closers, rdb.Close)
	}

	// 3. Códigos y cache de permisos
	codes := conn.Codes()
	if cfg.Codes.Backend == "redis" {
		codes = redisstore.NewCodeStore(rdb, cfg.Redis.Prefix)
	}
	var permCache cache.Client
	if cfg.Cache.Kind == "redis" {
		permCache = cache.NewRedis(rdb, cfg.Redis.Prefix)
	} else {
		permCache = cache.NewMemory(cfg.Redis.Prefix)
	}
	app.closers = append(app.closers, permCache.Close)

	// 4. Servicios
	engine := rbacsvc.NewEngine(conn.RBAC(), permCache, cfg.Cache.PermissionsTTL)
	members := rbacsvc.NewMembers(conn.Memberships())
	app.Engine = engine

	keys, err := signingKeys(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.JWT.SigningSeed == "" {
		log.Warn("jwt.signing_seed not set, using an ephemeral key; tokens will not survive restarts")
	}
	tokens := jwt.NewIssuer(cfg.JWT.Issuer, keys, cfg.JWT.AccessTTL)
	app.Tokens = tokens

	issuer := authzsvc.NewIssuer(authzsvc.IssuerDeps{
		Codes: codes, Roles: engine, Members: conn.Memberships(),
		TTL: cfg.Codes.TTL, CodeBytes: cfg.Codes.Bytes,
	})
	exchanger := authzsvc.NewExchanger(authzsvc.ExchangerDeps{
		Codes: codes, Roles: engine, Members: conn.Memberships(), Minter: tokens,
	})
	app.Sweeper = &authzsvc.Sweeper{Codes: codes, Interval: cfg.Codes.SweepInterval}

	if err := bootstrap.EnsurePlatformAdmins(ctx, bootstrap.AdminBootstrapConfig{
		Roles: engine, Principals: cfg.Bootstrap.PlatformAdmins,
	}); err != nil {
		return nil, err
	}

	// 5. Métricas
	mcfg := metrics.Config{}
	if pp, ok := conn.(poolProvider); ok {
		mcfg.Pool = pp.Pool
	}
	metricsHandler, err := metrics.Register(mcfg)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}

	// 6. HTTP
	checks := []healthctrl.Check{{Name: "store", Ping: conn.Ping}, {Name: "cache", Ping: permCache.Ping}}
	if rdb != nil && cfg.Cache.Kind != "redis" {
		checks = append(checks, healthctrl.Check{Name: "redis", Ping: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
	}

	deps := router.Deps{
		Authz: authzctrl.NewController(issuer, exchanger, authzctrl.CookieConfig{
			Enabled:  cfg.Cookies.Enabled,
			Domain:   cfg.Cookies.Domain,
			Secure:   cfg.Cookies.Secure,
			SameSite: authzctrl.ParseSameSite(cfg.Cookies.SameSite),
		}),
		RBAC:        rbacctrl.NewController(engine, members),
		Health:      healthctrl.NewController(tokens.JWKSJSON, checks...),
		Tokens:      tokens,
		Permissions: engine,
		RoleScope: func(ctx context.Context, id string) (repository.Scope, error) {
			r, err := engine.LookupRole(ctx, id)
			if err != nil {
				return repository.Scope{}, err
			}
			return r.Scope, nil
		},
		PermissionScope: func(ctx context.Context, id string) (repository.Scope, error) {
			p, err := engine.LookupPermission(ctx, id)
			if err != nil {
				return repository.Scope{}, err
			}
			return p.Scope, nil
		},
		Metrics: metricsHandler,
		IsProd:  cfg.IsProd(),
	}
	if cfg.Rate.Enabled {
		deps.MintLimit = rateLimit(rdb, cfg.Redis.Prefix, "mint", cfg.Rate.Mint)
		deps.ExchangeLimit = rateLimit(rdb, cfg.Redis.Prefix, "exchange", cfg.Rate.Exchange)
	}
	app.Handler = router.New(deps)

	log.Info("service wired",
		logger.String("storage", conn.Name()),
		logger.String("codes", cfg.Codes.Backend),
		logger.String("cache", cfg.Cache.Kind),
		logger.Bool("rate_limit", cfg.Rate.Enabled),
	)
	return app, nil
}

func signingKeys(cfg *config.Config) (*jwt.KeySet, error) {
	if cfg.JWT.SigningSeed != "" {
		return jwt.NewKeySetFromSeed(cfg.JWT.SigningSeed, cfg.JWT.KID)
	}
	return jwt.NewDevEd25519(cfg.JWT.KID)
}

// rateLimit usa redis si hay conexión (compartido entre réplicas), si no httprate local.
func rateLimit(rdb *goredis.Client, prefix, bucket string, w config.RateWindow) mw.Middleware {
	if rdb != nil {
		return mw.WithRateLimit(rate.NewRedisLimiter(rdb, prefix, bucket, w.Limit, w.Window))
	}
	return mw.WithLocalRateLimit(w.Limit, w.Window)
}
