package main

import (
	"context"
	"flag"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/dropDatabas3/consolegate/internal/config"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	"github.com/dropDatabas3/consolegate/internal/store"
	migrations "github.com/dropDatabas3/consolegate/migrations/postgres"
)

func main() {
	var (
		configPath = flag.String("config", os.Getenv("CONFIG_PATH"), "Path to YAML config (optional)")
		dsn        = flag.String("dsn", "", "Postgres DSN (overrides storage.dsn)")
		list       = flag.Bool("list", false, "Only list embedded migrations")
	)
	flag.Parse()
	_ = godotenv.Load()

	logger.Init(logger.Config{Env: os.Getenv("APP_ENV"), Level: "info", ServiceName: "consolegate-migrate"})
	defer func() { _ = logger.Sync() }()
	log := logger.S()

	m := store.NewMigrator(migrations.FS, migrations.Dir)
	if *list {
		migs, err := m.ParseMigrations()
		if err != nil {
			log.Fatalf("parse migrations: %v", err)
		}
		for _, mig := range migs {
			log.Infof("%04d %s", mig.Version, mig.Name)
		}
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	if *dsn != "" {
		cfg.Storage.DSN = *dsn
	}
	if cfg.Storage.DSN == "" {
		log.Fatal("storage.dsn (or --dsn / STORAGE_DSN) is required")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Storage.DSN)
	if err != nil {
		log.Fatalf("pgxpool: %v", err)
	}
	defer pool.Close()

	res, err := m.Run(ctx, pool)
	if err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Infof("applied %d migrations (skipped %d) in %s", len(res.Applied), len(res.Skipped), res.Duration)
}
