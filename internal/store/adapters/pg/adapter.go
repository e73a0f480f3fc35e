// Package pg implementa el adapter PostgreSQL del store sobre pgxpool.
package pg

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/store"
)

func init() {
	store.RegisterAdapter(&postgresAdapter{})
}

// postgresAdapter implementa store.Adapter para PostgreSQL.
type postgresAdapter struct{}

func (a *postgresAdapter) Name() string { return "postgres" }

func (a *postgresAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.AdapterConnection, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return NewConn(pool), nil
}

// Conn representa una conexión activa a PostgreSQL.
type Conn struct {
	pool *pgxpool.Pool

	codes   *codeRepo
	rbac    *rbacRepo
	members *membershipRepo
}

// NewConn envuelve un pool ya abierto.
func NewConn(pool *pgxpool.Pool) *Conn {
	return &Conn{
		pool:    pool,
		codes:   &codeRepo{pool: pool},
		rbac:    &rbacRepo{pool: pool},
		members: &membershipRepo{pool: pool},
	}
}

func (c *Conn) Name() string { return "postgres" }

func (c *Conn) Ping(ctx context.Context) error { return mapErr(c.pool.Ping(ctx)) }

func (c *Conn) Close() error {
	c.pool.Close()
	return nil
}

// Pool expone el pool para métricas.
func (c *Conn) Pool() *pgxpool.Pool { return c.pool }

// MigrationExecutor implementa store.MigratableConnection.
func (c *Conn) MigrationExecutor() store.PgxExecutor { return c.pool }

func (c *Conn) Codes() repository.CodeRepository             { return c.codes }
func (c *Conn) RBAC() repository.RBACRepository              { return c.rbac }
func (c *Conn) Memberships() repository.MembershipRepository { return c.members }
