package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type codeRepo struct {
	pool *pgxpool.Pool
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *codeRepo) Put(ctx context.Context, codeHash string, b repository.CodeBundle, ttl time.Duration) error {
	b, err := repository.StampExpiry(b, ttl)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO console_auth_code (code_hash, principal_id, target_context, tenant_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		codeHash, b.PrincipalID, string(b.Target), nullIfEmpty(b.TenantID), b.IssuedAt, b.ExpiresAt,
	)
	return mapErr(err)
}

// TryConsume: el UPDATE condicional es el compare-and-set. Sólo una tx
// puede pasar consumed_at de NULL a now; el resto no matchea filas.
func (r *codeRepo) TryConsume(ctx context.Context, codeHash string, now time.Time) (*repository.CodeBundle, error) {
	var (
		b      repository.CodeBundle
		target string
		tenant *string
	)
	err := r.pool.QueryRow(ctx, `
		UPDATE console_auth_code
		SET consumed_at = $2
		WHERE code_hash = $1 AND consumed_at IS NULL AND expires_at > $2
		RETURNING principal_id, target_context, tenant_id, issued_at, expires_at`,
		codeHash, now,
	).Scan(&b.PrincipalID, &target, &tenant, &b.IssuedAt, &b.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	b.Target = repository.TargetContext(target)
	if tenant != nil {
		b.TenantID = *tenant
	}
	return &b, nil
}

func (r *codeRepo) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM console_auth_code WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}
