package pg

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type membershipRepo struct {
	pool *pgxpool.Pool
}

func (r *membershipRepo) Add(ctx context.Context, tenantID, principalID string) (*repository.Membership, error) {
	if strings.TrimSpace(tenantID) == "" || strings.TrimSpace(principalID) == "" {
		return nil, repository.ErrInvalidInput
	}
	m := repository.Membership{TenantID: tenantID, PrincipalID: principalID}
	// DO UPDATE no-op para que RETURNING devuelva la fila existente.
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tenant_membership (tenant_id, principal_id)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id, principal_id) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		RETURNING created_at`,
		tenantID, principalID,
	).Scan(&m.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

func (r *membershipRepo) Remove(ctx context.Context, tenantID, principalID string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tenant_membership WHERE tenant_id = $1 AND principal_id = $2`,
		tenantID, principalID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *membershipRepo) IsMember(ctx context.Context, tenantID, principalID string) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tenant_membership WHERE tenant_id = $1 AND principal_id = $2)`,
		tenantID, principalID,
	).Scan(&ok)
	return ok, mapErr(err)
}

func (r *membershipRepo) ListMembers(ctx context.Context, tenantID string) ([]repository.Membership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tenant_id, principal_id, created_at
		FROM tenant_membership WHERE tenant_id = $1
		ORDER BY principal_id`, tenantID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowToStructByPos[repository.Membership])
	return out, mapErr(err)
}

func (r *membershipRepo) ListTenants(ctx context.Context, principalID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tenant_id FROM tenant_membership WHERE principal_id = $1 ORDER BY tenant_id`, principalID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return out, mapErr(err)
}
