package pg

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type rbacRepo struct {
	pool *pgxpool.Pool
}

// Los ids ausentes del scope se guardan como '' (ver 0002_rbac.sql).
func scopeArgs(s repository.Scope) (string, string, string) {
	return string(s.Kind), s.TenantID, s.AppID
}

const roleCols = `
	r.id::text, r.code, r.name, r.description, r.scope_kind, r.tenant_id, r.app_id, r.is_system,
	r.created_at, r.updated_at,
	(SELECT COUNT(*) FROM rbac_role_assignment a WHERE a.role_id = r.id)`

const permCols = `
	p.id::text, p.code, p.category, p.name, p.description, p.scope_kind, p.tenant_id, p.app_id,
	p.created_at, p.updated_at`

func scanRole(row pgx.Row) (*repository.Role, error) {
	var (
		r    repository.Role
		kind string
	)
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.Description, &kind, &r.Scope.TenantID, &r.Scope.AppID,
		&r.IsSystem, &r.CreatedAt, &r.UpdatedAt, &r.PrincipalCount)
	if err != nil {
		return nil, err
	}
	r.Scope.Kind = repository.ScopeKind(kind)
	return &r, nil
}

func scanPermission(row pgx.Row) (*repository.Permission, error) {
	var (
		p    repository.Permission
		kind string
	)
	err := row.Scan(&p.ID, &p.Code, &p.Category, &p.Name, &p.Description, &kind, &p.Scope.TenantID, &p.Scope.AppID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Scope.Kind = repository.ScopeKind(kind)
	return &p, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, *v)
	}
	return out, mapErr(rows.Err())
}

func pageArgs(f repository.ListFilter) (any, int) {
	if f.PageSize <= 0 {
		return nil, 0 // LIMIT NULL = sin límite
	}
	return f.PageSize, f.Offset()
}

// ─── Roles ───

func (r *rbacRepo) CreateRole(ctx context.Context, scope repository.Scope, in repository.RoleInput) (*repository.Role, error) {
	kind, tid, aid := scopeArgs(scope)
	row := r.pool.QueryRow(ctx, `
		WITH r AS (
			INSERT INTO rbac_role (id, code, name, description, scope_kind, tenant_id, app_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING *
		)
		SELECT r.id::text, r.code, r.name, r.description, r.scope_kind, r.tenant_id, r.app_id, r.is_system,
			r.created_at, r.updated_at, 0::bigint
		FROM r`,
		uuid.NewString(), in.Code, in.Name, in.Description, kind, tid, aid)
	role, err := scanRole(row)
	return role, mapErr(err)
}

func (r *rbacRepo) GetRole(ctx context.Context, id string) (*repository.Role, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleCols+` FROM rbac_role r WHERE r.id = $1`, id))
	return role, mapErr(err)
}

func (r *rbacRepo) GetRoleByCode(ctx context.Context, scope repository.Scope, code string) (*repository.Role, error) {
	kind, tid, aid := scopeArgs(scope)
	role, err := scanRole(r.pool.QueryRow(ctx, `
		SELECT `+roleCols+` FROM rbac_role r
		WHERE r.scope_kind = $1 AND r.tenant_id = $2 AND r.app_id = $3 AND r.code = $4`,
		kind, tid, aid, code))
	return role, mapErr(err)
}

func (r *rbacRepo) UpdateRole(ctx context.Context, id string, in repository.RoleInput) (*repository.Role, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE rbac_role SET code = $2, name = $3, description = $4, updated_at = NOW()
		WHERE id = $1`, id, in.Code, in.Name, in.Description)
	if err != nil {
		return nil, mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return nil, repository.ErrNotFound
	}
	return r.GetRole(ctx, id)
}

// DeleteRole borra explícitamente asignaciones y links antes del rol, en una tx.
func (r *rbacRepo) DeleteRole(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	// lock de la fila para que nadie asigne el rol mientras lo borramos
	var locked string
	if err := tx.QueryRow(ctx, `SELECT id::text FROM rbac_role WHERE id = $1 FOR UPDATE`, id).Scan(&locked); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role_assignment WHERE role_id = $1`, id); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role_permission WHERE role_id = $1`, id); err != nil {
		return mapErr(err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role WHERE id = $1`, id); err != nil {
		return mapErr(err)
	}
	return mapErr(tx.Commit(ctx))
}

func (r *rbacRepo) ListRoles(ctx context.Context, f repository.ListFilter) ([]repository.Role, int, error) {
	kind, tid, aid := scopeArgs(f.Scope)
	search := ""
	if f.Search != "" {
		search = likePattern(f.Search)
	}
	where := `
		WHERE r.scope_kind = $1 AND r.tenant_id = $2 AND r.app_id = $3
		  AND ($4 = '' OR r.code ILIKE $4 OR r.name ILIKE $4 OR r.description ILIKE $4)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rbac_role r`+where, kind, tid, aid, search).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit, offset := pageArgs(f)
	rows, err := r.pool.Query(ctx, `SELECT `+roleCols+` FROM rbac_role r`+where+`
		ORDER BY r.created_at DESC, r.id
		LIMIT $5 OFFSET $6`, kind, tid, aid, search, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	items, err := collect(rows, scanRole)
	return items, total, err
}

// ─── Permisos ───

func (r *rbacRepo) CreatePermission(ctx context.Context, scope repository.Scope, in repository.PermissionInput) (*repository.Permission, error) {
	kind, tid, aid := scopeArgs(scope)
	p, err := scanPermission(r.pool.QueryRow(ctx, `
		INSERT INTO rbac_permission AS p (id, code, category, name, description, scope_kind, tenant_id, app_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+permCols,
		uuid.NewString(), in.Code, in.Category, in.Name, in.Description, kind, tid, aid))
	return p, mapErr(err)
}

func (r *rbacRepo) GetPermission(ctx context.Context, id string) (*repository.Permission, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	p, err := scanPermission(r.pool.QueryRow(ctx, `SELECT `+permCols+` FROM rbac_permission p WHERE p.id = $1`, id))
	return p, mapErr(err)
}

func (r *rbacRepo) UpdatePermission(ctx context.Context, id string, in repository.PermissionInput) (*repository.Permission, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	p, err := scanPermission(r.pool.QueryRow(ctx, `
		UPDATE rbac_permission AS p
		SET code = $2, category = $3, name = $4, description = $5, updated_at = NOW()
		WHERE p.id = $1
		RETURNING `+permCols, id, in.Code, in.Category, in.Name, in.Description))
	return p, mapErr(err)
}

func (r *rbacRepo) DeletePermission(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return mapErr(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM rbac_role_permission WHERE permission_id = $1`, id); err != nil {
		return mapErr(err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM rbac_permission WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return mapErr(tx.Commit(ctx))
}

func (r *rbacRepo) ListPermissions(ctx context.Context, f repository.ListFilter) ([]repository.Permission, int, error) {
	kind, tid, aid := scopeArgs(f.Scope)
	search := ""
	if f.Search != "" {
		search = likePattern(f.Search)
	}
	where := `
		WHERE p.scope_kind = $1 AND p.tenant_id = $2 AND p.app_id = $3
		  AND ($4 = '' OR p.category = $4)
		  AND ($5 = '' OR p.code ILIKE $5 OR p.name ILIKE $5 OR p.description ILIKE $5)`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rbac_permission p`+where,
		kind, tid, aid, f.Category, search).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}

	limit, offset := pageArgs(f)
	rows, err := r.pool.Query(ctx, `SELECT `+permCols+` FROM rbac_permission p`+where+`
		ORDER BY p.category, p.code
		LIMIT $6 OFFSET $7`, kind, tid, aid, f.Category, search, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	items, err := collect(rows, scanPermission)
	return items, total, err
}

func (r *rbacRepo) ListCategories(ctx context.Context, scope repository.Scope) ([]string, error) {
	kind, tid, aid := scopeArgs(scope)
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT category FROM rbac_permission
		WHERE scope_kind = $1 AND tenant_id = $2 AND app_id = $3 AND category <> ''
		ORDER BY category`, kind, tid, aid)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return out, mapErr(err)
}

// ─── Role ↔ Permission ───

func (r *rbacRepo) ListRolePermissions(ctx context.Context, roleID string) ([]repository.Permission, error) {
	if _, err := r.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+permCols+`
		FROM rbac_role_permission rp
		JOIN rbac_permission p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.category, p.code`, roleID)
	if err != nil {
		return nil, mapErr(err)
	}
	return collect(rows, scanPermission)
}

func (r *rbacRepo) GrantPermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	ids, ok := validIDs(permissionIDs)
	if !validID(roleID) || !ok {
		return repository.ErrNotFound
	}
	if len(ids) == 0 {
		return nil
	}
	// FK violation (rol o permiso inexistente) mapea a ErrNotFound.
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rbac_role_permission (role_id, permission_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`, roleID, ids)
	return mapErr(err)
}

func (r *rbacRepo) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	if !validID(roleID) || !validID(permissionID) {
		return repository.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM rbac_role_permission WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// ─── Asignaciones ───

func (r *rbacRepo) ListAssignedRoles(ctx context.Context, principalID string, scope repository.Scope) ([]repository.Role, error) {
	kind, tid, aid := scopeArgs(scope)
	rows, err := r.pool.Query(ctx, `
		SELECT `+roleCols+`
		FROM rbac_role r
		JOIN rbac_role_assignment ra ON ra.role_id = r.id
		WHERE ra.principal_id = $1 AND r.scope_kind = $2 AND r.tenant_id = $3 AND r.app_id = $4
		ORDER BY r.code`, principalID, kind, tid, aid)
	if err != nil {
		return nil, mapErr(err)
	}
	return collect(rows, scanRole)
}

// ReplaceAssignments serializa por (principal, scope) con un advisory lock de
// la tx; el diff se lee y se aplica dentro de la misma tx.
func (r *rbacRepo) ReplaceAssignments(ctx context.Context, principalID string, scope repository.Scope, roleIDs []string) (repository.AssignmentDiff, error) {
	want, ok := validIDs(roleIDs)
	if !ok {
		return repository.AssignmentDiff{}, fmt.Errorf("%w: malformed role id", repository.ErrInvalidInput)
	}
	kind, tid, aid := scopeArgs(scope)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return repository.AssignmentDiff{}, mapErr(err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`,
		"rbac:assign:"+principalID+":"+scope.String()); err != nil {
		return repository.AssignmentDiff{}, mapErr(err)
	}

	if len(want) > 0 {
		var n int
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*) FROM rbac_role
			WHERE id = ANY($1::uuid[]) AND scope_kind = $2 AND tenant_id = $3 AND app_id = $4`,
			want, kind, tid, aid).Scan(&n); err != nil {
			return repository.AssignmentDiff{}, mapErr(err)
		}
		if n != len(want) {
			return repository.AssignmentDiff{}, fmt.Errorf("%w: every role must exist in scope %s", repository.ErrInvalidInput, scope)
		}
	}

	rows, err := tx.Query(ctx, `
		SELECT ra.role_id::text
		FROM rbac_role_assignment ra
		JOIN rbac_role r ON r.id = ra.role_id
		WHERE ra.principal_id = $1 AND r.scope_kind = $2 AND r.tenant_id = $3 AND r.app_id = $4`,
		principalID, kind, tid, aid)
	if err != nil {
		return repository.AssignmentDiff{}, mapErr(err)
	}
	current, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return repository.AssignmentDiff{}, mapErr(err)
	}

	diff := repository.AssignmentDiff{Added: []string{}, Removed: []string{}}
	for _, id := range want {
		if !slices.Contains(current, id) {
			diff.Added = append(diff.Added, id)
		}
	}
	for _, id := range current {
		if !slices.Contains(want, id) {
			diff.Removed = append(diff.Removed, id)
		}
	}

	if len(diff.Removed) > 0 {
		if _, err := tx.Exec(ctx,
			`DELETE FROM rbac_role_assignment WHERE principal_id = $1 AND role_id = ANY($2::uuid[])`,
			principalID, diff.Removed); err != nil {
			return repository.AssignmentDiff{}, mapErr(err)
		}
	}
	if len(diff.Added) > 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO rbac_role_assignment (role_id, principal_id)
			SELECT unnest($2::uuid[]), $1
			ON CONFLICT DO NOTHING`, principalID, diff.Added); err != nil {
			return repository.AssignmentDiff{}, mapErr(err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.AssignmentDiff{}, mapErr(err)
	}
	slices.Sort(diff.Added)
	slices.Sort(diff.Removed)
	return diff, nil
}

func (r *rbacRepo) AddAssignment(ctx context.Context, principalID, roleID string) error {
	if !validID(roleID) {
		return repository.ErrNotFound
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO rbac_role_assignment (role_id, principal_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, roleID, principalID)
	return mapErr(err)
}

func (r *rbacRepo) HasAssignmentWithin(ctx context.Context, principalID string, scope repository.Scope) (bool, error) {
	var cond string
	args := []any{principalID}
	switch scope.Kind {
	case repository.ScopePlatform:
		cond = `r.scope_kind = 'platform'`
	case repository.ScopeTenant:
		cond = `r.scope_kind IN ('tenant', 'app') AND r.tenant_id = $2`
		args = append(args, scope.TenantID)
	default:
		cond = `r.scope_kind = 'app' AND r.tenant_id = $2 AND r.app_id = $3`
		args = append(args, scope.TenantID, scope.AppID)
	}
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM rbac_role_assignment ra
			JOIN rbac_role r ON r.id = ra.role_id
			WHERE ra.principal_id = $1 AND `+cond+`)`, args...).Scan(&ok)
	return ok, mapErr(err)
}

func (r *rbacRepo) ListAssignedTenants(ctx context.Context, principalID string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT r.tenant_id
		FROM rbac_role_assignment ra
		JOIN rbac_role r ON r.id = ra.role_id
		WHERE ra.principal_id = $1 AND r.tenant_id <> ''
		ORDER BY r.tenant_id`, principalID)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return out, mapErr(err)
}

func (r *rbacRepo) ListRoleHolders(ctx context.Context, roleID string, f repository.ListFilter) ([]repository.RoleHolder, int, error) {
	if !validID(roleID) {
		return nil, 0, repository.ErrNotFound
	}
	search := ""
	if f.Search != "" {
		search = likePattern(f.Search)
	}

	var (
		exists bool
		total  int
	)
	if err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM rbac_role WHERE id = $1),
		       (SELECT COUNT(*) FROM rbac_role_assignment
		        WHERE role_id = $1 AND ($2 = '' OR principal_id ILIKE $2))`,
		roleID, search).Scan(&exists, &total); err != nil {
		return nil, 0, mapErr(err)
	}
	if !exists {
		return nil, 0, repository.ErrNotFound
	}

	limit, offset := pageArgs(f)
	rows, err := r.pool.Query(ctx, `
		SELECT principal_id, created_at
		FROM rbac_role_assignment
		WHERE role_id = $1 AND ($2 = '' OR principal_id ILIKE $2)
		ORDER BY created_at DESC, principal_id
		LIMIT $3 OFFSET $4`, roleID, search, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	items, err := pgx.CollectRows(rows, pgx.RowToStructByPos[repository.RoleHolder])
	if err != nil {
		return nil, 0, mapErr(err)
	}
	return items, total, nil
}

// EffectivePermissions: un rol platform cubre todo; uno tenant cubre requests
// de su tenant (tenant_id nunca es '' en esos roles); uno app sólo su par.
func (r *rbacRepo) EffectivePermissions(ctx context.Context, principalID string, scope repository.Scope) ([]string, error) {
	_, tid, aid := scopeArgs(scope)
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.code
		FROM rbac_role_assignment ra
		JOIN rbac_role r ON r.id = ra.role_id
		JOIN rbac_role_permission rp ON rp.role_id = r.id
		JOIN rbac_permission p ON p.id = rp.permission_id
		WHERE ra.principal_id = $1 AND (
			r.scope_kind = 'platform'
			OR (r.scope_kind = 'tenant' AND r.tenant_id = $2)
			OR (r.scope_kind = 'app' AND r.tenant_id = $2 AND r.app_id = $3)
		)
		ORDER BY p.code`, principalID, tid, aid)
	if err != nil {
		return nil, mapErr(err)
	}
	out, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return out, mapErr(err)
}
