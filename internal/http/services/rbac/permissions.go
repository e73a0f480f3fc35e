package rbac

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

// CreatePermission: ErrConflict si (category, code) ya existe en scope.
func (e *Engine) CreatePermission(ctx context.Context, scope repository.Scope, in repository.PermissionInput) (*repository.Permission, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	in, err := normalizePermission(in)
	if err != nil {
		return nil, err
	}

	var p *repository.Permission
	err = retry(ctx, func(ctx context.Context) error {
		p, err = e.repo.CreatePermission(ctx, scope, in)
		return err
	})
	e.mutated(ctx, "create_permission", err)
	return p, err
}

// LookupPermission busca sin restringir scope.
func (e *Engine) LookupPermission(ctx context.Context, id string) (*repository.Permission, error) {
	var p *repository.Permission
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		p, err = e.repo.GetPermission(ctx, id)
		return err
	})
	return p, err
}

func (e *Engine) GetPermission(ctx context.Context, scope repository.Scope, id string) (*repository.Permission, error) {
	p, err := e.LookupPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Scope != scope {
		return nil, fmt.Errorf("%w: permission %s not in scope %s", repository.ErrNotFound, id, scope)
	}
	return p, nil
}

func (e *Engine) UpdatePermission(ctx context.Context, scope repository.Scope, id string, in repository.PermissionInput) (*repository.Permission, error) {
	in, err := normalizePermission(in)
	if err != nil {
		return nil, err
	}
	if _, err := e.GetPermission(ctx, scope, id); err != nil {
		return nil, err
	}

	var p *repository.Permission
	err = retry(ctx, func(ctx context.Context) error {
		p, err = e.repo.UpdatePermission(ctx, id, in)
		return err
	})
	e.mutated(ctx, "update_permission", err)
	return p, err
}

// DeletePermission borra el permiso y sus links a roles en una tx.
func (e *Engine) DeletePermission(ctx context.Context, scope repository.Scope, id string) error {
	if _, err := e.GetPermission(ctx, scope, id); err != nil {
		return err
	}
	err := retry(ctx, func(ctx context.Context) error { return e.repo.DeletePermission(ctx, id) })
	e.mutated(ctx, "delete_permission", err)
	return err
}

func (e *Engine) ListPermissions(ctx context.Context, f repository.ListFilter) ([]repository.Permission, int, error) {
	if err := f.Scope.Validate(); err != nil {
		return nil, 0, err
	}
	f = NormalizeFilter(f)

	var (
		items []repository.Permission
		total int
	)
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = e.repo.ListPermissions(ctx, f)
		return err
	})
	return items, total, err
}

// ListCategories devuelve las categorías (ya plegadas) usadas en scope.
func (e *Engine) ListCategories(ctx context.Context, scope repository.Scope) ([]string, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out []string
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.repo.ListCategories(ctx, scope)
		return err
	})
	return out, err
}

// ─── Role ↔ Permission ───

func (e *Engine) ListRolePermissions(ctx context.Context, scope repository.Scope, roleID string) ([]repository.Permission, error) {
	if _, err := e.GetRole(ctx, scope, roleID); err != nil {
		return nil, err
	}
	var out []repository.Permission
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.repo.ListRolePermissions(ctx, roleID)
		return err
	})
	return out, err
}

// GrantPermissionsToRole agrega permisos (idempotente). Cada permiso debe
// existir y su scope debe cubrir el del rol.
func (e *Engine) GrantPermissionsToRole(ctx context.Context, scope repository.Scope, roleID string, permissionIDs []string) error {
	role, err := e.mutableRole(ctx, scope, roleID)
	if err != nil {
		return err
	}
	ids := dedupTrim(permissionIDs)
	if len(ids) == 0 {
		return invalid("permission_ids is required")
	}
	for _, pid := range ids {
		p, err := e.LookupPermission(ctx, pid)
		if err != nil {
			return err
		}
		if !p.Scope.Covers(role.Scope) {
			return invalid("permission %s (%s) does not apply to role scope %s", p.ID, p.Scope, role.Scope)
		}
	}

	err = retry(ctx, func(ctx context.Context) error { return e.repo.GrantPermissions(ctx, roleID, ids) })
	e.mutated(ctx, "grant_permissions", err)
	return err
}

// RevokePermissionFromRole: ErrNotFound si el permiso no estaba concedido.
func (e *Engine) RevokePermissionFromRole(ctx context.Context, scope repository.Scope, roleID, permissionID string) error {
	if _, err := e.mutableRole(ctx, scope, roleID); err != nil {
		return err
	}
	err := retry(ctx, func(ctx context.Context) error { return e.repo.RevokePermission(ctx, roleID, permissionID) })
	e.mutated(ctx, "revoke_permission", err)
	return err
}
