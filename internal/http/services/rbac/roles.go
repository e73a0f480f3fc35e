package rbac

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// CreateRole crea un rol no-sistema. ErrConflict si code ya existe en scope.
func (e *Engine) CreateRole(ctx context.Context, scope repository.Scope, in repository.RoleInput) (*repository.Role, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	in, err := normalizeRole(in)
	if err != nil {
		return nil, err
	}

	var role *repository.Role
	err = retry(ctx, func(ctx context.Context) error {
		role, err = e.repo.CreateRole(ctx, scope, in)
		return err
	})
	e.mutated(ctx, "create_role", err)
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("role created",
		logger.Layer("service"), logger.Component(componentRBAC),
		logger.RoleID(role.ID), logger.Scope(scope.String()))
	return role, nil
}

// LookupRole busca un rol sin restringir scope. Lo usa el resolver de scope
// de las rutas /rbac/roles/{id}.
func (e *Engine) LookupRole(ctx context.Context, id string) (*repository.Role, error) {
	var role *repository.Role
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		role, err = e.repo.GetRole(ctx, id)
		return err
	})
	return role, err
}

// GetRole retorna el rol si vive exactamente en scope.
func (e *Engine) GetRole(ctx context.Context, scope repository.Scope, id string) (*repository.Role, error) {
	role, err := e.LookupRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if role.Scope != scope {
		return nil, fmt.Errorf("%w: role %s not in scope %s", repository.ErrNotFound, id, scope)
	}
	return role, nil
}

// mutableRole carga el rol en scope y rechaza roles de sistema.
func (e *Engine) mutableRole(ctx context.Context, scope repository.Scope, id string) (*repository.Role, error) {
	role, err := e.GetRole(ctx, scope, id)
	if err != nil {
		return nil, err
	}
	if role.IsSystem {
		return nil, repository.ErrSystemRoleProtected
	}
	return role, nil
}

// UpdateRole cambia code/name/description. ErrConflict si el code choca con otro rol.
func (e *Engine) UpdateRole(ctx context.Context, scope repository.Scope, id string, in repository.RoleInput) (*repository.Role, error) {
	in, err := normalizeRole(in)
	if err != nil {
		return nil, err
	}
	if _, err := e.mutableRole(ctx, scope, id); err != nil {
		return nil, err
	}

	var role *repository.Role
	err = retry(ctx, func(ctx context.Context) error {
		role, err = e.repo.UpdateRole(ctx, id, in)
		return err
	})
	e.mutated(ctx, "update_role", err)
	return role, err
}

// DeleteRole borra el rol y, en la misma tx, sus asignaciones y permisos.
func (e *Engine) DeleteRole(ctx context.Context, scope repository.Scope, id string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentRBAC),
		logger.Op("DeleteRole"),
		logger.RoleID(id),
	)
	if _, err := e.mutableRole(ctx, scope, id); err != nil {
		return err
	}

	err := retry(ctx, func(ctx context.Context) error { return e.repo.DeleteRole(ctx, id) })
	e.mutated(ctx, "delete_role", err)
	if err != nil {
		log.Error("delete role failed", logger.Err(err))
		return err
	}
	log.Info("role deleted")
	return nil
}

// ListRoles lista roles del scope, más nuevos primero.
func (e *Engine) ListRoles(ctx context.Context, f repository.ListFilter) ([]repository.Role, int, error) {
	if err := f.Scope.Validate(); err != nil {
		return nil, 0, err
	}
	f = NormalizeFilter(f)
	f.Category = ""

	var (
		items []repository.Role
		total int
	)
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = e.repo.ListRoles(ctx, f)
		return err
	})
	return items, total, err
}
