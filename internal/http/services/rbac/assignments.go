package rbac

import (
	"context"
	"strings"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// AssignRoles reemplaza el set de roles del principal en scope por roleIDs.
// Lista vacía = quitar todo en ese scope. Roles de otros scopes no se tocan.
func (e *Engine) AssignRoles(ctx context.Context, principalID string, scope repository.Scope, roleIDs []string) (repository.AssignmentDiff, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return repository.AssignmentDiff{}, invalid("principal_id is required")
	}
	if err := scope.Validate(); err != nil {
		return repository.AssignmentDiff{}, err
	}
	ids := dedupTrim(roleIDs)

	var diff repository.AssignmentDiff
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		diff, err = e.repo.ReplaceAssignments(ctx, principalID, scope, ids)
		return err
	})
	e.mutated(ctx, "assign_roles", err)
	if err != nil {
		return repository.AssignmentDiff{}, err
	}
	logger.From(ctx).Info("roles assigned",
		logger.Layer("service"),
		logger.Component(componentRBAC),
		logger.PrincipalID(principalID),
		logger.Scope(scope.String()),
		logger.Int("added", len(diff.Added)),
		logger.Int("removed", len(diff.Removed)),
	)
	return diff, nil
}

// ListAssignedRoles retorna los roles del principal definidos en scope.
func (e *Engine) ListAssignedRoles(ctx context.Context, principalID string, scope repository.Scope) ([]repository.Role, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out []repository.Role
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.repo.ListAssignedRoles(ctx, principalID, scope)
		return err
	})
	return out, err
}

// EnsureRole asigna (aditivo) el rol code de scope al principal. Lo usa el
// bootstrap de administradores.
func (e *Engine) EnsureRole(ctx context.Context, principalID string, scope repository.Scope, code string) error {
	var role *repository.Role
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		role, err = e.repo.GetRoleByCode(ctx, scope, code)
		return err
	})
	if err != nil {
		return err
	}
	err = retry(ctx, func(ctx context.Context) error { return e.repo.AddAssignment(ctx, principalID, role.ID) })
	e.mutated(ctx, "ensure_role", err)
	return err
}
