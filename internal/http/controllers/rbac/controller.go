// Package rbac expone /rbac: roles, permisos, asignaciones y miembros.
// El scope ya viene resuelto en el contexto por WithRequestScope.
package rbac

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	mw "github.com/dropDatabas3/consolegate/internal/http/middlewares"
	rbacsvc "github.com/dropDatabas3/consolegate/internal/http/services/rbac"
)

// Engine es la superficie del motor RBAC que usan los controllers.
type Engine interface {
	CreateRole(ctx context.Context, scope repository.Scope, in repository.RoleInput) (*repository.Role, error)
	GetRole(ctx context.Context, scope repository.Scope, id string) (*repository.Role, error)
	UpdateRole(ctx context.Context, scope repository.Scope, id string, in repository.RoleInput) (*repository.Role, error)
	DeleteRole(ctx context.Context, scope repository.Scope, id string) error
	ListRoles(ctx context.Context, f repository.ListFilter) ([]repository.Role, int, error)

	CreatePermission(ctx context.Context, scope repository.Scope, in repository.PermissionInput) (*repository.Permission, error)
	GetPermission(ctx context.Context, scope repository.Scope, id string) (*repository.Permission, error)
	UpdatePermission(ctx context.Context, scope repository.Scope, id string, in repository.PermissionInput) (*repository.Permission, error)
	DeletePermission(ctx context.Context, scope repository.Scope, id string) error
	ListPermissions(ctx context.Context, f repository.ListFilter) ([]repository.Permission, int, error)
	ListCategories(ctx context.Context, scope repository.Scope) ([]string, error)

	ListRolePermissions(ctx context.Context, scope repository.Scope, roleID string) ([]repository.Permission, error)
	GrantPermissionsToRole(ctx context.Context, scope repository.Scope, roleID string, permissionIDs []string) error
	RevokePermissionFromRole(ctx context.Context, scope repository.Scope, roleID, permissionID string) error

	AssignRoles(ctx context.Context, principalID string, scope repository.Scope, roleIDs []string) (repository.AssignmentDiff, error)
	ListAssignedRoles(ctx context.Context, principalID string, scope repository.Scope) ([]repository.Role, error)
	ResolveEffectivePermissions(ctx context.Context, principalID string, scope repository.Scope) ([]string, error)

	CheckRoles(ctx context.Context, principalID string, scope repository.Scope, codes []string) (*rbacsvc.CheckResult, error)
	CheckPermissions(ctx context.Context, principalID string, scope repository.Scope, codes []string) (*rbacsvc.CheckResult, error)
	ImportRoles(ctx context.Context, scope repository.Scope, codes []string) (*rbacsvc.ImportResult, error)
	ImportPermissions(ctx context.Context, scope repository.Scope, category string, codes []string) (*rbacsvc.ImportResult, error)
	ListRoleHolders(ctx context.Context, scope repository.Scope, roleID string, f repository.ListFilter) ([]repository.RoleHolder, int, error)
}

// Members es la superficie de membresías de tenant.
type Members interface {
	Add(ctx context.Context, tenantID, principalID string) (*repository.Membership, error)
	Remove(ctx context.Context, tenantID, principalID string) error
	List(ctx context.Context, tenantID string) ([]repository.Membership, error)
}

type Controller struct {
	engine  Engine
	members Members
}

func NewController(e Engine, m Members) *Controller {
	return &Controller{engine: e, members: m}
}

// scope lee el scope del contexto; su ausencia es un error de wiring.
func scope(w http.ResponseWriter, r *http.Request) (repository.Scope, bool) {
	s, ok := mw.GetScope(r.Context())
	if !ok {
		httperrors.WriteError(w, httperrors.ErrInternalServerError.WithDetail("scope not resolved"))
	}
	return s, ok
}

func param(r *http.Request, name string) string { return chi.URLParam(r, name) }
