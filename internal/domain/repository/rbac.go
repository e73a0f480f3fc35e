package repository

import (
	"context"
	"time"
)

// Role es un rol dentro de un scope. Code es único por scope.
type Role struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Scope          Scope     `json:"scope"`
	IsSystem       bool      `json:"is_system"`
	PrincipalCount int       `json:"principal_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Permission es un permiso dentro de un scope. Code es único por (scope, category).
type Permission struct {
	ID          string    `json:"id"`
	Code        string    `json:"code"`
	Category    string    `json:"category"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Scope       Scope     `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// RoleInput datos para crear/actualizar un rol.
type RoleInput struct {
	Code        string
	Name        string
	Description string
}

// PermissionInput datos para crear/actualizar un permiso.
type PermissionInput struct {
	Code        string
	Category    string
	Name        string
	Description string
}

// ListFilter filtra listados de roles/permisos dentro de un scope.
type ListFilter struct {
	Scope    Scope
	Category string // solo permisos
	Search   string
	Page     int
	PageSize int
}

// Offset calcula el desplazamiento (Page base 1).
func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// AssignmentDiff resume un replace-set aplicado.
type AssignmentDiff struct {
	Added   []string
	Removed []string
}

// RoleHolder es un principal que tiene asignado un rol.
type RoleHolder struct {
	PrincipalID string    `json:"principal_id"`
	AssignedAt  time.Time `json:"assigned_at"`
}

// RBACRepository define operaciones sobre roles, permisos y asignaciones.
// Las mutaciones compuestas (DeleteRole, DeletePermission, ReplaceAssignments)
// son todo-o-nada.
type RBACRepository interface {
	// ─── Roles ───

	// CreateRole retorna ErrConflict si code ya existe en el scope.
	CreateRole(ctx context.Context, scope Scope, in RoleInput) (*Role, error)
	GetRole(ctx context.Context, id string) (*Role, error)
	// UpdateRole retorna ErrConflict si el nuevo code choca con otro rol.
	UpdateRole(ctx context.Context, id string, in RoleInput) (*Role, error)
	// DeleteRole borra el rol, sus asignaciones y sus role-permissions en una tx.
	DeleteRole(ctx context.Context, id string) error
	ListRoles(ctx context.Context, f ListFilter) ([]Role, int, error)

	// ─── Permisos ───

	// CreatePermission retorna ErrConflict si (category, code) ya existe en el scope.
	CreatePermission(ctx context.Context, scope Scope, in PermissionInput) (*Permission, error)
	GetPermission(ctx context.Context, id string) (*Permission, error)
	UpdatePermission(ctx context.Context, id string, in PermissionInput) (*Permission, error)
	// DeletePermission borra el permiso y sus role-permissions en una tx.
	DeletePermission(ctx context.Context, id string) error
	ListPermissions(ctx context.Context, f ListFilter) ([]Permission, int, error)
	ListCategories(ctx context.Context, scope Scope) ([]string, error)

	// ─── Role ↔ Permission ───

	ListRolePermissions(ctx context.Context, roleID string) ([]Permission, error)
	// GrantPermissions inserta pares faltantes; los existentes se ignoran.
	GrantPermissions(ctx context.Context, roleID string, permissionIDs []string) error
	// RevokePermission retorna ErrNotFound si el par no existe.
	RevokePermission(ctx context.Context, roleID, permissionID string) error

	// ─── Asignaciones ───

	// ListAssignedRoles retorna los roles del principal cuyo scope es exactamente scope.
	ListAssignedRoles(ctx context.Context, principalID string, scope Scope) ([]Role, error)
	// ReplaceAssignments deja el set de roles del principal en scope igual a roleIDs.
	// Todos los roleIDs deben existir con ese scope exacto (si no ErrInvalidInput).
	ReplaceAssignments(ctx context.Context, principalID string, scope Scope, roleIDs []string) (AssignmentDiff, error)
	// AddAssignment es idempotente; usado por bootstrap.
	AddAssignment(ctx context.Context, principalID, roleID string) error
	// HasAssignmentWithin reporta si el principal tiene algún rol cuyo scope
	// está contenido en scope (platform: solo platform; tenant: tenant o apps del tenant).
	HasAssignmentWithin(ctx context.Context, principalID string, scope Scope) (bool, error)
	// ListAssignedTenants retorna los tenants donde el principal tiene algún rol.
	ListAssignedTenants(ctx context.Context, principalID string) ([]string, error)
	// ListRoleHolders pagina los principals del rol, asignación más nueva primero.
	// Search filtra por principal_id. ErrNotFound si el rol no existe.
	ListRoleHolders(ctx context.Context, roleID string, f ListFilter) ([]RoleHolder, int, error)

	// EffectivePermissions: unión (ordenada, sin duplicados) de los códigos de
	// permiso de cada rol asignado cuyo scope cubre scope.
	EffectivePermissions(ctx context.Context, principalID string, scope Scope) ([]string, error)

	// GetRoleByCode busca un rol por code dentro de un scope.
	GetRoleByCode(ctx context.Context, scope Scope, code string) (*Role, error)
}

// Membership vincula un principal con un tenant.
type Membership struct {
	TenantID    string    `json:"tenant_id"`
	PrincipalID string    `json:"principal_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// MembershipRepository define operaciones sobre membresías de tenant.
type MembershipRepository interface {
	// Add es idempotente.
	Add(ctx context.Context, tenantID, principalID string) (*Membership, error)
	// Remove retorna ErrNotFound si no existía.
	Remove(ctx context.Context, tenantID, principalID string) error
	IsMember(ctx context.Context, tenantID, principalID string) (bool, error)
	ListMembers(ctx context.Context, tenantID string) ([]Membership, error)
	ListTenants(ctx context.Context, principalID string) ([]string, error)
}
