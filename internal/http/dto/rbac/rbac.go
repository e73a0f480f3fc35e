// Package rbac contiene los DTOs de /rbac.
package rbac

import "github.com/dropDatabas3/consolegate/internal/domain/repository"

type RoleRequest struct {
	Code        string `json:"code" validate:"required,max=128"`
	Name        string `json:"name" validate:"required,max=256"`
	Description string `json:"description" validate:"max=2048"`
}

func (r RoleRequest) Input() repository.RoleInput {
	return repository.RoleInput{Code: r.Code, Name: r.Name, Description: r.Description}
}

type PermissionRequest struct {
	Code        string `json:"code" validate:"required,max=128"`
	Category    string `json:"category" validate:"max=256"`
	Name        string `json:"name" validate:"required,max=256"`
	Description string `json:"description" validate:"max=2048"`
}

func (r PermissionRequest) Input() repository.PermissionInput {
	return repository.PermissionInput{Code: r.Code, Category: r.Category, Name: r.Name, Description: r.Description}
}

type GrantRequest struct {
	PermissionIDs []string `json:"permission_ids" validate:"required,min=1,dive,required"`
}

// AssignRequest: role_ids vacío es válido (quita todo en el scope), pero el
// campo debe venir.
type AssignRequest struct {
	PrincipalID string   `json:"principal_id" validate:"required,max=128"`
	RoleIDs     []string `json:"role_ids" validate:"required,dive,required"`
}

type AssignResponse struct {
	PrincipalID string           `json:"principal_id"`
	Scope       repository.Scope `json:"scope"`
	Added       []string         `json:"added"`
	Removed     []string         `json:"removed"`
}

type MemberRequest struct {
	PrincipalID string `json:"principal_id" validate:"required,max=128"`
}

// Page envuelve un listado paginado.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

type EffectiveResponse struct {
	PrincipalID string           `json:"principal_id"`
	Scope       repository.Scope `json:"scope"`
	Permissions []string         `json:"permissions"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// CheckRequest: cada entrada de codes puede traer varios códigos separados
// por coma, punto y coma o espacios.
type CheckRequest struct {
	PrincipalID string   `json:"principal_id" validate:"required,max=128"`
	Codes       []string `json:"codes" validate:"required,min=1,max=500"`
}

type RoleCheckResponse struct {
	PrincipalID            string           `json:"principal_id"`
	Scope                  repository.Scope `json:"scope"`
	Roles                  map[string]bool  `json:"roles"`
	HasAllRoles            bool             `json:"has_all_roles"`
	InputDuplicateFiltered int              `json:"input_duplicate_filtered"`
}

type PermissionCheckResponse struct {
	PrincipalID            string           `json:"principal_id"`
	Scope                  repository.Scope `json:"scope"`
	Permissions            map[string]bool  `json:"permissions"`
	HasAllPermissions      bool             `json:"has_all_permissions"`
	InputDuplicateFiltered int              `json:"input_duplicate_filtered"`
}

// ImportRequest: category sólo aplica a permisos.
type ImportRequest struct {
	Codes    []string `json:"codes" validate:"required,min=1,max=500"`
	Category string   `json:"category" validate:"max=256"`
}

type ImportResponse struct {
	Scope                  repository.Scope `json:"scope"`
	Category               string           `json:"category,omitempty"`
	CreatedCount           int              `json:"created_count"`
	ExistingCount          int              `json:"existing_count"`
	InputDuplicateFiltered int              `json:"input_duplicate_filtered"`
	CreatedCodes           []string         `json:"created_codes"`
	ExistingCodes          []string         `json:"existing_codes"`
	InvalidCodes           []string         `json:"invalid_codes"`
}
