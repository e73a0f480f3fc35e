package rbac

import (
	"net/http"

	dto "github.com/dropDatabas3/consolegate/internal/http/dto/rbac"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	rbacsvc "github.com/dropDatabas3/consolegate/internal/http/services/rbac"
	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// ListRoles GET .../roles?page&page_size&search
func (c *Controller) ListRoles(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	f := rbacsvc.NormalizeFilter(helpers.ListFilter(r, s))
	items, total, err := c.engine.ListRoles(r.Context(), f)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writePage(w, items, total, f)
}

// CreateRole POST .../roles
func (c *Controller) CreateRole(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.CreateRole"))
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.RoleRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	role, err := c.engine.CreateRole(r.Context(), s, req.Input())
	if err != nil {
		log.Debug("create role rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, role)
}

// GetRole GET .../roles/{roleID}
func (c *Controller) GetRole(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	role, err := c.engine.GetRole(r.Context(), s, param(r, "roleID"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, role)
}

// UpdateRole PUT .../roles/{roleID}
func (c *Controller) UpdateRole(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.RoleRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	role, err := c.engine.UpdateRole(r.Context(), s, param(r, "roleID"), req.Input())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, role)
}

// DeleteRole DELETE .../roles/{roleID}. Cascada de asignaciones y permisos.
func (c *Controller) DeleteRole(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	if err := c.engine.DeleteRole(r.Context(), s, param(r, "roleID")); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRolePermissions GET .../roles/{roleID}/permissions
func (c *Controller) ListRolePermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	perms, err := c.engine.ListRolePermissions(r.Context(), s, param(r, "roleID"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(perms)})
}

// GrantPermissions POST .../roles/{roleID}/permissions {permission_ids}
func (c *Controller) GrantPermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.GrantRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	if err := c.engine.GrantPermissionsToRole(r.Context(), s, param(r, "roleID"), req.PermissionIDs); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokePermission DELETE .../roles/{roleID}/permissions/{permissionID}
func (c *Controller) RevokePermission(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	if err := c.engine.RevokePermissionFromRole(r.Context(), s, param(r, "roleID"), param(r, "permissionID")); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writePage[T any](w http.ResponseWriter, items []T, total int, f repository.ListFilter) {
	helpers.WriteJSON(w, http.StatusOK, dto.Page[T]{Items: nonNil(items), Total: total, Page: f.Page, PageSize: f.PageSize})
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
