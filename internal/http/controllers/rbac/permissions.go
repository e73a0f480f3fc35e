package rbac

import (
	"net/http"

	dto "github.com/dropDatabas3/consolegate/internal/http/dto/rbac"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	rbacsvc "github.com/dropDatabas3/consolegate/internal/http/services/rbac"
)

// ListPermissions GET .../permissions?category&search&page&page_size
func (c *Controller) ListPermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	f := rbacsvc.NormalizeFilter(helpers.ListFilter(r, s))
	items, total, err := c.engine.ListPermissions(r.Context(), f)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writePage(w, items, total, f)
}

// ListCategories GET .../permissions/categories
func (c *Controller) ListCategories(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	cats, err := c.engine.ListCategories(r.Context(), s)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CategoriesResponse{Categories: nonNil(cats)})
}

func (c *Controller) CreatePermission(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.PermissionRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	p, err := c.engine.CreatePermission(r.Context(), s, req.Input())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, p)
}

func (c *Controller) GetPermission(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	p, err := c.engine.GetPermission(r.Context(), s, param(r, "permissionID"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, p)
}

func (c *Controller) UpdatePermission(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.PermissionRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	p, err := c.engine.UpdatePermission(r.Context(), s, param(r, "permissionID"), req.Input())
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, p)
}

func (c *Controller) DeletePermission(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	if err := c.engine.DeletePermission(r.Context(), s, param(r, "permissionID")); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
