package rbac

import (
	"net/http"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	dto "github.com/dropDatabas3/consolegate/internal/http/dto/rbac"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	rbacsvc "github.com/dropDatabas3/consolegate/internal/http/services/rbac"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// CheckRoles POST .../roles/check {principal_id, codes}
func (c *Controller) CheckRoles(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.CheckRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.engine.CheckRoles(r.Context(), req.PrincipalID, s, req.Codes)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RoleCheckResponse{
		PrincipalID:            req.PrincipalID,
		Scope:                  s,
		Roles:                  res.Matches,
		HasAllRoles:            res.All,
		InputDuplicateFiltered: res.DuplicatesFiltered,
	})
}

// CheckPermissions POST .../permissions/check {principal_id, codes}
func (c *Controller) CheckPermissions(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.CheckRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.engine.CheckPermissions(r.Context(), req.PrincipalID, s, req.Codes)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.PermissionCheckResponse{
		PrincipalID:            req.PrincipalID,
		Scope:                  s,
		Permissions:            res.Matches,
		HasAllPermissions:      res.All,
		InputDuplicateFiltered: res.DuplicatesFiltered,
	})
}

// ImportRoles POST .../roles/import {codes}
func (c *Controller) ImportRoles(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.ImportRoles"))
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.ImportRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.engine.ImportRoles(r.Context(), s, req.Codes)
	if err != nil {
		log.Debug("import rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, importResponse(s, "", res))
}

// ImportPermissions POST .../permissions/import {codes, category}
func (c *Controller) ImportPermissions(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.ImportPermissions"))
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.ImportRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	res, err := c.engine.ImportPermissions(r.Context(), s, req.Category, req.Codes)
	if err != nil {
		log.Debug("import rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, importResponse(s, rbacsvc.FoldCategory(req.Category), res))
}

func importResponse(s repository.Scope, category string, res *rbacsvc.ImportResult) dto.ImportResponse {
	return dto.ImportResponse{
		Scope:                  s,
		Category:               category,
		CreatedCount:           len(res.Created),
		ExistingCount:          len(res.Existing),
		InputDuplicateFiltered: res.DuplicatesFiltered,
		CreatedCodes:           nonNil(res.Created),
		ExistingCodes:          nonNil(res.Existing),
		InvalidCodes:           nonNil(res.Invalid),
	}
}

// ListRoleHolders GET .../roles/{roleID}/principals?page&page_size&search
func (c *Controller) ListRoleHolders(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	f := rbacsvc.NormalizeFilter(helpers.ListFilter(r, s))
	items, total, err := c.engine.ListRoleHolders(r.Context(), s, param(r, "roleID"), f)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	writePage(w, items, total, f)
}
