package rbac

import (
	"net/http"

	dto "github.com/dropDatabas3/consolegate/internal/http/dto/rbac"
	httperrors "github.com/dropDatabas3/consolegate/internal/http/errors"
	"github.com/dropDatabas3/consolegate/internal/http/helpers"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// Assign POST .../assignments {principal_id, role_ids}: replace-set en el scope.
func (c *Controller) Assign(w http.ResponseWriter, r *http.Request) {
	log := logger.From(r.Context()).With(logger.Layer("controller"), logger.Op("RBACController.Assign"))
	s, ok := scope(w, r)
	if !ok {
		return
	}
	var req dto.AssignRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	diff, err := c.engine.AssignRoles(r.Context(), req.PrincipalID, s, req.RoleIDs)
	if err != nil {
		log.Debug("assign rejected", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.AssignResponse{
		PrincipalID: req.PrincipalID,
		Scope:       s,
		Added:       nonNil(diff.Added),
		Removed:     nonNil(diff.Removed),
	})
}

// ListAssigned GET .../assignments/{principalID}
func (c *Controller) ListAssigned(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	roles, err := c.engine.ListAssignedRoles(r.Context(), param(r, "principalID"), s)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(roles)})
}

// Effective GET .../effective/{principalID}
func (c *Controller) Effective(w http.ResponseWriter, r *http.Request) {
	s, ok := scope(w, r)
	if !ok {
		return
	}
	principal := param(r, "principalID")
	perms, err := c.engine.ResolveEffectivePermissions(r.Context(), principal, s)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.EffectiveResponse{PrincipalID: principal, Scope: s, Permissions: nonNil(perms)})
}

// ─── Miembros (sólo scope tenant) ───

func (c *Controller) ListMembers(w http.ResponseWriter, r *http.Request) {
	list, err := c.members.List(r.Context(), param(r, "tenantID"))
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"items": nonNil(list)})
}

func (c *Controller) AddMember(w http.ResponseWriter, r *http.Request) {
	var req dto.MemberRequest
	if err := helpers.DecodeAndValidate(w, r, &req); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	m, err := c.members.Add(r.Context(), param(r, "tenantID"), req.PrincipalID)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, m)
}

func (c *Controller) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if err := c.members.Remove(r.Context(), param(r, "tenantID"), param(r, "principalID")); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
