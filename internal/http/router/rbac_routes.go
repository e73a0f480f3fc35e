package router

import (
	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	rbacctrl "github.com/dropDatabas3/consolegate/internal/http/controllers/rbac"
	mw "github.com/dropDatabas3/consolegate/internal/http/middlewares"
)

// registerRBACRoutes monta /rbac: la misma superficie bajo /platform,
// /tenant/{tenantID} y /tenant/{tenantID}/app/{appID}, más las rutas sin
// prefijo que toman el scope de ?scope= o del recurso.
func registerRBACRoutes(r chi.Router, d Deps) {
	c := d.RBAC
	need := func(code string) mw.Middleware { return mw.RequirePermission(d.Permissions, code) }
	byPath := mw.WithRequestScope(mw.PathScope)

	r.Route("/rbac", func(r chi.Router) {
		r.Use(mw.RequireAuth(d.Tokens), mw.RequireConsoleAccess())

		r.Route("/platform", func(r chi.Router) {
			r.Use(byPath)
			scopedRoutes(r, c, need)
		})

		r.Route("/tenant/{tenantID}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(byPath)
				scopedRoutes(r, c, need)
				r.With(need(repository.PermAssignmentsRead)).Get("/members", c.ListMembers)
				r.With(need(repository.PermMembersWrite)).Post("/members", c.AddMember)
				r.With(need(repository.PermMembersWrite)).Delete("/members/{principalID}", c.RemoveMember)
			})
			r.Route("/app/{appID}", func(r chi.Router) {
				r.Use(byPath)
				scopedRoutes(r, c, need)
			})
		})

		// ?scope=...
		r.Group(func(r chi.Router) {
			r.Use(mw.WithRequestScope(mw.QueryScope))
			r.With(need(repository.PermRolesRead)).Get("/roles", c.ListRoles)
			r.With(need(repository.PermRolesWrite)).Post("/roles", c.CreateRole)
			bulkRoutes(r, c, need)
			r.With(need(repository.PermPermissionsRead)).Get("/permissions", c.ListPermissions)
			r.With(need(repository.PermPermissionsWrite)).Post("/permissions", c.CreatePermission)
			r.With(need(repository.PermPermissionsRead)).Get("/permissions/categories", c.ListCategories)
			r.With(need(repository.PermAssignmentsWrite)).Post("/assignments", c.Assign)
			r.With(need(repository.PermAssignmentsRead)).Get("/assignments/{principalID}", c.ListAssigned)
			r.With(need(repository.PermAssignmentsRead)).Get("/effective/{principalID}", c.Effective)
		})

		// scope del rol
		r.Route("/roles/{roleID}", func(r chi.Router) {
			r.Use(mw.WithRequestScope(mw.OwnerScope("roleID", d.RoleScope)))
			roleRoutes(r, c, need)
		})

		// scope del permiso
		r.Route("/permissions/{permissionID}", func(r chi.Router) {
			r.Use(mw.WithRequestScope(mw.OwnerScope("permissionID", d.PermissionScope)))
			r.With(need(repository.PermPermissionsRead)).Get("/", c.GetPermission)
			r.With(need(repository.PermPermissionsWrite)).Put("/", c.UpdatePermission)
			r.With(need(repository.PermPermissionsWrite)).Delete("/", c.DeletePermission)
		})
	})
}

func scopedRoutes(r chi.Router, c *rbacctrl.Controller, need func(string) mw.Middleware) {
	r.With(need(repository.PermRolesRead)).Get("/roles", c.ListRoles)
	r.With(need(repository.PermRolesWrite)).Post("/roles", c.CreateRole)
	bulkRoutes(r, c, need)
	r.Route("/roles/{roleID}", func(r chi.Router) { roleRoutes(r, c, need) })

	r.With(need(repository.PermPermissionsRead)).Get("/permissions", c.ListPermissions)
	r.With(need(repository.PermPermissionsWrite)).Post("/permissions", c.CreatePermission)
	r.With(need(repository.PermPermissionsRead)).Get("/permissions/categories", c.ListCategories)
	r.With(need(repository.PermPermissionsRead)).Get("/permissions/{permissionID}", c.GetPermission)
	r.With(need(repository.PermPermissionsWrite)).Put("/permissions/{permissionID}", c.UpdatePermission)
	r.With(need(repository.PermPermissionsWrite)).Delete("/permissions/{permissionID}", c.DeletePermission)

	r.With(need(repository.PermAssignmentsWrite)).Post("/assignments", c.Assign)
	r.With(need(repository.PermAssignmentsRead)).Get("/assignments/{principalID}", c.ListAssigned)
	r.With(need(repository.PermAssignmentsRead)).Get("/effective/{principalID}", c.Effective)
}

// bulkRoutes: check e import por códigos. Los segmentos estáticos ganan
// sobre {roleID} y {permissionID}.
func bulkRoutes(r chi.Router, c *rbacctrl.Controller, need func(string) mw.Middleware) {
	r.With(need(repository.PermAssignmentsRead)).Post("/roles/check", c.CheckRoles)
	r.With(need(repository.PermRolesWrite)).Post("/roles/import", c.ImportRoles)
	r.With(need(repository.PermAssignmentsRead)).Post("/permissions/check", c.CheckPermissions)
	r.With(need(repository.PermPermissionsWrite)).Post("/permissions/import", c.ImportPermissions)
}

// roleRoutes se monta bajo /roles/{roleID}.
func roleRoutes(r chi.Router, c *rbacctrl.Controller, need func(string) mw.Middleware) {
	r.With(need(repository.PermRolesRead)).Get("/", c.GetRole)
	r.With(need(repository.PermRolesWrite)).Put("/", c.UpdateRole)
	r.With(need(repository.PermRolesWrite)).Delete("/", c.DeleteRole)
	r.With(need(repository.PermRolesRead)).Get("/permissions", c.ListRolePermissions)
	r.With(need(repository.PermAssignmentsRead)).Get("/principals", c.ListRoleHolders)
	r.With(need(repository.PermPermissionsWrite)).Post("/permissions", c.GrantPermissions)
	r.With(need(repository.PermPermissionsWrite)).Delete("/permissions/{permissionID}", c.RevokePermission)
}
