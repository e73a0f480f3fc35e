package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

type rbacRepo struct{ st *state }

// ─── helpers (llamar con st.mu tomado) ───

func (s *state) insertRole(scope repository.Scope, in repository.RoleInput, system bool) *repository.Role {
	now := s.now().UTC()
	r := &repository.Role{
		ID:          uuid.NewString(),
		Code:        in.Code,
		Name:        in.Name,
		Description: in.Description,
		Scope:       scope,
		IsSystem:    system,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.roles[r.ID] = r
	return r
}

func (s *state) insertPermission(scope repository.Scope, in repository.PermissionInput) *repository.Permission {
	now := s.now().UTC()
	p := &repository.Permission{
		ID:          uuid.NewString(),
		Code:        in.Code,
		Category:    in.Category,
		Name:        in.Name,
		Description: in.Description,
		Scope:       scope,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.perms[p.ID] = p
	return p
}

func (s *state) roleCopy(r *repository.Role) *repository.Role {
	out := *r
	out.PrincipalCount = len(s.assignments[r.ID])
	return &out
}

func (s *state) roleCodeTaken(scope repository.Scope, code, exceptID string) bool {
	for _, r := range s.roles {
		if r.ID != exceptID && r.Scope == scope && r.Code == code {
			return true
		}
	}
	return false
}

func (s *state) permCodeTaken(scope repository.Scope, category, code, exceptID string) bool {
	for _, p := range s.perms {
		if p.ID != exceptID && p.Scope == scope && p.Category == category && p.Code == code {
			return true
		}
	}
	return false
}

func matchesSearch(q string, fields ...string) bool {
	if q == "" {
		return true
	}
	q = strings.ToLower(q)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), q) {
			return true
		}
	}
	return false
}

func page[T any](items []T, f repository.ListFilter) []T {
	if f.PageSize <= 0 {
		return items
	}
	off := f.Offset()
	if off >= len(items) {
		return []T{}
	}
	end := min(off+f.PageSize, len(items))
	return items[off:end]
}

// ─── Roles ───

func (r *rbacRepo) CreateRole(_ context.Context, scope repository.Scope, in repository.RoleInput) (*repository.Role, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if r.st.roleCodeTaken(scope, in.Code, "") {
		return nil, repository.ErrConflict
	}
	return r.st.roleCopy(r.st.insertRole(scope, in, false)), nil
}

func (r *rbacRepo) GetRole(_ context.Context, id string) (*repository.Role, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	role, ok := r.st.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.st.roleCopy(role), nil
}

func (r *rbacRepo) GetRoleByCode(_ context.Context, scope repository.Scope, code string) (*repository.Role, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, role := range r.st.roles {
		if role.Scope == scope && role.Code == code {
			return r.st.roleCopy(role), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *rbacRepo) UpdateRole(_ context.Context, id string, in repository.RoleInput) (*repository.Role, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	role, ok := r.st.roles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.st.roleCodeTaken(role.Scope, in.Code, id) {
		return nil, repository.ErrConflict
	}
	role.Code, role.Name, role.Description = in.Code, in.Name, in.Description
	role.UpdatedAt = r.st.now().UTC()
	return r.st.roleCopy(role), nil
}

func (r *rbacRepo) DeleteRole(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.roles[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.roles, id)
	delete(r.st.rolePerms, id)
	delete(r.st.assignments, id)
	return nil
}

func (r *rbacRepo) ListRoles(_ context.Context, f repository.ListFilter) ([]repository.Role, int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var all []repository.Role
	for _, role := range r.st.roles {
		if role.Scope != f.Scope || !matchesSearch(f.Search, role.Code, role.Name, role.Description) {
			continue
		}
		all = append(all, *r.st.roleCopy(role))
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})
	return page(all, f), len(all), nil
}

// ─── Permisos ───

func (r *rbacRepo) CreatePermission(_ context.Context, scope repository.Scope, in repository.PermissionInput) (*repository.Permission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if r.st.permCodeTaken(scope, in.Category, in.Code, "") {
		return nil, repository.ErrConflict
	}
	p := *r.st.insertPermission(scope, in)
	return &p, nil
}

func (r *rbacRepo) GetPermission(_ context.Context, id string) (*repository.Permission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	p, ok := r.st.perms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *rbacRepo) UpdatePermission(_ context.Context, id string, in repository.PermissionInput) (*repository.Permission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	p, ok := r.st.perms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.st.permCodeTaken(p.Scope, in.Category, in.Code, id) {
		return nil, repository.ErrConflict
	}
	p.Code, p.Category, p.Name, p.Description = in.Code, in.Category, in.Name, in.Description
	p.UpdatedAt = r.st.now().UTC()
	out := *p
	return &out, nil
}

func (r *rbacRepo) DeletePermission(_ context.Context, id string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.perms[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.st.perms, id)
	for _, set := range r.st.rolePerms {
		delete(set, id)
	}
	return nil
}

func (r *rbacRepo) ListPermissions(_ context.Context, f repository.ListFilter) ([]repository.Permission, int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	var all []repository.Permission
	for _, p := range r.st.perms {
		if p.Scope != f.Scope || (f.Category != "" && p.Category != f.Category) {
			continue
		}
		if !matchesSearch(f.Search, p.Code, p.Name, p.Description) {
			continue
		}
		all = append(all, *p)
	}
	sortPermissions(all)
	return page(all, f), len(all), nil
}

func sortPermissions(ps []repository.Permission) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Category != ps[j].Category {
			return ps[i].Category < ps[j].Category
		}
		return ps[i].Code < ps[j].Code
	})
}

func (r *rbacRepo) ListCategories(_ context.Context, scope repository.Scope) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range r.st.perms {
		if p.Scope != scope || p.Category == "" {
			continue
		}
		if _, dup := seen[p.Category]; !dup {
			seen[p.Category] = struct{}{}
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ─── Role ↔ Permission ───

func (r *rbacRepo) ListRolePermissions(_ context.Context, roleID string) ([]repository.Permission, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.roles[roleID]; !ok {
		return nil, repository.ErrNotFound
	}
	out := []repository.Permission{}
	for pid := range r.st.rolePerms[roleID] {
		if p, ok := r.st.perms[pid]; ok {
			out = append(out, *p)
		}
	}
	sortPermissions(out)
	return out, nil
}

func (r *rbacRepo) GrantPermissions(_ context.Context, roleID string, permissionIDs []string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	for _, pid := range permissionIDs {
		if _, ok := r.st.perms[pid]; !ok {
			return repository.ErrNotFound
		}
	}
	set, ok := r.st.rolePerms[roleID]
	if !ok {
		set = map[string]struct{}{}
		r.st.rolePerms[roleID] = set
	}
	for _, pid := range permissionIDs {
		set[pid] = struct{}{}
	}
	return nil
}

func (r *rbacRepo) RevokePermission(_ context.Context, roleID, permissionID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	set := r.st.rolePerms[roleID]
	if _, ok := set[permissionID]; !ok {
		return repository.ErrNotFound
	}
	delete(set, permissionID)
	return nil
}

// ─── Asignaciones ───

func (r *rbacRepo) ListAssignedRoles(_ context.Context, principalID string, scope repository.Scope) ([]repository.Role, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	out := []repository.Role{}
	for id, holders := range r.st.assignments {
		role, ok := r.st.roles[id]
		if !ok || role.Scope != scope {
			continue
		}
		if _, ok := holders[principalID]; ok {
			out = append(out, *r.st.roleCopy(role))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *rbacRepo) ReplaceAssignments(_ context.Context, principalID string, scope repository.Scope, roleIDs []string) (repository.AssignmentDiff, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	want := map[string]struct{}{}
	for _, id := range roleIDs {
		role, ok := r.st.roles[id]
		if !ok || role.Scope != scope {
			return repository.AssignmentDiff{}, repository.ErrInvalidInput
		}
		want[id] = struct{}{}
	}

	diff := repository.AssignmentDiff{Added: []string{}, Removed: []string{}}
	for id, role := range r.st.roles {
		if role.Scope != scope {
			continue
		}
		_, has := r.st.assignments[id][principalID]
		_, keep := want[id]
		switch {
		case has && !keep:
			delete(r.st.assignments[id], principalID)
			diff.Removed = append(diff.Removed, id)
		case !has && keep:
			if r.st.assignments[id] == nil {
				r.st.assignments[id] = map[string]time.Time{}
			}
			r.st.assignments[id][principalID] = r.st.now().UTC()
			diff.Added = append(diff.Added, id)
		}
	}
	sort.Strings(diff.Added)
	sort.Strings(diff.Removed)
	return diff, nil
}

func (r *rbacRepo) AddAssignment(_ context.Context, principalID, roleID string) error {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.roles[roleID]; !ok {
		return repository.ErrNotFound
	}
	if r.st.assignments[roleID] == nil {
		r.st.assignments[roleID] = map[string]time.Time{}
	}
	if _, ok := r.st.assignments[roleID][principalID]; !ok {
		r.st.assignments[roleID][principalID] = r.st.now().UTC()
	}
	return nil
}

func (r *rbacRepo) ListRoleHolders(_ context.Context, roleID string, f repository.ListFilter) ([]repository.RoleHolder, int, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	if _, ok := r.st.roles[roleID]; !ok {
		return nil, 0, repository.ErrNotFound
	}
	out := []repository.RoleHolder{}
	for pid, at := range r.st.assignments[roleID] {
		if matchesSearch(f.Search, pid) {
			out = append(out, repository.RoleHolder{PrincipalID: pid, AssignedAt: at})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].AssignedAt.Equal(out[j].AssignedAt) {
			return out[i].AssignedAt.After(out[j].AssignedAt)
		}
		return out[i].PrincipalID < out[j].PrincipalID
	})
	return page(out, f), len(out), nil
}

// assignedRoles: roles del principal en cualquier scope. Llamar con lock.
func (s *state) assignedRoles(principalID string) []*repository.Role {
	var out []*repository.Role
	for id, holders := range s.assignments {
		if _, ok := holders[principalID]; !ok {
			continue
		}
		if role, ok := s.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out
}

func (r *rbacRepo) HasAssignmentWithin(_ context.Context, principalID string, scope repository.Scope) (bool, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	for _, role := range r.st.assignedRoles(principalID) {
		if role.Scope.Within(scope) {
			return true, nil
		}
	}
	return false, nil
}

func (r *rbacRepo) ListAssignedTenants(_ context.Context, principalID string) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, role := range r.st.assignedRoles(principalID) {
		tid := role.Scope.TenantID
		if tid == "" {
			continue
		}
		if _, dup := seen[tid]; !dup {
			seen[tid] = struct{}{}
			out = append(out, tid)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (r *rbacRepo) EffectivePermissions(_ context.Context, principalID string, scope repository.Scope) ([]string, error) {
	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	seen := map[string]struct{}{}
	out := []string{}
	for _, role := range r.st.assignedRoles(principalID) {
		if !role.Scope.Covers(scope) {
			continue
		}
		for pid := range r.st.rolePerms[role.ID] {
			p, ok := r.st.perms[pid]
			if !ok {
				continue
			}
			if _, dup := seen[p.Code]; !dup {
				seen[p.Code] = struct{}{}
				out = append(out, p.Code)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
