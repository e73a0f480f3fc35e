package rbac

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/cache"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/store/adapters/memory"
)

func newEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(memory.New().RBAC(), cache.NewMemory("test"), time.Minute)
}

func mustRole(t *testing.T, e *Engine, scope repository.Scope, code string) *repository.Role {
	t.Helper()
	r, err := e.CreateRole(context.Background(), scope, repository.RoleInput{Code: code, Name: code})
	require.NoError(t, err)
	return r
}

func mustPerm(t *testing.T, e *Engine, scope repository.Scope, code string) *repository.Permission {
	t.Helper()
	p, err := e.CreatePermission(context.Background(), scope, repository.PermissionInput{Code: code, Name: code, Category: "docs"})
	require.NoError(t, err)
	return p
}

func TestCreateRole_DuplicateCodeConflicts(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")

	mustRole(t, e, t5, "viewer")
	_, err := e.CreateRole(ctx, t5, repository.RoleInput{Code: "viewer", Name: "Viewer again"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	// mismo code en otro scope es válido
	_, err = e.CreateRole(ctx, repository.TenantScope("6"), repository.RoleInput{Code: "viewer", Name: "Viewer"})
	assert.NoError(t, err)
}

func TestCreateRole_Validation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.CreateRole(ctx, repository.TenantScope("5"), repository.RoleInput{Code: "  ", Name: "x"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = e.CreateRole(ctx, repository.TenantScope("5"), repository.RoleInput{Code: "has space", Name: "x"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = e.CreateRole(ctx, repository.Scope{Kind: repository.ScopeTenant}, repository.RoleInput{Code: "a", Name: "a"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestGetRole_OtherScopeIsNotFound(t *testing.T) {
	e := newEngine(t)
	r := mustRole(t, e, repository.TenantScope("5"), "viewer")

	_, err := e.GetRole(context.Background(), repository.TenantScope("6"), r.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	got, err := e.GetRole(context.Background(), repository.TenantScope("5"), r.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer", got.Code)
}

func TestSystemRoleProtected(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	platform := repository.PlatformScope()

	admin, err := e.repo.GetRoleByCode(ctx, platform, repository.PlatformAdminRole)
	require.NoError(t, err)
	require.True(t, admin.IsSystem)

	assert.ErrorIs(t, e.DeleteRole(ctx, platform, admin.ID), repository.ErrSystemRoleProtected)
	_, err = e.UpdateRole(ctx, platform, admin.ID, repository.RoleInput{Code: "x", Name: "x"})
	assert.ErrorIs(t, err, repository.ErrSystemRoleProtected)

	p := mustPerm(t, e, platform, "extra")
	assert.ErrorIs(t, e.GrantPermissionsToRole(ctx, platform, admin.ID, []string{p.ID}), repository.ErrSystemRoleProtected)

	// asignar un rol de sistema sí está permitido
	_, err = e.AssignRoles(ctx, "root", platform, []string{admin.ID})
	require.NoError(t, err)
	ok, err := e.HasPermission(ctx, "root", repository.TenantScope("5"), repository.PermRolesWrite)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteRole_Cascades(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")

	r := mustRole(t, e, t5, "editor")
	p := mustPerm(t, e, t5, "docs.write")
	require.NoError(t, e.GrantPermissionsToRole(ctx, t5, r.ID, []string{p.ID}))
	_, err := e.AssignRoles(ctx, "u1", t5, []string{r.ID})
	require.NoError(t, err)

	perms, err := e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.write"}, perms)

	require.NoError(t, e.DeleteRole(ctx, t5, r.ID))

	_, err = e.GetRole(ctx, t5, r.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assigned, err := e.ListAssignedRoles(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Empty(t, assigned)
	perms, err = e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Empty(t, perms)
	ok, err := e.HoldsRoleWithin(ctx, "u1", t5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignRoles_ReplaceSet(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	a := mustRole(t, e, t5, "a")
	b := mustRole(t, e, t5, "b")
	other := mustRole(t, e, repository.TenantScope("6"), "c")

	_, err := e.AssignRoles(ctx, "u1", repository.TenantScope("6"), []string{other.ID})
	require.NoError(t, err)

	diff, err := e.AssignRoles(ctx, "u1", t5, []string{a.ID, b.ID, a.ID})
	require.NoError(t, err)
	assert.Len(t, diff.Added, 2)

	diff, err = e.AssignRoles(ctx, "u1", t5, []string{b.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID}, diff.Removed)
	assert.Empty(t, diff.Added)

	for i := 0; i < 2; i++ {
		_, err = e.AssignRoles(ctx, "u1", t5, nil)
		require.NoError(t, err)
		got, err := e.ListAssignedRoles(ctx, "u1", t5)
		require.NoError(t, err)
		assert.Empty(t, got)
	}

	// el scope 6 no se tocó
	got, err := e.ListAssignedRoles(ctx, "u1", repository.TenantScope("6"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	// un rol de otro scope es inválido
	_, err = e.AssignRoles(ctx, "u1", t5, []string{other.ID})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestResolve_MonotonicUnderRoleAddition(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	app := repository.AppScope("5", "billing")

	tenantRole := mustRole(t, e, t5, "reader")
	appRole := mustRole(t, e, app, "app-admin")
	pRead := mustPerm(t, e, t5, "docs.read")
	pApp := mustPerm(t, e, app, "billing.write")
	require.NoError(t, e.GrantPermissionsToRole(ctx, t5, tenantRole.ID, []string{pRead.ID}))
	require.NoError(t, e.GrantPermissionsToRole(ctx, app, appRole.ID, []string{pApp.ID}))

	_, err := e.AssignRoles(ctx, "u1", t5, []string{tenantRole.ID})
	require.NoError(t, err)
	before, err := e.ResolveEffectivePermissions(ctx, "u1", app)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.read"}, before)

	_, err = e.AssignRoles(ctx, "u1", app, []string{appRole.ID})
	require.NoError(t, err)
	after, err := e.ResolveEffectivePermissions(ctx, "u1", app)
	require.NoError(t, err)
	assert.Subset(t, after, before)
	assert.Contains(t, after, "billing.write")

	// un rol de app no aplica al tenant
	tenantPerms, err := e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.read"}, tenantPerms)
}

func TestResolve_CacheInvalidatedOnMutation(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	r := mustRole(t, e, t5, "reader")
	p := mustPerm(t, e, t5, "docs.read")
	_, err := e.AssignRoles(ctx, "u1", t5, []string{r.ID})
	require.NoError(t, err)

	perms, err := e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Empty(t, perms)

	require.NoError(t, e.GrantPermissionsToRole(ctx, t5, r.ID, []string{p.ID}))
	perms, err = e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.read"}, perms)

	require.NoError(t, e.RevokePermissionFromRole(ctx, t5, r.ID, p.ID))
	perms, err = e.ResolveEffectivePermissions(ctx, "u1", t5)
	require.NoError(t, err)
	assert.Empty(t, perms)

	assert.ErrorIs(t, e.RevokePermissionFromRole(ctx, t5, r.ID, p.ID), repository.ErrNotFound)
}

func TestGrant_ScopeConsistency(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	r := mustRole(t, e, repository.TenantScope("5"), "reader")
	foreign := mustPerm(t, e, repository.TenantScope("6"), "docs.read")
	narrower := mustPerm(t, e, repository.AppScope("5", "a1"), "app.read")

	assert.ErrorIs(t, e.GrantPermissionsToRole(ctx, repository.TenantScope("5"), r.ID, []string{foreign.ID}), repository.ErrInvalidInput)
	assert.ErrorIs(t, e.GrantPermissionsToRole(ctx, repository.TenantScope("5"), r.ID, []string{narrower.ID}), repository.ErrInvalidInput)
	assert.ErrorIs(t, e.GrantPermissionsToRole(ctx, repository.TenantScope("5"), r.ID, []string{"missing"}), repository.ErrNotFound)

	// permisos de plataforma aplican a cualquier rol
	all, _, err := e.ListPermissions(ctx, repository.ListFilter{Scope: repository.PlatformScope()})
	require.NoError(t, err)
	require.NotEmpty(t, all)
	assert.NoError(t, e.GrantPermissionsToRole(ctx, repository.TenantScope("5"), r.ID, []string{all[0].ID}))
}

func TestPermissions_CategoryFolding(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")

	p, err := e.CreatePermission(ctx, t5, repository.PermissionInput{Code: "read", Name: "Read", Category: "  Documents "})
	require.NoError(t, err)
	assert.Equal(t, "documents", p.Category)

	_, err = e.CreatePermission(ctx, t5, repository.PermissionInput{Code: "read", Name: "Read", Category: "DOCUMENTS"})
	assert.ErrorIs(t, err, repository.ErrConflict)
	_, err = e.CreatePermission(ctx, t5, repository.PermissionInput{Code: "read", Name: "Read", Category: "billing"})
	assert.NoError(t, err)

	cats, err := e.ListCategories(ctx, t5)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"billing", "documents"}, cats)

	items, total, err := e.ListPermissions(ctx, repository.ListFilter{Scope: t5, Category: "Documents"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, p.ID, items[0].ID)
}

func TestListRoles_PageSizeClamped(t *testing.T) {
	e := newEngine(t)
	t5 := repository.TenantScope("5")
	for _, c := range []string{"a", "b", "c"} {
		mustRole(t, e, t5, c)
	}
	items, total, err := e.ListRoles(context.Background(), repository.ListFilter{Scope: t5, PageSize: 1000})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, items, 3)

	f := NormalizeFilter(repository.ListFilter{PageSize: 1000})
	assert.Equal(t, maxPageSize, f.PageSize)
	assert.Equal(t, 1, f.Page)
}

func TestEnsureRole(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	require.NoError(t, e.EnsureRole(ctx, "root", repository.PlatformScope(), repository.PlatformAdminRole))
	require.NoError(t, e.EnsureRole(ctx, "root", repository.PlatformScope(), repository.PlatformAdminRole))
	ok, err := e.HoldsRoleWithin(ctx, "root", repository.PlatformScope())
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, e.EnsureRole(ctx, "root", repository.PlatformScope(), "nope"), repository.ErrNotFound)
}

func TestMembers(t *testing.T) {
	m := NewMembers(memory.New().Memberships())
	ctx := context.Background()

	_, err := m.Add(ctx, "5", " ")
	assert.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = m.Add(ctx, "5", "u1")
	require.NoError(t, err)
	_, err = m.Add(ctx, "5", "u1")
	require.NoError(t, err)

	list, err := m.List(ctx, "5")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "u1", list[0].PrincipalID)

	require.NoError(t, m.Remove(ctx, "5", "u1"))
	assert.ErrorIs(t, m.Remove(ctx, "5", "u1"), repository.ErrNotFound)
}

// blockingRBAC retiene EffectivePermissions hasta que se cierra release.
type blockingRBAC struct {
	repository.RBACRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingRBAC) EffectivePermissions(ctx context.Context, principalID string, scope repository.Scope) ([]string, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return b.RBACRepository.EffectivePermissions(ctx, principalID, scope)
}

func TestResolve_SharedLoadSurvivesCallerCancel(t *testing.T) {
	base := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	r := mustRole(t, base, t5, "reader")
	p := mustPerm(t, base, t5, "docs.read")
	require.NoError(t, base.GrantPermissionsToRole(ctx, t5, r.ID, []string{p.ID}))
	_, err := base.AssignRoles(ctx, "u1", t5, []string{r.ID})
	require.NoError(t, err)

	repo := &blockingRBAC{RBACRepository: base.repo, entered: make(chan struct{}), release: make(chan struct{})}
	e := NewEngine(repo, cache.NewMemory("test"), time.Minute)

	actx, cancel := context.WithCancel(ctx)
	aErr := make(chan error, 1)
	go func() {
		_, err := e.ResolveEffectivePermissions(actx, "u1", t5)
		aErr <- err
	}()
	<-repo.entered

	type result struct {
		perms []string
		err   error
	}
	bRes := make(chan result, 1)
	go func() {
		perms, err := e.ResolveEffectivePermissions(ctx, "u1", t5)
		bRes <- result{perms, err}
	}()

	cancel()
	select {
	case err := <-aErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(repo.release)
	select {
	case res := <-bRes:
		require.NoError(t, res.err)
		assert.Equal(t, []string{"docs.read"}, res.perms)
	case <-time.After(2 * time.Second):
		t.Fatal("second caller did not return")
	}
}

func TestEffectiveKey_ColonsDoNotCollide(t *testing.T) {
	a := effectiveKey("1", "u", repository.TenantScope("a:b"))
	b := effectiveKey("1", "u:tenant/a", repository.TenantScope("b"))
	assert.NotEqual(t, a, b)

	c := effectiveKey("1", "x:y", repository.AppScope("t", "a"))
	d := effectiveKey("1", "x", repository.AppScope("y:t", "a"))
	assert.NotEqual(t, c, d)
	assert.Equal(t, c, effectiveKey("1", "x:y", repository.AppScope("t", "a")))
}
