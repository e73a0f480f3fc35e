package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

func TestNormalizeCodes(t *testing.T) {
	codes, dups := NormalizeCodes([]string{"Viewer, editor;viewer", "\tadmin\nEDITOR  ", ""})
	assert.Equal(t, []string{"viewer", "editor", "admin"}, codes)
	assert.Equal(t, 2, dups)

	codes, dups = NormalizeCodes(nil)
	assert.Empty(t, codes)
	assert.Zero(t, dups)
}

func TestImportRoles(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	mustRole(t, e, t5, "viewer")

	res, err := e.ImportRoles(ctx, t5, []string{"viewer,editor", "auditor editor", "-bad-"})
	require.NoError(t, err)
	assert.Equal(t, []string{"editor", "auditor"}, res.Created)
	assert.Equal(t, []string{"viewer"}, res.Existing)
	assert.Equal(t, []string{"-bad-"}, res.Invalid)
	assert.Equal(t, 1, res.DuplicatesFiltered)

	r, err := e.repo.GetRoleByCode(ctx, t5, "auditor")
	require.NoError(t, err)
	assert.Equal(t, "auditor", r.Name)
	assert.Equal(t, "imported", r.Description)

	// repetir es idempotente
	res, err = e.ImportRoles(ctx, t5, []string{"editor auditor"})
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"editor", "auditor"}, res.Existing)

	_, err = e.ImportRoles(ctx, t5, []string{" ,; "})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = e.ImportRoles(ctx, repository.Scope{Kind: repository.ScopeTenant}, []string{"a"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestImportPermissions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	mustPerm(t, e, t5, "docs.read")

	res, err := e.ImportPermissions(ctx, t5, "Docs", []string{"docs.read\ndocs.write"})
	require.NoError(t, err)
	assert.Equal(t, []string{"docs.write"}, res.Created)
	assert.Equal(t, []string{"docs.read"}, res.Existing)

	items, total, err := e.ListPermissions(ctx, repository.ListFilter{Scope: t5, Category: "docs"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, p := range items {
		assert.Equal(t, "docs", p.Category)
	}
}

func TestCheckRoles(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	viewer := mustRole(t, e, t5, "viewer")
	mustRole(t, e, t5, "editor")
	appRole := mustRole(t, e, repository.AppScope("5", "a1"), "operator")
	_, err := e.AssignRoles(ctx, "u1", t5, []string{viewer.ID})
	require.NoError(t, err)
	_, err = e.AssignRoles(ctx, "u1", repository.AppScope("5", "a1"), []string{appRole.ID})
	require.NoError(t, err)

	res, err := e.CheckRoles(ctx, "u1", t5, []string{"VIEWER", "editor", "operator", "viewer"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"viewer": true, "editor": false, "operator": false}, res.Matches)
	assert.False(t, res.All)
	assert.Equal(t, 1, res.DuplicatesFiltered)

	res, err = e.CheckRoles(ctx, "u1", t5, []string{"viewer"})
	require.NoError(t, err)
	assert.True(t, res.All)

	_, err = e.CheckRoles(ctx, " ", t5, []string{"viewer"})
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
	_, err = e.CheckRoles(ctx, "u1", t5, nil)
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestCheckPermissions(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	r := mustRole(t, e, t5, "reader")
	p := mustPerm(t, e, t5, "docs.read")
	require.NoError(t, e.GrantPermissionsToRole(ctx, t5, r.ID, []string{p.ID}))
	_, err := e.AssignRoles(ctx, "u1", t5, []string{r.ID})
	require.NoError(t, err)

	// un permiso de tenant aplica en sus apps
	res, err := e.CheckPermissions(ctx, "u1", repository.AppScope("5", "a1"), []string{"docs.read", "docs.write"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"docs.read": true, "docs.write": false}, res.Matches)
	assert.False(t, res.All)

	res, err = e.CheckPermissions(ctx, "u1", repository.TenantScope("6"), []string{"docs.read"})
	require.NoError(t, err)
	assert.False(t, res.Matches["docs.read"])
}

func TestListRoleHolders(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	t5 := repository.TenantScope("5")
	r := mustRole(t, e, t5, "viewer")
	for _, p := range []string{"u1", "u2"} {
		_, err := e.AssignRoles(ctx, p, t5, []string{r.ID})
		require.NoError(t, err)
	}

	items, total, err := e.ListRoleHolders(ctx, t5, r.ID, repository.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	ids := []string{items[0].PrincipalID, items[1].PrincipalID}
	assert.ElementsMatch(t, []string{"u1", "u2"}, ids)

	_, _, err = e.ListRoleHolders(ctx, repository.TenantScope("6"), r.ID, repository.ListFilter{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
