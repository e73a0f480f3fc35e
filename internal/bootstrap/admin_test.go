package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/cache"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/http/services/rbac"
	"github.com/dropDatabas3/consolegate/internal/store/adapters/memory"
)

func TestEnsurePlatformAdmins(t *testing.T) {
	ctx := context.Background()
	engine := rbac.NewEngine(memory.New().RBAC(), cache.NewMemory("t"), time.Minute)

	err := EnsurePlatformAdmins(ctx, AdminBootstrapConfig{Roles: engine, Principals: []string{"root", " ", "ops"}})
	require.NoError(t, err)
	// idempotente
	require.NoError(t, EnsurePlatformAdmins(ctx, AdminBootstrapConfig{Roles: engine, Principals: []string{"root"}}))

	for _, p := range []string{"root", "ops"} {
		ok, err := engine.HasPermission(ctx, p, repository.PlatformScope(), repository.PermAssignmentsWrite)
		require.NoError(t, err)
		assert.True(t, ok, p)
	}
}

func TestEnsurePlatformAdmins_Empty(t *testing.T) {
	assert.NoError(t, EnsurePlatformAdmins(context.Background(), AdminBootstrapConfig{}))
}
