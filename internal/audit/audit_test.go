package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

func TestLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	ctx := logger.ToContext(context.Background(), zap.New(core).With(logger.PrincipalID("admin-1")))

	Log(ctx, RBACEvent("delete_role"), logger.RoleID("r1"))

	entries := logs.All()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "audit", e.LoggerName)
	assert.Equal(t, "rbac.delete_role", e.Message)
	fields := e.ContextMap()
	assert.Equal(t, "rbac.delete_role", fields["event"])
	assert.Equal(t, "admin-1", fields["principal_id"])
	assert.Equal(t, "r1", fields["role_id"])
}
