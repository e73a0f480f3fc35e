package rbac

import (
	"context"
	"strings"

	"github.com/dropDatabas3/consolegate/internal/audit"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	"github.com/dropDatabas3/consolegate/internal/store"
)

// Members administra membresías de tenant. No toca permisos: sólo habilita
// la entrada a la consola del tenant.
type Members struct {
	repo repository.MembershipRepository
}

func NewMembers(repo repository.MembershipRepository) *Members {
	return &Members{repo: repo}
}

func (m *Members) Add(ctx context.Context, tenantID, principalID string) (*repository.Membership, error) {
	tenantID, principalID = strings.TrimSpace(tenantID), strings.TrimSpace(principalID)
	if tenantID == "" || principalID == "" {
		return nil, invalid("tenant_id and principal_id are required")
	}
	var out *repository.Membership
	err := store.RetryTransient(ctx, func(ctx context.Context) error {
		var err error
		out, err = m.repo.Add(ctx, tenantID, principalID)
		return err
	})
	metrics.RBACMutation("add_member", err)
	if err == nil {
		audit.Log(ctx, audit.RBACEvent("add_member"), logger.TenantID(tenantID), logger.String("member", principalID))
	}
	return out, err
}

// Remove: ErrNotFound si no era miembro.
func (m *Members) Remove(ctx context.Context, tenantID, principalID string) error {
	err := store.RetryTransient(ctx, func(ctx context.Context) error {
		return m.repo.Remove(ctx, tenantID, principalID)
	})
	metrics.RBACMutation("remove_member", err)
	if err == nil {
		audit.Log(ctx, audit.RBACEvent("remove_member"), logger.TenantID(tenantID), logger.String("member", principalID))
	}
	return err
}

func (m *Members) List(ctx context.Context, tenantID string) ([]repository.Membership, error) {
	var out []repository.Membership
	err := store.RetryTransient(ctx, func(ctx context.Context) error {
		var err error
		out, err = m.repo.ListMembers(ctx, tenantID)
		return err
	})
	return out, err
}
