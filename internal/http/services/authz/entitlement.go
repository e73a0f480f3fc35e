package authz

import (
	"context"
	"fmt"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/store"
)

// entitlements decide si un principal puede entrar a una consola.
// admin: algún rol de plataforma. tenant: membresía o algún rol dentro del tenant.
type entitlements struct {
	roles   RoleResolver
	members repository.MembershipRepository
}

func (e entitlements) check(ctx context.Context, principalID string, target repository.TargetContext, tenantID string) error {
	var (
		ok  bool
		err error
	)
	switch target {
	case repository.TargetAdmin:
		ok, err = e.roles.HoldsRoleWithin(ctx, principalID, repository.PlatformScope())
	case repository.TargetTenant:
		err = store.RetryTransient(ctx, func(ctx context.Context) error {
			var ierr error
			ok, ierr = e.members.IsMember(ctx, tenantID, principalID)
			return ierr
		})
		if err == nil && !ok {
			ok, err = e.roles.HoldsRoleWithin(ctx, principalID, repository.TenantScope(tenantID))
		}
	default:
		return fmt.Errorf("%w: unknown target %q", repository.ErrInvalidInput, target)
	}
	if err != nil {
		return err
	}
	if !ok {
		return repository.ErrPermissionDenied
	}
	return nil
}
