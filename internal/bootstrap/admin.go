// Package bootstrap prepara el estado inicial al arrancar el servicio.
package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

// RoleEnsurer asigna (aditivo) un rol por code.
type RoleEnsurer interface {
	EnsureRole(ctx context.Context, principalID string, scope repository.Scope, code string) error
}

// AdminBootstrapConfig lista los principals que deben ser platform_admin.
type AdminBootstrapConfig struct {
	Roles      RoleEnsurer
	Principals []string
}

// EnsurePlatformAdmins garantiza que cada principal configurado tenga el rol
// de sistema platform_admin. No quita el rol a nadie.
func EnsurePlatformAdmins(ctx context.Context, cfg AdminBootstrapConfig) error {
	log := logger.From(ctx).With(logger.Component("bootstrap.admin"))
	if len(cfg.Principals) == 0 {
		log.Debug("no platform admins configured")
		return nil
	}
	for _, p := range cfg.Principals {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if err := cfg.Roles.EnsureRole(ctx, p, repository.PlatformScope(), repository.PlatformAdminRole); err != nil {
			return fmt.Errorf("bootstrap: ensure platform admin %q: %w", p, err)
		}
		log.Info("platform admin ensured", logger.PrincipalID(p))
	}
	return nil
}
