// Package authz implementa el handoff entre consolas: Issuer emite códigos
// de un solo uso, Exchanger los canjea por un access de consola con scope.
package authz

import (
	"context"
	"time"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/jwt"
)

// RoleResolver es lo que authz necesita del motor RBAC.
type RoleResolver interface {
	HoldsRoleWithin(ctx context.Context, principalID string, scope repository.Scope) (bool, error)
	ResolveEffectivePermissions(ctx context.Context, principalID string, scope repository.Scope) ([]string, error)
	AssignedTenants(ctx context.Context, principalID string) ([]string, error)
}

// CredentialMinter firma el access token de consola.
type CredentialMinter interface {
	IssueConsoleAccess(g jwt.ConsoleGrant) (string, time.Time, error)
}

// MintRequest es el pedido ya autenticado: PrincipalID sale de la sesión.
type MintRequest struct {
	PrincipalID string
	Target      string
	TenantID    string
}

// MintResult nunca incluye la credencial final.
type MintResult struct {
	Code      string
	Target    repository.TargetContext
	ExpiresAt time.Time
}

// ExchangeResult es el access de consola emitido al canjear.
type ExchangeResult struct {
	AccessToken string
	ExpiresAt   time.Time
	Scope       repository.Scope
	Target      repository.TargetContext
	PrincipalID string
	Permissions []string
}

// Targets lista a qué consolas puede entrar un principal.
type Targets struct {
	Admin   bool     `json:"admin"`
	Tenants []string `json:"tenants"`
}
