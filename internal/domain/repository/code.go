package repository

import (
	"context"
	"fmt"
	"time"
)

// TargetContext es la consola destino de un código.
type TargetContext string

const (
	TargetAdmin  TargetContext = "admin"
	TargetTenant TargetContext = "tenant"
)

// ParseTargetContext valida el valor recibido por la API.
func ParseTargetContext(v string) (TargetContext, error) {
	switch t := TargetContext(v); t {
	case TargetAdmin, TargetTenant:
		return t, nil
	default:
		return "", fmt.Errorf("%w: target_context must be admin or tenant", ErrInvalidInput)
	}
}

// CodeBundle es lo que un código transporta hasta la consola destino.
type CodeBundle struct {
	PrincipalID string
	Target      TargetContext
	TenantID    string // requerido sii Target == TargetTenant
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// Validate chequea los invariantes del bundle antes de persistirlo.
func (b CodeBundle) Validate() error {
	if b.PrincipalID == "" {
		return fmt.Errorf("%w: principal_id required", ErrInvalidInput)
	}
	switch b.Target {
	case TargetTenant:
		if b.TenantID == "" {
			return fmt.Errorf("%w: tenant target requires tenant_id", ErrInvalidInput)
		}
	case TargetAdmin:
		if b.TenantID != "" {
			return fmt.Errorf("%w: admin target takes no tenant_id", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown target %q", ErrInvalidInput, b.Target)
	}
	if !b.ExpiresAt.After(b.IssuedAt) {
		return fmt.Errorf("%w: expires_at must be after issued_at", ErrInvalidInput)
	}
	return nil
}

// Scope traduce el bundle al scope RBAC de la sesión resultante.
func (b CodeBundle) Scope() Scope {
	if b.Target == TargetTenant {
		return TenantScope(b.TenantID)
	}
	return PlatformScope()
}

// CodeRepository persiste códigos (por hash, nunca en claro) con consumo único.
type CodeRepository interface {
	// Put guarda un código nuevo; ExpiresAt = IssuedAt + ttl.
	// Retorna ErrConflict si el hash ya existe.
	Put(ctx context.Context, codeHash string, b CodeBundle, ttl time.Duration) error

	// TryConsume verifica existencia, vigencia (expires_at > now) y que no esté
	// consumido, y lo marca consumido en el mismo paso atómico.
	// Ante concurrencia exactamente un caller recibe el bundle; el resto ErrNotFound.
	TryConsume(ctx context.Context, codeHash string, now time.Time) (*CodeBundle, error)

	// SweepExpired borra códigos con expires_at <= now. Solo higiene.
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// StampExpiry completa ExpiresAt a partir del ttl; usado por los adapters.
func StampExpiry(b CodeBundle, ttl time.Duration) (CodeBundle, error) {
	if ttl <= 0 {
		return b, fmt.Errorf("%w: ttl must be positive", ErrInvalidInput)
	}
	b.ExpiresAt = b.IssuedAt.Add(ttl)
	return b, b.Validate()
}
