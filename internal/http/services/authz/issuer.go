package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dropDatabas3/consolegate/internal/audit"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	tokens "github.com/dropDatabas3/consolegate/internal/security/token"
	"github.com/dropDatabas3/consolegate/internal/store"
)

// IssuerDeps contiene las dependencias del Issuer.
type IssuerDeps struct {
	Codes     repository.CodeRepository
	Roles     RoleResolver
	Members   repository.MembershipRepository
	TTL       time.Duration
	CodeBytes int
	// Now es inyectable para tests; default time.Now.
	Now func() time.Time
}

// Issuer emite códigos de consola para principals autenticados.
type Issuer struct {
	codes repository.CodeRepository
	ent   entitlements
	ttl   time.Duration
	bytes int
	now   func() time.Time
}

func NewIssuer(d IssuerDeps) *Issuer {
	if d.TTL <= 0 {
		d.TTL = 30 * time.Second
	}
	if d.CodeBytes < tokens.MinCodeBytes {
		d.CodeBytes = 32
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Issuer{
		codes: d.Codes,
		ent:   entitlements{roles: d.Roles, members: d.Members},
		ttl:   d.TTL,
		bytes: d.CodeBytes,
		now:   d.Now,
	}
}

// Mint valida el pedido, chequea derecho al destino y guarda un código nuevo.
// Errores: ErrInvalidInput, ErrPermissionDenied, ErrConflict (colisión
// repetida), ErrUnavailable.
func (s *Issuer) Mint(ctx context.Context, req MintRequest) (*MintResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authz.issuer"),
		logger.Op("Mint"),
	)

	principal := strings.TrimSpace(req.PrincipalID)
	if principal == "" {
		return nil, fmt.Errorf("%w: principal required", repository.ErrInvalidInput)
	}
	target, err := repository.ParseTargetContext(strings.TrimSpace(req.Target))
	if err != nil {
		return nil, err
	}
	tenantID := strings.TrimSpace(req.TenantID)
	switch {
	case target == repository.TargetTenant && tenantID == "":
		return nil, fmt.Errorf("%w: tenant_id is required for tenant target", repository.ErrInvalidInput)
	case target == repository.TargetAdmin && tenantID != "":
		return nil, fmt.Errorf("%w: tenant_id is not allowed for admin target", repository.ErrInvalidInput)
	}
	if target == repository.TargetTenant {
		if err := repository.TenantScope(tenantID).Validate(); err != nil {
			return nil, err
		}
	}
	log = log.With(logger.PrincipalID(principal), logger.Target(string(target)), logger.TenantID(tenantID))

	if err := s.ent.check(ctx, principal, target, tenantID); err != nil {
		if errors.Is(err, repository.ErrPermissionDenied) {
			log.Info("mint denied")
		} else {
			log.Error("entitlement check failed", logger.Err(err))
		}
		return nil, err
	}

	// Una colisión de 128+ bits es prácticamente imposible; se regenera una vez.
	for attempt := 1; ; attempt++ {
		code, err := tokens.GenerateOpaqueToken(s.bytes)
		if err != nil {
			log.Error("code generation failed", logger.Err(err))
			return nil, err
		}
		hash := tokens.SHA256Base64URL(code)
		b := repository.CodeBundle{
			PrincipalID: principal,
			Target:      target,
			TenantID:    tenantID,
			IssuedAt:    s.now().UTC(),
		}

		err = store.RetryTransient(ctx, func(ctx context.Context) error {
			return s.codes.Put(ctx, hash, b, s.ttl)
		})
		if repository.IsConflict(err) && attempt < 2 {
			log.Warn("code collision, regenerating", logger.Attempt(attempt))
			continue
		}
		if err != nil {
			log.Error("code store failed", logger.Err(err), logger.Attempt(attempt))
			return nil, err
		}

		metrics.CodeMinted(string(target))
		log.Info("console code minted", logger.CodeHash(hash))
		audit.Log(ctx, audit.EventCodeMinted,
			logger.Target(string(target)), logger.TenantID(tenantID), logger.CodeHash(hash))
		return &MintResult{Code: code, Target: target, ExpiresAt: b.IssuedAt.Add(s.ttl)}, nil
	}
}

// Targets lista las consolas alcanzables: admin si tiene rol de plataforma,
// tenants por membresía o por rol.
func (s *Issuer) Targets(ctx context.Context, principalID string) (*Targets, error) {
	admin, err := s.ent.roles.HoldsRoleWithin(ctx, principalID, repository.PlatformScope())
	if err != nil {
		return nil, err
	}
	byRole, err := s.ent.roles.AssignedTenants(ctx, principalID)
	if err != nil {
		return nil, err
	}
	var byMember []string
	err = store.RetryTransient(ctx, func(ctx context.Context) error {
		var ierr error
		byMember, ierr = s.ent.members.ListTenants(ctx, principalID)
		return ierr
	})
	if err != nil {
		return nil, err
	}
	return &Targets{Admin: admin, Tenants: mergeSorted(byRole, byMember)}, nil
}
