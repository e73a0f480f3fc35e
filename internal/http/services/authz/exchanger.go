package authz

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/consolegate/internal/audit"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/jwt"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	tokens "github.com/dropDatabas3/consolegate/internal/security/token"
	"github.com/dropDatabas3/consolegate/internal/store"
)

// ExchangerDeps contiene las dependencias del Exchanger.
type ExchangerDeps struct {
	Codes   repository.CodeRepository
	Roles   RoleResolver
	Members repository.MembershipRepository
	Minter  CredentialMinter
	Now     func() time.Time
}

// Exchanger canjea un código exactamente una vez.
type Exchanger struct {
	codes  repository.CodeRepository
	ent    entitlements
	roles  RoleResolver
	minter CredentialMinter
	now    func() time.Time
}

func NewExchanger(d ExchangerDeps) *Exchanger {
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Exchanger{
		codes:  d.Codes,
		ent:    entitlements{roles: d.Roles, members: d.Members},
		roles:  d.Roles,
		minter: d.Minter,
		now:    d.Now,
	}
}

// Exchange consume el código y emite el access de consola.
//
// Código inexistente, vencido, consumido o con derecho revocado responden
// todos ErrInvalidCode. Sólo ErrUnavailable se distingue (storage caído tras
// el reintento). No hay idempotencia: un segundo canje siempre falla.
func (s *Exchanger) Exchange(ctx context.Context, code string) (*ExchangeResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("authz.exchanger"),
		logger.Op("Exchange"),
	)

	code = strings.TrimSpace(code)
	if code == "" {
		metrics.CodeExchange("invalid")
		return nil, repository.ErrInvalidCode
	}
	hash := tokens.SHA256Base64URL(code)
	log = log.With(logger.CodeHash(hash))

	var b *repository.CodeBundle
	err := store.RetryTransient(ctx, func(ctx context.Context) error {
		var cerr error
		b, cerr = s.codes.TryConsume(ctx, hash, s.now().UTC())
		return cerr
	})
	if err != nil {
		return nil, s.fail(ctx, log, "consume", hash, err)
	}
	log = log.With(logger.PrincipalID(b.PrincipalID), logger.Target(string(b.Target)))

	// el código ya quedó consumido: un derecho revocado no lo devuelve
	if err := s.ent.check(ctx, b.PrincipalID, b.Target, b.TenantID); err != nil {
		return nil, s.fail(ctx, log, "entitlement", hash, err)
	}

	scope := b.Scope()
	perms, err := s.roles.ResolveEffectivePermissions(ctx, b.PrincipalID, scope)
	if err != nil {
		return nil, s.fail(ctx, log, "resolve", hash, err)
	}

	access, exp, err := s.minter.IssueConsoleAccess(jwt.ConsoleGrant{
		Subject:  b.PrincipalID,
		Target:   string(b.Target),
		Scope:    scope.String(),
		TenantID: b.TenantID,
		Perms:    perms,
	})
	if err != nil {
		metrics.CodeExchange("error")
		log.Error("sign console access failed", logger.Err(err))
		return nil, err
	}

	metrics.CodeExchange("ok")
	log.Info("console code exchanged", logger.Scope(scope.String()), logger.Count(len(perms)))
	audit.Log(ctx, audit.EventCodeExchanged,
		logger.PrincipalID(b.PrincipalID), logger.Scope(scope.String()), logger.CodeHash(hash))
	return &ExchangeResult{
		AccessToken: access,
		ExpiresAt:   exp,
		Scope:       scope,
		Target:      b.Target,
		PrincipalID: b.PrincipalID,
		Permissions: perms,
	}, nil
}

// fail colapsa el error a ErrInvalidCode salvo indisponibilidad del storage.
func (s *Exchanger) fail(ctx context.Context, log *zap.Logger, stage, hash string, err error) error {
	if errors.Is(err, repository.ErrUnavailable) {
		metrics.CodeExchange("unavailable")
		log.Error("exchange unavailable", logger.String("stage", stage), logger.Err(err))
		return err
	}
	metrics.CodeExchange("invalid")
	log.Info("exchange rejected", logger.String("stage", stage), logger.Err(err))
	audit.Log(ctx, audit.EventCodeRejected, logger.String("stage", stage), logger.CodeHash(hash))
	return repository.ErrInvalidCode
}
