// Package rbac implementa el motor RBAC: dueño de roles, permisos y
// asignaciones, y resolución de permisos efectivos por scope.
//
// Toda operación recibe el scope explícito. Un id que existe en otro
// scope se reporta como ErrNotFound.
package rbac

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"

	"github.com/dropDatabas3/consolegate/internal/audit"
	"github.com/dropDatabas3/consolegate/internal/cache"
	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/metrics"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
	"github.com/dropDatabas3/consolegate/internal/store"
	"github.com/dropDatabas3/consolegate/internal/validation"
)

const componentRBAC = "rbac.engine"

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxCodeLen      = 128
	maxNameLen      = 256

	genKey = "rbac:gen"

	// límite del load compartido cuando ya no depende del ctx de ningún caller
	flightTimeout = 5 * time.Second
)

// Engine coordina el repositorio RBAC con el cache de permisos efectivos.
//
// El cache se invalida por generación: cada mutación escribe una generación
// nueva y las claves viejas dejan de leerse (y expiran por TTL). Con cache
// memory en varias réplicas la invalidación es local y el TTL acota lo stale.
type Engine struct {
	repo  repository.RBACRepository
	cache cache.Client
	ttl   time.Duration
	sf    singleflight.Group
}

func NewEngine(repo repository.RBACRepository, c cache.Client, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Engine{repo: repo, cache: c, ttl: ttl}
}

// ─── helpers ───

func retry(ctx context.Context, fn func(ctx context.Context) error) error {
	return store.RetryTransient(ctx, fn)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repository.ErrInvalidInput, fmt.Sprintf(format, args...))
}

// FoldCategory normaliza la categoría: trim + case folding Unicode.
func FoldCategory(c string) string {
	return cases.Fold().String(strings.TrimSpace(c))
}

func normalizeRole(in repository.RoleInput) (repository.RoleInput, error) {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	switch {
	case in.Code == "":
		return in, invalid("code is required")
	case len(in.Code) > maxCodeLen:
		return in, invalid("code too long")
	case !validation.ValidCode(in.Code):
		return in, invalid("code %q has invalid characters", in.Code)
	case in.Name == "":
		return in, invalid("name is required")
	case len(in.Name) > maxNameLen:
		return in, invalid("name too long")
	}
	return in, nil
}

func normalizePermission(in repository.PermissionInput) (repository.PermissionInput, error) {
	r, err := normalizeRole(repository.RoleInput{Code: in.Code, Name: in.Name, Description: in.Description})
	if err != nil {
		return in, err
	}
	in.Code, in.Name, in.Description = r.Code, r.Name, r.Description
	in.Category = FoldCategory(in.Category)
	if len(in.Category) > maxNameLen {
		return in, invalid("category too long")
	}
	return in, nil
}

// dedupTrim normaliza ids: trim, descarta vacíos y duplicados, conserva orden.
func dedupTrim(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NormalizeFilter aplica defaults de paginado y pliega la categoría.
func NormalizeFilter(f repository.ListFilter) repository.ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize <= 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	if f.Category != "" {
		f.Category = FoldCategory(f.Category)
	}
	return f
}

// mutated registra la métrica y, si la mutación fue exitosa, invalida el cache.
func (e *Engine) mutated(ctx context.Context, op string, err error) {
	metrics.RBACMutation(op, err)
	if err != nil {
		return
	}
	audit.Log(ctx, audit.RBACEvent(op))
	if cerr := e.cache.Set(ctx, genKey, uuid.NewString(), 0); cerr != nil {
		logger.From(ctx).Warn("permission cache invalidation failed",
			logger.Component(componentRBAC), logger.Op(op), logger.Err(cerr))
	}
}

// ─── Resolución ───

func (e *Engine) generation(ctx context.Context) (string, error) {
	gen, err := e.cache.Get(ctx, genKey)
	if err == nil {
		return gen, nil
	}
	if !cache.IsNotFound(err) {
		return "", err
	}
	// Sin generación (arranque o evicción): una nueva deja inalcanzable lo anterior.
	gen = uuid.NewString()
	if err := e.cache.Set(ctx, genKey, gen, 0); err != nil {
		return "", err
	}
	return gen, nil
}

// ResolveEffectivePermissions devuelve la unión ordenada de códigos de permiso
// de los roles del principal cuyo scope cubre scope.
func (e *Engine) ResolveEffectivePermissions(ctx context.Context, principalID string, scope repository.Scope) ([]string, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(principalID) == "" {
		return nil, invalid("principal_id is required")
	}
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentRBAC),
		logger.PrincipalID(principalID),
		logger.Scope(scope.String()),
	)

	gen, err := e.generation(ctx)
	if err != nil {
		metrics.PermissionCache("error")
		log.Warn("permission cache unavailable, resolving from store", logger.Err(err))
		return e.loadEffective(ctx, principalID, scope)
	}
	key := effectiveKey(gen, principalID, scope)

	if raw, err := e.cache.Get(ctx, key); err == nil {
		var perms []string
		if json.Unmarshal([]byte(raw), &perms) == nil {
			metrics.PermissionCache("hit")
			return perms, nil
		}
	}
	metrics.PermissionCache("miss")

	// el load compartido no hereda la cancelación de ningún caller
	ch := e.sf.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		perms, err := e.loadEffective(fctx, principalID, scope)
		if err != nil {
			return nil, err
		}
		if b, merr := json.Marshal(perms); merr == nil {
			if serr := e.cache.Set(fctx, key, string(b), e.ttl); serr != nil {
				log.Debug("permission cache set failed", logger.Err(serr))
			}
		}
		return perms, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		// copia: el slice compartido por singleflight no se entrega mutable
		perms := res.Val.([]string)
		return append([]string(nil), perms...), nil
	}
}

// effectiveKey escapa cada parte: ids con ':' no pueden colisionar.
func effectiveKey(gen, principalID string, scope repository.Scope) string {
	return "rbac:eff:" + url.QueryEscape(gen) + ":" + url.QueryEscape(principalID) + ":" +
		url.QueryEscape(string(scope.Kind)) + ":" + url.QueryEscape(scope.TenantID) + ":" + url.QueryEscape(scope.AppID)
}

func (e *Engine) loadEffective(ctx context.Context, principalID string, scope repository.Scope) ([]string, error) {
	var perms []string
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		perms, err = e.repo.EffectivePermissions(ctx, principalID, scope)
		return err
	})
	if perms == nil && err == nil {
		perms = []string{}
	}
	return perms, err
}

// HasPermission reporta si el principal tiene code en scope.
func (e *Engine) HasPermission(ctx context.Context, principalID string, scope repository.Scope, code string) (bool, error) {
	perms, err := e.ResolveEffectivePermissions(ctx, principalID, scope)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == code {
			return true, nil
		}
	}
	return false, nil
}

// HoldsRoleWithin reporta si el principal tiene algún rol dentro de scope
// (platform: sólo roles platform; tenant: roles del tenant o de sus apps).
func (e *Engine) HoldsRoleWithin(ctx context.Context, principalID string, scope repository.Scope) (bool, error) {
	var ok bool
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		ok, err = e.repo.HasAssignmentWithin(ctx, principalID, scope)
		return err
	})
	return ok, err
}

// AssignedTenants lista tenants donde el principal tiene algún rol.
func (e *Engine) AssignedTenants(ctx context.Context, principalID string) ([]string, error) {
	var out []string
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		out, err = e.repo.ListAssignedTenants(ctx, principalID)
		return err
	})
	return out, err
}
