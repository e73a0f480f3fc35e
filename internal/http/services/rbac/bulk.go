package rbac

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

const (
	importedDescription = "imported"
	maxBulkCodes        = 500
)

// CheckResult es el resultado de un chequeo por códigos.
type CheckResult struct {
	Matches            map[string]bool
	All                bool
	DuplicatesFiltered int
}

// ImportResult resume un alta masiva por códigos.
type ImportResult struct {
	Created            []string
	Existing           []string
	Invalid            []string
	DuplicatesFiltered int
}

func isCodeSeparator(r rune) bool {
	return r == ',' || r == ';' || unicode.IsSpace(r)
}

// NormalizeCodes separa cada entrada por coma, punto y coma o espacios,
// pasa a minúsculas y descarta duplicados conservando el orden. Retorna
// además cuántos duplicados se filtraron.
func NormalizeCodes(raw []string) ([]string, int) {
	seen := map[string]struct{}{}
	out := []string{}
	dups := 0
	for _, entry := range raw {
		for _, c := range strings.FieldsFunc(entry, isCodeSeparator) {
			c = strings.ToLower(c)
			if _, ok := seen[c]; ok {
				dups++
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out, dups
}

func bulkCodes(raw []string) ([]string, int, error) {
	codes, dups := NormalizeCodes(raw)
	switch {
	case len(codes) == 0:
		return nil, 0, invalid("codes is required")
	case len(codes) > maxBulkCodes:
		return nil, 0, invalid("at most %d codes per request", maxBulkCodes)
	}
	return codes, dups, nil
}

func matchCodes(codes []string, held map[string]struct{}, dups int) *CheckResult {
	res := &CheckResult{Matches: make(map[string]bool, len(codes)), All: true, DuplicatesFiltered: dups}
	for _, c := range codes {
		_, ok := held[c]
		res.Matches[c] = ok
		res.All = res.All && ok
	}
	return res
}

// CheckRoles reporta, por código, si el principal tiene asignado ese rol
// exactamente en scope.
func (e *Engine) CheckRoles(ctx context.Context, principalID string, scope repository.Scope, codes []string) (*CheckResult, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, invalid("principal_id is required")
	}
	want, dups, err := bulkCodes(codes)
	if err != nil {
		return nil, err
	}
	roles, err := e.ListAssignedRoles(ctx, principalID, scope)
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		held[strings.ToLower(r.Code)] = struct{}{}
	}
	return matchCodes(want, held, dups), nil
}

// CheckPermissions reporta, por código, si el principal tiene ese permiso
// efectivo en scope.
func (e *Engine) CheckPermissions(ctx context.Context, principalID string, scope repository.Scope, codes []string) (*CheckResult, error) {
	want, dups, err := bulkCodes(codes)
	if err != nil {
		return nil, err
	}
	perms, err := e.ResolveEffectivePermissions(ctx, strings.TrimSpace(principalID), scope)
	if err != nil {
		return nil, err
	}
	held := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		held[strings.ToLower(p)] = struct{}{}
	}
	return matchCodes(want, held, dups), nil
}

// importCodes crea cada código con create; ErrConflict cuenta como existente
// y ErrInvalidInput como inválido. Cualquier otro error corta el import.
func (e *Engine) importCodes(ctx context.Context, op string, scope repository.Scope, raw []string, create func(ctx context.Context, code string) error) (*ImportResult, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	codes, dups, err := bulkCodes(raw)
	if err != nil {
		return nil, err
	}
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component(componentRBAC),
		logger.Op(op),
		logger.Scope(scope.String()),
	)

	res := &ImportResult{Created: []string{}, Existing: []string{}, Invalid: []string{}, DuplicatesFiltered: dups}
	for _, code := range codes {
		err := retry(ctx, func(ctx context.Context) error { return create(ctx, code) })
		switch {
		case err == nil:
			res.Created = append(res.Created, code)
		case errors.Is(err, repository.ErrConflict):
			res.Existing = append(res.Existing, code)
		case errors.Is(err, repository.ErrInvalidInput):
			res.Invalid = append(res.Invalid, code)
		default:
			// lo ya creado queda; sin asignaciones no cambia ningún efectivo
			e.mutated(ctx, op, err)
			log.Error("import aborted", logger.Err(err), logger.Count(len(res.Created)))
			return nil, err
		}
	}
	if len(res.Created) > 0 {
		e.mutated(ctx, op, nil)
	}
	log.Info("codes imported",
		logger.Int("created", len(res.Created)),
		logger.Int("existing", len(res.Existing)),
		logger.Int("invalid", len(res.Invalid)),
	)
	return res, nil
}

// ImportRoles crea en scope un rol por cada código nuevo (name=code).
func (e *Engine) ImportRoles(ctx context.Context, scope repository.Scope, codes []string) (*ImportResult, error) {
	return e.importCodes(ctx, "import_roles", scope, codes, func(ctx context.Context, code string) error {
		in, err := normalizeRole(repository.RoleInput{Code: code, Name: code, Description: importedDescription})
		if err != nil {
			return err
		}
		_, err = e.repo.CreateRole(ctx, scope, in)
		return err
	})
}

// ImportPermissions crea en scope un permiso por cada código nuevo dentro de category.
func (e *Engine) ImportPermissions(ctx context.Context, scope repository.Scope, category string, codes []string) (*ImportResult, error) {
	return e.importCodes(ctx, "import_permissions", scope, codes, func(ctx context.Context, code string) error {
		in, err := normalizePermission(repository.PermissionInput{
			Code: code, Name: code, Description: importedDescription, Category: category,
		})
		if err != nil {
			return err
		}
		_, err = e.repo.CreatePermission(ctx, scope, in)
		return err
	})
}

// ListRoleHolders pagina los principals que tienen el rol de scope.
func (e *Engine) ListRoleHolders(ctx context.Context, scope repository.Scope, roleID string, f repository.ListFilter) ([]repository.RoleHolder, int, error) {
	if _, err := e.GetRole(ctx, scope, roleID); err != nil {
		return nil, 0, err
	}
	f = NormalizeFilter(f)
	f.Category = ""

	var (
		items []repository.RoleHolder
		total int
	)
	err := retry(ctx, func(ctx context.Context) error {
		var err error
		items, total, err = e.repo.ListRoleHolders(ctx, roleID, f)
		return err
	})
	return items, total, err
}
