package repository

import (
	"fmt"
	"strings"
)

// ScopeKind es el nivel donde aplica un rol o permiso.
type ScopeKind string

const (
	ScopePlatform ScopeKind = "platform"
	ScopeTenant   ScopeKind = "tenant"
	ScopeApp      ScopeKind = "app"
)

// Scope es la unión {platform} | {tenant, tenant_id} | {app, tenant_id, app_id}.
// El valor cero no es válido; usar los constructores.
type Scope struct {
	Kind     ScopeKind `json:"type"`
	TenantID string    `json:"tenant_id,omitempty"`
	AppID    string    `json:"app_id,omitempty"`
}

func PlatformScope() Scope { return Scope{Kind: ScopePlatform} }

func TenantScope(tenantID string) Scope {
	return Scope{Kind: ScopeTenant, TenantID: tenantID}
}

func AppScope(tenantID, appID string) Scope {
	return Scope{Kind: ScopeApp, TenantID: tenantID, AppID: appID}
}

// Validate exige que los IDs presentes coincidan exactamente con el Kind.
func (s Scope) Validate() error {
	switch s.Kind {
	case ScopePlatform:
		if s.TenantID != "" || s.AppID != "" {
			return fmt.Errorf("%w: platform scope takes no ids", ErrInvalidInput)
		}
	case ScopeTenant:
		if s.TenantID == "" || s.AppID != "" {
			return fmt.Errorf("%w: tenant scope requires tenant_id only", ErrInvalidInput)
		}
	case ScopeApp:
		if s.TenantID == "" || s.AppID == "" {
			return fmt.Errorf("%w: app scope requires tenant_id and app_id", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, s.Kind)
	}
	if strings.Contains(s.TenantID, "/") || strings.Contains(s.AppID, "/") {
		return fmt.Errorf("%w: scope ids cannot contain '/'", ErrInvalidInput)
	}
	return nil
}

// Covers reporta si los permisos de un rol con scope s aplican a un request
// en other: platform cubre todo, tenant cubre su tenant y sus apps, app solo a sí mismo.
func (s Scope) Covers(other Scope) bool {
	switch s.Kind {
	case ScopePlatform:
		return true
	case ScopeTenant:
		return other.Kind != ScopePlatform && other.TenantID == s.TenantID
	case ScopeApp:
		return other == s
	}
	return false
}

// Within reporta si s queda dentro de outer sin subir de nivel: platform solo
// contiene platform; tenant contiene su tenant y sus apps.
func (s Scope) Within(outer Scope) bool {
	if outer.Kind == ScopePlatform {
		return s.Kind == ScopePlatform
	}
	return outer.Covers(s)
}

// Equal compara por valor.
func (s Scope) Equal(other Scope) bool { return s == other }

// String: "platform", "tenant/5", "tenant/5/app/9".
func (s Scope) String() string {
	switch s.Kind {
	case ScopeTenant:
		return "tenant/" + s.TenantID
	case ScopeApp:
		return "tenant/" + s.TenantID + "/app/" + s.AppID
	default:
		return string(s.Kind)
	}
}

// ParseScope es la inversa de String.
func ParseScope(raw string) (Scope, error) {
	parts := strings.Split(strings.Trim(strings.TrimSpace(raw), "/"), "/")
	var sc Scope
	switch {
	case len(parts) == 1 && parts[0] == string(ScopePlatform):
		sc = PlatformScope()
	case len(parts) == 2 && parts[0] == "tenant":
		sc = TenantScope(parts[1])
	case len(parts) == 4 && parts[0] == "tenant" && parts[2] == "app":
		sc = AppScope(parts[1], parts[3])
	default:
		return Scope{}, fmt.Errorf("%w: malformed scope %q", ErrInvalidInput, raw)
	}
	if err := sc.Validate(); err != nil {
		return Scope{}, err
	}
	return sc, nil
}
