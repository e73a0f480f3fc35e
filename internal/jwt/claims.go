package jwt

import (
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Tipos de token emitidos.
const (
	TypeSession       = "session"
	TypeConsoleAccess = "console_access"
)

// AudiencePrefix + target (admin | tenant) = aud del access de consola.
const AudiencePrefix = "console:"

// Claims son los claims de cualquier token firmado por el Issuer.
// Los de sesión sólo llevan sub/typ; los de consola agregan scp/tid/perms.
type Claims struct {
	Type     string   `json:"typ"`
	Scope    string   `json:"scp,omitempty"`
	TenantID string   `json:"tid,omitempty"`
	Perms    []string `json:"perms,omitempty"`
	jwtv5.RegisteredClaims
}

func (c *Claims) IsConsoleAccess() bool { return c.Type == TypeConsoleAccess }
