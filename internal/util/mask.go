package util

import (
	"net/url"
	"strings"
)

// MaskDSN oculta la contraseña de un DSN estilo URL o key=value para logs.
//
//	postgres://app:s3cret@db:5432/cg -> postgres://app:***@db:5432/cg
//	host=db user=app password=s3cret -> host=db user=app password=***
func MaskDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return ""
	}
	if strings.Contains(dsn, "://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "***"
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), "***")
		}
		// url.String escapa el '*' del password
		return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
	}
	parts := strings.Fields(dsn)
	for i, p := range parts {
		if k, _, ok := strings.Cut(p, "="); ok && strings.EqualFold(k, "password") {
			parts[i] = k + "=***"
		}
	}
	return strings.Join(parts, " ")
}
