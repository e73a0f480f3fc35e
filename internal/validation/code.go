// Package validation contiene reglas de formato compartidas.
package validation

import "regexp"

// Reglas para el code de roles y permisos:
//   - empieza y termina con [A-Za-z0-9]
//   - en el medio admite [A-Za-z0-9:_.-]
//   - largo 1..128
//
// Válidos: viewer, platform_admin, rbac.roles.read, reports:export
// Inválidos: "", "has space", ".lead", "trail-", "semi;colon"
var codeRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9:_.\-]{0,126}[A-Za-z0-9])?$`)

// ValidCode reporta si code cumple el formato.
func ValidCode(code string) bool {
	return codeRe.MatchString(code)
}
