package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// HTTP
// =================================================================================

func RequestID(v string) zap.Field { return zap.String("request_id", v) }
func Method(v string) zap.Field    { return zap.String("method", v) }
func Path(v string) zap.Field      { return zap.String("path", v) }
func Status(v int) zap.Field       { return zap.Int("status", v) }
func Bytes(v int) zap.Field        { return zap.Int("bytes", v) }
func ClientIP(v string) zap.Field  { return zap.String("client_ip", v) }
func UserAgent(v string) zap.Field { return zap.String("user_agent", v) }

// DurationMs crea un campo para la duración en milisegundos.
func DurationMs(d time.Duration) zap.Field {
	return zap.Int64("duration_ms", d.Milliseconds())
}

// =================================================================================
// AUTORIZACIÓN
// =================================================================================

// PrincipalID identifica al usuario autenticado que origina la operación.
func PrincipalID(v string) zap.Field { return zap.String("principal_id", v) }

// TenantID crea un campo para el ID del tenant.
func TenantID(v string) zap.Field { return zap.String("tenant_id", v) }

// AppID crea un campo para el ID de la app dentro del tenant.
func AppID(v string) zap.Field { return zap.String("app_id", v) }

// Scope serializa un scope RBAC (platform, tenant/5, tenant/5/app/9).
func Scope(v string) zap.Field { return zap.String("scope", v) }

// Target es el contexto de consola destino (admin|tenant).
func Target(v string) zap.Field { return zap.String("target_context", v) }

// RoleID crea un campo para el ID de un rol.
func RoleID(v string) zap.Field { return zap.String("role_id", v) }

// CodeHash nunca debe recibir el código en claro.
func CodeHash(v string) zap.Field { return zap.String("code_hash", v) }

// =================================================================================
// SISTEMA
// =================================================================================

func Component(v string) zap.Field { return zap.String("component", v) }
func Op(v string) zap.Field        { return zap.String("op", v) }
func Layer(v string) zap.Field     { return zap.String("layer", v) }
func Err(err error) zap.Field      { return zap.Error(err) }
func Count(v int) zap.Field        { return zap.Int("count", v) }
func Attempt(v int) zap.Field      { return zap.Int("attempt", v) }

func String(key, v string) zap.Field { return zap.String(key, v) }
func Int(key string, v int) zap.Field { return zap.Int(key, v) }
func Bool(key string, v bool) zap.Field { return zap.Bool(key, v) }
func Any(key string, v any) zap.Field { return zap.Any(key, v) }
