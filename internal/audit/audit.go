// Package audit escribe eventos de auditoría sobre el logger "audit".
// El logger del contexto ya trae request_id y principal_id del actor.
package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/dropDatabas3/consolegate/internal/observability/logger"
)

const (
	EventCodeMinted    = "console.code.minted"
	EventCodeExchanged = "console.code.exchanged"
	EventCodeRejected  = "console.code.rejected"
)

// RBACEvent arma el nombre del evento para una mutación rbac (op = create_role, ...).
func RBACEvent(op string) string { return "rbac." + op }

// Log emite event con fields. Nunca falla: la auditoría no corta el request.
func Log(ctx context.Context, event string, fields ...zap.Field) {
	l := logger.From(ctx).Named("audit")
	l.Info(event, append([]zap.Field{zap.String("event", event)}, fields...)...)
}
