// Package repository define los contratos de dominio del servicio: códigos de
// autorización de consola, RBAC (roles, permisos, asignaciones) y membresías.
//
// Las implementaciones viven en internal/store/adapters/ (pg, memory, redis).
//
//	┌─────────────────────────────────────────────────────┐
//	│     services (authz.Issuer/Exchanger, rbac.Engine)  │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	                        ▼
//	┌─────────────────────────────────────────────────────┐
//	│        domain/repository (interfaces)               │
//	│  CodeRepository, RBACRepository, MembershipRepo     │
//	└─────────────────────────────────────────────────────┘
//	                        │
//	         ┌──────────────┼──────────────┐
//	         ▼              ▼              ▼
//	┌─────────────┐  ┌─────────────┐  ┌─────────────┐
//	│  adapters/  │  │  adapters/  │  │  adapters/  │
//	│     pg      │  │   memory    │  │    redis    │
//	└─────────────┘  └─────────────┘  └─────────────┘
//
// Convenciones:
//   - Context siempre es el primer parámetro.
//   - El Scope se pasa explícitamente; no hay estado de sesión ambiental.
//   - Errores de dominio en errors.go; los adapters traducen errores del driver.
package repository
