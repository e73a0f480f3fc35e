package repository

import "errors"

// ─── Errores de almacenamiento ───

var (
	// ErrNotFound indica que el recurso solicitado no existe.
	ErrNotFound = errors.New("not found")

	// ErrConflict indica un duplicado o violación de unicidad.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indica que los datos de entrada son inválidos.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTransient indica una falla del storage que puede reintentarse
	// (conexión caída, serialization failure, deadlock).
	ErrTransient = errors.New("transient storage failure")
)

// ─── Errores de dominio ───

var (
	// ErrPermissionDenied: el principal no tiene derecho al contexto pedido.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrInvalidCode colapsa not found / expirado / ya consumido.
	ErrInvalidCode = errors.New("invalid code")

	// ErrSystemRoleProtected: mutación sobre un rol is_system.
	ErrSystemRoleProtected = errors.New("system role protected")

	// ErrUnavailable: el storage siguió fallando después del reintento.
	ErrUnavailable = errors.New("service unavailable")
)

// IsNotFound verifica si el error es ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsConflict verifica si el error es ErrConflict.
func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// IsTransient verifica si el error es ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }
