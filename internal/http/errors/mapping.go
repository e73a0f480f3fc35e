package errors

import (
	stderrors "errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

// FromError traduce errores de dominio y de validación a AppError.
// Lo desconocido es 500 con la causa adjunta para el log.
func FromError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	var verrs validator.ValidationErrors
	switch {
	case err == nil:
		return ErrInternalServerError
	case stderrors.As(err, &verrs):
		return ErrValidation.WithDetail(describeValidation(verrs)).WithCause(err)
	// Unavailable primero: viene unido (errors.Join) con la causa transitoria.
	case stderrors.Is(err, repository.ErrUnavailable):
		return ErrServiceUnavailable.WithCause(err)
	case stderrors.Is(err, repository.ErrInvalidCode):
		return ErrInvalidCode
	case stderrors.Is(err, repository.ErrSystemRoleProtected):
		return ErrSystemRoleProtected
	case stderrors.Is(err, repository.ErrPermissionDenied):
		return ErrPermissionDenied
	case stderrors.Is(err, repository.ErrInvalidInput):
		return ErrValidation.WithDetail(detailOf(err, repository.ErrInvalidInput)).WithCause(err)
	case stderrors.Is(err, repository.ErrConflict):
		return ErrConflict.WithCause(err)
	case stderrors.Is(err, repository.ErrNotFound):
		return ErrNotFound.WithCause(err)
	}
	return ErrInternalServerError.WithCause(err)
}

// detailOf quita el prefijo del sentinel ("invalid input: x" -> "x").
func detailOf(err, sentinel error) string {
	msg := err.Error()
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}
