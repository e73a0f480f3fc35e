package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/consolegate/internal/domain/repository"
)

func TestFromError_Mapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{repository.ErrInvalidCode, http.StatusBadRequest, "INVALID_CODE"},
		{fmt.Errorf("%w: tenant_id required", repository.ErrInvalidInput), http.StatusBadRequest, "VALIDATION_ERROR"},
		{repository.ErrPermissionDenied, http.StatusForbidden, "PERMISSION_DENIED"},
		{repository.ErrSystemRoleProtected, http.StatusForbidden, "SYSTEM_ROLE_PROTECTED"},
		{fmt.Errorf("role: %w", repository.ErrConflict), http.StatusConflict, "CONFLICT"},
		{repository.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{stderrors.Join(repository.ErrUnavailable, repository.ErrTransient), http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE"},
		{stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}
	for _, tc := range cases {
		got := FromError(tc.err)
		assert.Equal(t, tc.status, got.HTTPStatus, tc.err.Error())
		assert.Equal(t, tc.code, got.Code, tc.err.Error())
	}
}

func TestFromError_ValidationDetail(t *testing.T) {
	got := FromError(fmt.Errorf("%w: tenant_id is required", repository.ErrInvalidInput))
	assert.Equal(t, "tenant_id is required", got.Detail)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, stderrors.Join(repository.ErrUnavailable, stderrors.New("db down")))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Contains(t, rec.Body.String(), `"code":"SERVICE_UNAVAILABLE"`)
	assert.NotContains(t, rec.Body.String(), "db down")
}
