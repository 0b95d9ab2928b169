package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/dmitrijs2005/securecloud/internal/common"
	"github.com/dmitrijs2005/securecloud/internal/cryptox"
	"github.com/stretchr/testify/assert"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"duplicate username", &common.DuplicateError{Field: "username"}, http.StatusConflict, "username already exists"},
		{"wrapped duplicate", fmt.Errorf("x: %w", &common.DuplicateError{Field: "email"}), http.StatusConflict, "email already exists"},
		{"validation", fmt.Errorf("%w: username is required", common.ErrorValidation), http.StatusBadRequest, "validation error: username is required"},
		{"bad credentials", common.ErrorUnauthorized, http.StatusUnauthorized, "invalid credentials"},
		{"no session", fmt.Errorf("%w: %w", common.ErrUnauthenticated, common.ErrSessionExpired), http.StatusUnauthorized, "authentication required"},
		{"forbidden", common.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"not found", common.ErrorNotFound, http.StatusNotFound, "not found"},
		{"vault missing", cryptox.ErrVaultKeyMissing, http.StatusServiceUnavailable, "encryption is not configured"},
		{"integrity", fmt.Errorf("decrypt: %w", common.ErrIntegrity), http.StatusInternalServerError, "content integrity check failed"},
		{"too large", &http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge, "upload too large"},
		{"other", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := errorStatus(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, body.Error)
		})
	}
}

func TestErrorStatus_DoesNotLeakInternals(t *testing.T) {
	_, body := errorStatus(errors.New("dial tcp 10.0.0.5:5432: secret detail"))
	assert.NotContains(t, body.Error, "10.0.0.5")
}
