package apperror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	e := New("ING_001", "Missing invoice_token", http.StatusBadRequest)
	assert.Equal(t, "[ING_001] Missing invoice_token", e.Error())
}

func TestAppError_ErrorWithWrapped(t *testing.T) {
	inner := errors.New("connection refused")
	e := Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, inner)
	assert.Contains(t, e.Error(), "SYS_001")
	assert.Contains(t, e.Error(), "connection refused")
}

func TestAppError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	e := ErrDatabaseError(inner)
	require.ErrorIs(t, e, inner)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   string
		wantStatus int
	}{
		{"missing token", ErrMissingToken(), "ING_001", http.StatusBadRequest},
		{"malformed payload", ErrMalformedPayload(), "ING_002", http.StatusBadRequest},
		{"delivery not found", ErrDeliveryNotFound(), "DSP_001", http.StatusNotFound},
		{"webhook not found", ErrWebhookNotFound(), "DSP_002", http.StatusNotFound},
		{"invalid service token", ErrInvalidServiceToken(), "AUTH_001", http.StatusUnauthorized},
		{"database error", ErrDatabaseError(errors.New("x")), "SYS_001", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, tt.err.Code)
			assert.Equal(t, tt.wantStatus, tt.err.HTTPStatus)
		})
	}
}

func TestErrorsAs(t *testing.T) {
	var err error = ErrDeliveryNotFound()

	var appErr *AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DSP_001", appErr.Code)
}
