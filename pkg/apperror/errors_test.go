package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("PAY_001", "invalid amount", http.StatusBadRequest),
			expected: "[PAY_001] invalid amount",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("SYS_001", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[SYS_001] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("SYS_001", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestAppError_IsNilUnwrap(t *testing.T) {
	appErr := New("PAY_001", "test", http.StatusBadRequest)
	assert.Nil(t, appErr.Unwrap())
}

func TestAppError_Retryable(t *testing.T) {
	inner := fmt.Errorf("timeout")
	retryable := WrapRetryable("GW_002", "gateway timeout", http.StatusGatewayTimeout, inner)
	assert.True(t, retryable.Retryable)

	fatal := Wrap("SEC_001", "bad envelope", http.StatusBadRequest, inner)
	assert.False(t, fatal.Retryable)
}

func TestSealErrors(t *testing.T) {
	inner := fmt.Errorf("bad hex")
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidEnvelope", ErrInvalidEnvelope(inner), "SEC_001", http.StatusBadRequest},
		{"SignatureMismatch", ErrSignatureMismatch(), "SEC_002", http.StatusUnauthorized},
		{"EncodingError", ErrEncodingError(inner), "SEC_003", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidAmount", ErrInvalidAmount(), "PAY_001", 400},
		{"AmountMismatch", ErrAmountMismatch(), "PAY_002", 409},
		{"OrderAlreadyPaid", ErrOrderAlreadyPaid(), "PAY_003", 409},
		{"OrderNotFound", ErrOrderNotFound(), "PAY_004", 404},
		{"BadProduct", ErrBadProduct("sku-1"), "PAY_005", 422},
		{"TokenNotFound", ErrTokenNotFound(), "PAY_006", 404},
		{"CacheFull", ErrCacheFull(), "PAY_007", 503},
		{"EntitlementNotFound", ErrEntitlementNotFound(), "PAY_008", 404},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestGatewayErrors(t *testing.T) {
	inner := fmt.Errorf("dial tcp: refused")
	tests := []struct {
		name string
		err  *AppError
		code string
	}{
		{"RemoteError", ErrRemoteError(inner), "GW_001"},
		{"APITimeout", ErrAPITimeout(inner), "GW_002"},
		{"ServiceUnavailable", ErrServiceUnavailable(inner), "GW_003"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.True(t, tt.err.Retryable)
		})
	}
}

func TestAuthErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"InvalidCredentials", ErrInvalidCredentials(), "AUTH_001", 401},
		{"InvalidToken", ErrInvalidToken(), "AUTH_002", 401},
		{"Unauthenticated", ErrUnauthenticated(), "AUTH_003", 401},
		{"CSRFMismatch", ErrCSRFMismatch(), "AUTH_004", 403},
		{"CaptchaFailed", ErrCaptchaFailed(), "AUTH_005", 403},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestSystemErrors(t *testing.T) {
	inner := fmt.Errorf("pg: connection closed")
	dbErr := ErrDatabaseError(inner)
	assert.Equal(t, "SYS_001", dbErr.Code)
	assert.Equal(t, 500, dbErr.HTTPStatus)
	assert.True(t, errors.Is(dbErr, inner))
	assert.False(t, dbErr.Retryable)

	transientErr := ErrDatabaseTransient(inner)
	assert.Equal(t, "SYS_002", transientErr.Code)
	assert.True(t, transientErr.Retryable)

	lockErr := ErrLockTimeout(inner)
	assert.Equal(t, "SYS_003", lockErr.Code)
	assert.Equal(t, 503, lockErr.HTTPStatus)
	assert.True(t, lockErr.Retryable)

	encErr := ErrEncryptionFailure(inner)
	assert.Equal(t, "SYS_004", encErr.Code)
	assert.Equal(t, 500, encErr.HTTPStatus)
}

func TestRateLimitError(t *testing.T) {
	err := ErrRateLimitExceeded()
	assert.Equal(t, "RATE_001", err.Code)
	assert.Equal(t, 429, err.HTTPStatus)
}

func TestBadProductMessage(t *testing.T) {
	err := ErrBadProduct("sub-yearly")
	assert.Contains(t, err.Message, "sub-yearly")
	assert.Equal(t, "PAY_005", err.Code)
}
