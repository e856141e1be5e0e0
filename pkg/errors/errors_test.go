package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(CodeValidation, "validation failed", http.StatusUnprocessableEntity)

	if err.Code != CodeValidation {
		t.Errorf("expected code %s, got %s", CodeValidation, err.Code)
	}
	if err.Message != "validation failed" {
		t.Errorf("expected message 'validation failed', got %s", err.Message)
	}
	if err.HTTPStatus != http.StatusUnprocessableEntity {
		t.Errorf("expected status %d, got %d", http.StatusUnprocessableEntity, err.HTTPStatus)
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("storage unreachable")
	wrapped := Wrap(originalErr, CodeInternal, "internal error", http.StatusInternalServerError)

	if wrapped.Err != originalErr {
		t.Errorf("expected wrapped error to contain original error")
	}
	if wrapped.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, wrapped.Code)
	}
}

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name: "without underlying error",
			appErr: &AppError{
				Code:    CodeNotFound,
				Message: "attendance record not found",
			},
			expected: "NOT_FOUND: attendance record not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("storage unreachable"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: storage unreachable)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.appErr.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if errors.Unwrap(appErr) != originalErr {
		t.Errorf("Unwrap() should return original error")
	}
}

func TestLockTimeout(t *testing.T) {
	cause := errors.New("lock held by another admission attempt")
	appErr := LockTimeout("person p1 room r1", cause)

	if appErr.Code != CodeLockTimeout {
		t.Errorf("expected code %s, got %s", CodeLockTimeout, appErr.Code)
	}
	if appErr.HTTPStatus != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, appErr.HTTPStatus)
	}
	if !errors.Is(appErr, cause) {
		t.Errorf("lock timeout should wrap its cause")
	}
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name      string
		appErr    *AppError
		retryable bool
	}{
		{"lock timeout is retryable", LockTimeout("key", nil), true},
		{"storage timeout is retryable", Timeout("transaction timed out"), true},
		{"unavailable is retryable", Unavailable("idempotency store"), true},
		{"conflict is not retryable", Conflict("already present"), false},
		{"validation is not retryable", Validation("bad input", nil), false},
		{"internal is not retryable", Internal("boom", nil), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Retryable(); got != tt.retryable {
				t.Errorf("Retryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestAsAppError(t *testing.T) {
	appErr := Conflict("room at capacity")
	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError should return the same AppError")
	}

	plain := errors.New("plain error")
	converted := AsAppError(plain)
	if converted.Code != CodeInternal {
		t.Errorf("expected plain errors to convert to %s, got %s", CodeInternal, converted.Code)
	}
	if converted.Err != plain {
		t.Errorf("converted error should wrap the original")
	}
}
