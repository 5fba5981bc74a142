package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code. This lets
// callers compare against code-only sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// Sentinel returns a code-only error suitable for errors.Is comparisons.
func Sentinel(code ErrorCode) *AppError {
	return &AppError{Code: code, Message: strings.ToLower(strings.ReplaceAll(string(code), "_", " "))}
}

// --- Registration errors ---

// InvalidRegistration creates an error for a registration that can never resolve.
func InvalidRegistration(key, reason string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidRegistration, Message: fmt.Sprintf("Invalid registration for %s: %s", key, reason),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
	}
}

// MissingMetadata creates an error for injection without dependency keys.
func MissingMetadata(key, what string) *AppError {
	return &AppError{
		Code: ErrCodeMissingMetadata, Message: fmt.Sprintf("No %s declared or discoverable for %s", what, key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
	}
}

// BuilderConsumed creates an error for a builder used after Build.
func BuilderConsumed() *AppError {
	return &AppError{
		Code: ErrCodeBuilderConsumed, Message: "The builder has already produced a container.",
		HTTPStatus: http.StatusInternalServerError,
	}
}

// --- Resolution errors ---

// UnknownService creates an error for a key with no registration.
func UnknownService(key string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownService, Message: fmt.Sprintf("No service registered for %s", key),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"key": key},
	}
}

// CircularDependency creates an error naming the key chain of a cycle.
func CircularDependency(chain []string) *AppError {
	return &AppError{
		Code: ErrCodeCircularDependency, Message: fmt.Sprintf("Circular dependency: %s", strings.Join(chain, " -> ")),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"chain": chain},
	}
}

// ResolutionFailed wraps a constructor, factory or injection failure for a key.
func ResolutionFailed(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeResolutionFailed, Message: fmt.Sprintf("Failed to resolve %s", key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key}, Cause: cause,
	}
}

// TypeMismatch creates an error for an instance of an unexpected type.
func TypeMismatch(key string, got any, want string) *AppError {
	return &AppError{
		Code: ErrCodeTypeMismatch, Message: fmt.Sprintf("Service %s is %T, expected %s", key, got, want),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key},
	}
}

// ContainerDisposed creates an error for use of a disposed container.
func ContainerDisposed() *AppError {
	return &AppError{
		Code: ErrCodeContainerDisposed, Message: "The container has been disposed.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// --- Lifecycle errors ---

// InitializationFailed wraps an asynchronous initialization failure.
func InitializationFailed(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInitializationFailed, Message: fmt.Sprintf("Failed to initialize %s", key),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: true,
		Details: map[string]any{"key": key}, Cause: cause,
	}
}

// DisposalFailed wraps a disposal failure of a single instance.
func DisposalFailed(key string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDisposalFailed, Message: fmt.Sprintf("Failed to dispose %s", key),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{"key": key}, Cause: cause,
	}
}

// Timeout creates an error for a lifecycle operation that did not finish in time.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("The %s operation took too long.", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// --- Configuration errors ---

// InvalidConfig creates an error for invalid configuration.
func InvalidConfig(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// IsCode reports whether any error in err's chain is an AppError with code.
func IsCode(err error, code ErrorCode) bool {
	return stderrors.Is(err, &AppError{Code: code})
}
