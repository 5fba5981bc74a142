package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Registration errors
const (
	// ErrCodeInvalidRegistration indicates a descriptor that can never produce an instance.
	ErrCodeInvalidRegistration ErrorCode = "INVALID_REGISTRATION"
	// ErrCodeMissingMetadata indicates injection was requested without explicit or discoverable keys.
	ErrCodeMissingMetadata ErrorCode = "MISSING_DEPENDENCY_METADATA"
	// ErrCodeBuilderConsumed indicates a builder was used after Build.
	ErrCodeBuilderConsumed ErrorCode = "BUILDER_CONSUMED"
)

// Resolution errors
const (
	// ErrCodeUnknownService indicates no registration exists for a key.
	ErrCodeUnknownService ErrorCode = "UNKNOWN_SERVICE"
	// ErrCodeCircularDependency indicates a resolution re-entered itself.
	ErrCodeCircularDependency ErrorCode = "CIRCULAR_DEPENDENCY"
	// ErrCodeResolutionFailed indicates a constructor, factory or property injection failed.
	ErrCodeResolutionFailed ErrorCode = "RESOLUTION_FAILED"
	// ErrCodeTypeMismatch indicates a resolved instance is not of the requested type.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"
	// ErrCodeContainerDisposed indicates the container no longer resolves services.
	ErrCodeContainerDisposed ErrorCode = "CONTAINER_DISPOSED"
)

// Lifecycle errors
const (
	// ErrCodeInitializationFailed indicates an asynchronous initialization failed.
	ErrCodeInitializationFailed ErrorCode = "INITIALIZATION_FAILED"
	// ErrCodeDisposalFailed indicates an instance failed to release its resources.
	ErrCodeDisposalFailed ErrorCode = "DISPOSAL_FAILED"
	// ErrCodeTimeout indicates a lifecycle operation did not finish in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates invalid configuration.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeInitializationFailed: true,
	ErrCodeTimeout:              true,
}

// IsRetryableCode returns true if the error code indicates the operation may
// succeed when the caller tries again.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
