package di

import "github.com/kbukum/svckit/errors"

// Sentinels for errors.Is. Errors returned by the builder and the container
// match the sentinel of their code.
var (
	ErrInvalidRegistration       = errors.Sentinel(errors.ErrCodeInvalidRegistration)
	ErrMissingDependencyMetadata = errors.Sentinel(errors.ErrCodeMissingMetadata)
	ErrBuilderConsumed           = errors.Sentinel(errors.ErrCodeBuilderConsumed)
	ErrUnknownService            = errors.Sentinel(errors.ErrCodeUnknownService)
	ErrCircularDependency        = errors.Sentinel(errors.ErrCodeCircularDependency)
	ErrResolutionFailed          = errors.Sentinel(errors.ErrCodeResolutionFailed)
	ErrTypeMismatch              = errors.Sentinel(errors.ErrCodeTypeMismatch)
	ErrContainerDisposed         = errors.Sentinel(errors.ErrCodeContainerDisposed)
	ErrInitializationFailed      = errors.Sentinel(errors.ErrCodeInitializationFailed)
	ErrDisposalFailed            = errors.Sentinel(errors.ErrCodeDisposalFailed)
)
