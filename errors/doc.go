// Package errors provides the structured error type used across svckit.
// Every failure carries a machine-readable code, a human-readable message,
// optional details, and the underlying cause. Errors compare equal under
// errors.Is when their codes match, so callers can test against sentinels.
package errors
