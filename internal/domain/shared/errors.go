package shared

import (
	"github.com/samber/oops"
)

// Error codes
const (
	// Landmark errors (2000-2999)
	ErrCodeInvalidObservation = 2001
	ErrCodeInvalidRecording   = 2002
	ErrCodeEstimatorFailed    = 2003

	// Audio errors (3000-3999)
	ErrCodeAudioTrackNotFound = 3001
	ErrCodeAudioDevice        = 3002

	// Configuration errors (4000-4999)
	ErrCodeInvalidConfig = 4001
)

// NewDomainError creates a new domain error using oops
func NewDomainError(code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf("%s", message)
}

// NewDomainErrorf creates a new domain error with formatted message
func NewDomainErrorf(code int, format string, args ...interface{}) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Errorf(format, args...)
}

// WrapDomainError wraps an existing error with domain context
func WrapDomainError(err error, code int, message string) error {
	return oops.
		Code(codeToString(code)).
		In("domain").
		With("error_code", code).
		Wrapf(err, "%s", message)
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code int) bool {
	if err == nil {
		return false
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return false
	}
	return oopsErr.Context()["error_code"] == code
}

// codeToString converts int error code to string
func codeToString(code int) string {
	switch code {
	case ErrCodeInvalidObservation:
		return "INVALID_OBSERVATION"
	case ErrCodeInvalidRecording:
		return "INVALID_RECORDING"
	case ErrCodeEstimatorFailed:
		return "ESTIMATOR_FAILED"
	case ErrCodeAudioTrackNotFound:
		return "AUDIO_TRACK_NOT_FOUND"
	case ErrCodeAudioDevice:
		return "AUDIO_DEVICE"
	case ErrCodeInvalidConfig:
		return "INVALID_CONFIG"
	default:
		return "UNKNOWN_ERROR"
	}
}

// ErrInvalidConfig builds an INVALID_CONFIG error
func ErrInvalidConfig(format string, args ...interface{}) error {
	return NewDomainErrorf(ErrCodeInvalidConfig, format, args...)
}
