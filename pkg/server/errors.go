package server

import (
	"errors"
	"fmt"
)

const (
	errorCodeInvalidPort        = "SERVER_INVALID_PORT"
	errorCodePortInUse          = "SERVER_PORT_IN_USE"
	errorCodeDirUnavailable     = "SERVER_DIR_UNAVAILABLE"
	errorCodeVersionUnsupported = "SERVER_VERSION_UNSUPPORTED"
	errorCodeConfigUnavailable  = "SERVER_CONFIG_UNAVAILABLE"
	errorCodeInvalidConfig      = "SERVER_INVALID_CONFIG"
	errorCodeAppInitFailed      = "SERVER_INIT_FAILED"
	errorCodeRuntimeFailed      = "SERVER_RUNTIME_FAILED"
	errorCodeNoInstance         = "SERVER_NO_INSTANCE"
	errorCodeStaleInstance      = "SERVER_STALE_INSTANCE"
)

var (
	// ErrInvalidPort indicates an invalid port flag value.
	ErrInvalidPort = errors.New("invalid port")
	// ErrPortInUse indicates the listen port is held by another process.
	ErrPortInUse = errors.New("port already in use")
	// ErrDirUnavailable indicates the serve directory is missing or not a directory.
	ErrDirUnavailable = errors.New("serve directory unavailable")
	// ErrVersionUnsupported indicates the project requires a different glimpse version.
	ErrVersionUnsupported = errors.New("unsupported glimpse version")
	// ErrConfigUnavailable indicates the CLI context lacked a config manager.
	ErrConfigUnavailable = errors.New("config manager unavailable")
	// ErrNoInstance indicates no running glimpse instance is recorded.
	ErrNoInstance = errors.New("no running glimpse instance")
	// ErrStaleInstance indicates the recorded instance no longer responds.
	ErrStaleInstance = errors.New("recorded glimpse instance is not responding")
)

type errorCoder interface {
	error
	Code() string
}

type withCodeError struct {
	error
	code string
}

func (e *withCodeError) Code() string {
	return e.code
}

func (e *withCodeError) Unwrap() error {
	return e.error
}

// WithErrorCode annotates err with a server error code.
func WithErrorCode(err error, code string) error {
	if err == nil {
		return nil
	}
	return &withCodeError{error: err, code: code}
}

// NewInvalidPortError formats an invalid port error with context.
func NewInvalidPortError(port int) error {
	return WithErrorCode(fmt.Errorf("%w: invalid port %d: must be between 1 and 65535", ErrInvalidPort, port), errorCodeInvalidPort)
}

// NewDirUnavailableError reports a serve directory that does not exist or
// is not a directory.
func NewDirUnavailableError(dir string) error {
	return WithErrorCode(fmt.Errorf("%w: %q does not exist or is not a directory", ErrDirUnavailable, dir), errorCodeDirUnavailable)
}

// NewVersionUnsupportedError reports a project whose requires constraint
// rejects the running build.
func NewVersionUnsupportedError(constraint, current string) error {
	return WithErrorCode(fmt.Errorf("%w: this project requires glimpse %q, running %s", ErrVersionUnsupported, constraint, current), errorCodeVersionUnsupported)
}

// NewNoInstanceError reports that no instance record exists to open.
func NewNoInstanceError() error {
	return WithErrorCode(fmt.Errorf("%w: start one with glimpse serve", ErrNoInstance), errorCodeNoInstance)
}

// NewStaleInstanceError reports a recorded instance whose health probe failed.
func NewStaleInstanceError(url string) error {
	return WithErrorCode(fmt.Errorf("%w: %s", ErrStaleInstance, url), errorCodeStaleInstance)
}

// WrapPortInUse annotates a bind failure caused by a busy port.
func WrapPortInUse(err error, port int) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("%w: port %d: %v", ErrPortInUse, port, err), errorCodePortInUse)
}

// WrapInvalidConfig annotates configuration validation errors.
func WrapInvalidConfig(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(fmt.Errorf("invalid server configuration: %w", err), errorCodeInvalidConfig)
}

// WrapAppInit annotates server app creation failures.
func WrapAppInit(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeAppInitFailed)
}

// WrapRuntime annotates server runtime failures.
func WrapRuntime(err error) error {
	if err == nil {
		return nil
	}
	return WithErrorCode(err, errorCodeRuntimeFailed)
}

// ErrorCode resolves a server error to its error code.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}

	var coded errorCoder
	if errors.As(err, &coded) {
		if code := coded.Code(); code != "" {
			return code
		}
	}

	switch {
	case errors.Is(err, ErrInvalidPort):
		return errorCodeInvalidPort
	case errors.Is(err, ErrPortInUse):
		return errorCodePortInUse
	case errors.Is(err, ErrDirUnavailable):
		return errorCodeDirUnavailable
	case errors.Is(err, ErrVersionUnsupported):
		return errorCodeVersionUnsupported
	case errors.Is(err, ErrConfigUnavailable):
		return errorCodeConfigUnavailable
	case errors.Is(err, ErrNoInstance):
		return errorCodeNoInstance
	case errors.Is(err, ErrStaleInstance):
		return errorCodeStaleInstance
	default:
		return errorCodeRuntimeFailed
	}
}

// ExitCode maps server errors to CLI exit codes: 2 for invalid input,
// 7 for environment failures such as a busy port, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	switch {
	case errors.Is(err, ErrInvalidPort),
		errors.Is(err, ErrDirUnavailable),
		errors.Is(err, ErrVersionUnsupported),
		ErrorCode(err) == errorCodeInvalidConfig:
		return 2
	case errors.Is(err, ErrConfigUnavailable):
		return 1
	case errors.Is(err, ErrPortInUse),
		ErrorCode(err) == errorCodeAppInitFailed:
		return 7
	default:
		return 1
	}
}
