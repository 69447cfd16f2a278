package platform

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrNotSupported is returned when a capability is not exposed on the current platform.
var ErrNotSupported = errors.New("operation not supported on this platform")

// PlatformError represents an error when an operation is not supported on the current platform.
type PlatformError struct {
	Operation string
	Platform  string
	Message   string
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("%s is not supported on %s: %s", e.Operation, e.Platform, e.Message)
}

func (e *PlatformError) Is(target error) bool {
	return target == ErrNotSupported
}

// NewPlatformError creates a formatted error for an unsupported capability.
func NewPlatformError(c Capability, provider string) error {
	return &PlatformError{
		Operation: c.String(),
		Platform:  runtime.GOOS,
		Message:   fmt.Sprintf("not offered by %s provider", provider),
	}
}
