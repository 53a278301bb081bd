package gepa

import "fmt"

// ConfigError is fatal and raised before the loop starts: empty test set,
// unknown model name, invalid numeric range. No events are emitted for it.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gepa: config error: %s", e.Message)
}

// NewConfigError constructs a ConfigError with a formatted message.
func NewConfigError(format string, args ...any) *ConfigError {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// InternalError is fatal and contained: any exception from archive/Pareto/
// scheduler logic. The run is marked failed and an error event is emitted,
// but the loop exits cleanly rather than propagating a panic.
type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("gepa: internal error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("gepa: internal error: %s", e.Message)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

// NewInternalError wraps cause as an InternalError with context.
func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{Message: message, Cause: cause}
}
