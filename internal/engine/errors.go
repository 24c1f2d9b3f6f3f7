package engine

import "errors"

// ConfigurationError wraps errors caused by the desired configuration
// itself: unresolved placeholders, dependency cycles, dangling dependency
// references. These are always fatal, never retried, and reported before
// any infrastructure call is made.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is (or wraps) a configuration
// error. The CLI maps these to a distinct exit code.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
