package compile

import (
	"fmt"

	"github.com/pkg/errors"
)

// ConfigError is a bad path, a malformed env pair or a conflicting flag.
// It is always detected before any work is done.
type ConfigError struct {
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ConfigError) Unwrap() error { return e.Err }

func ConfigErrorf(format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

func wrapConfigError(err error, format string, args ...interface{}) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...), Err: err}
}

// SubprocessError is a non-zero exit from the external compiler.
type SubprocessError struct {
	Backend  string
	Binary   string
	ExitCode int
}

func (e *SubprocessError) Error() string {
	return fmt.Sprintf("%s initialization failure: %s exited with code %d", e.Backend, e.Binary, e.ExitCode)
}

// ExitCode maps an error returned by the orchestrator to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var subprocessErr *SubprocessError
	if errors.As(err, &subprocessErr) && subprocessErr.ExitCode > 0 {
		return subprocessErr.ExitCode
	}
	return 1
}

func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}
