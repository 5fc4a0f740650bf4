package cli

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitRejected = 2
)

// ConfigError represents an unusable configuration.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("configuration error: %v", e.Err)
	}
	return fmt.Sprintf("configuration error in %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents a failed command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// RejectedError reports that a check was answered with a rejection.
type RejectedError struct {
	Identifier string
	Triggered  string
	Reset      int64
}

func (e *RejectedError) Error() string {
	msg := fmt.Sprintf("rate limit exceeded for %q", e.Identifier)
	if e.Triggered != "" {
		msg += fmt.Sprintf(" by %s", e.Triggered)
	}
	return msg
}

// NewConfigError creates a new ConfigError.
func NewConfigError(path string, err error) *ConfigError {
	return &ConfigError{Path: path, Err: err}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{Command: command, Err: err}
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return ExitRejected
	}
	return ExitFailure
}
