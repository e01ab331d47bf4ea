package cli

import (
	"errors"
	"fmt"
)

// Exit codes for the charon binary. Configuration failures get their own
// code so wrapper scripts can tell a bad config from a runtime fault.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitConfig  = 2
)

// ConfigError reports configuration that could not be loaded or did not
// validate. Section names the config section or flag at fault, empty
// when the failure is file-level.
type ConfigError struct {
	Section string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Section == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Section, e.Message)
}

// ExitCode returns ExitConfig.
func (e *ConfigError) ExitCode() int { return ExitConfig }

// CommandError wraps a subcommand failure with the command name.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("charon %s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a ConfigError for the given config section.
func NewConfigError(section, message string) *ConfigError {
	return &ConfigError{
		Section: section,
		Message: message,
	}
}

// NewCommandError wraps err as a failure of the named command.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error from the command tree to the process exit code.
// A nil error is ExitOK, an error anywhere in the chain with its own
// ExitCode method supplies the code, and everything else is ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coded interface{ ExitCode() int }
	if errors.As(err, &coded) {
		return coded.ExitCode()
	}
	return ExitFailure
}
