package cmd

import (
	"errors"

	"github.com/git-pkgs/changelogging"
)

// Exit codes of the changelogging binary.
const (
	Success      = 0
	GeneralError = 1
	ConfigError  = 2
	NoUpdates    = 3
	InputError   = 4
)

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, changelogging.ErrInvalidConfig):
		return ConfigError
	case errors.Is(err, changelogging.ErrNoUpdates):
		return NoUpdates
	case errors.Is(err, changelogging.ErrMalformedReport), errors.Is(err, changelogging.ErrInputMissing):
		return InputError
	default:
		return GeneralError
	}
}
