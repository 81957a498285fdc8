package main

import (
	"github.com/d2verb/gpioctl/internal/client"
	"github.com/d2verb/gpioctl/internal/dispatch"
)

// Exit codes for the CLI.
const (
	exitSuccess     = 0
	exitError       = 1 // invalid arguments or startup failure
	exitConnRefused = 2
	exitConnFailed  = 3
	exitTimeout     = 4
)

// ExitError represents an error that should cause the process to exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// strictExitError maps the first failed round trip of res to an exit code.
// It returns nil when every round trip succeeded.
func strictExitError(res dispatch.Result) *ExitError {
	err := res.Err()
	if err == nil {
		return nil
	}
	// The failure was already rendered; exit silently.
	switch client.KindOf(err) {
	case client.KindConnectionRefused:
		return &ExitError{Code: exitConnRefused}
	case client.KindTimeout:
		return &ExitError{Code: exitTimeout}
	default:
		return &ExitError{Code: exitConnFailed}
	}
}
