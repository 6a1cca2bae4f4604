package main

import (
	"context"
	"errors"

	"github.com/elee1766/genstudio/src/apiclient"
	"github.com/elee1766/genstudio/src/config"
)

// Exit codes following standard conventions
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error, including partially failed batches
	ExitUsage       = 2 // Invalid input
	ExitConfig      = 3 // Configuration error
	ExitNetwork     = 6 // Server unreachable
	ExitTimeout     = 7 // Timeout error
	ExitInterrupted = 8 // Interrupted by user
	ExitServer      = 9 // Server answered with a 5xx status
)

// configError marks failures loading or saving configuration
type configError struct {
	err error
}

func (e *configError) Error() string { return "configuration: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// exitCode determines the appropriate exit code for an error
func exitCode(err error) int {
	var cfgErr *configError
	var cfgValidation config.ValidationError
	var reqErr *apiclient.RequestError

	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &cfgErr), errors.As(err, &cfgValidation):
		return ExitConfig
	case apiclient.IsValidationError(err):
		return ExitUsage
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	case errors.As(err, &reqErr) && reqErr.IsNetworkError():
		return ExitNetwork
	case errors.As(err, &reqErr) && reqErr.IsServerError():
		return ExitServer
	default:
		return ExitError
	}
}

// displayError prefers the message the server or validator gave over the
// wrapped chain.
func displayError(err error) string {
	var cfgErr *configError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	return apiclient.DisplayMessage(err)
}
