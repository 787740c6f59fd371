package main

import (
	"errors"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/config"
)

// Exit codes for the exfetch CLI.
// Follows Unix conventions: 0=success, 1=failure, 2=usage.
const (
	ExitSuccess = 0 // Run completed (including --nopdf)
	ExitFailure = 1 // Missing credentials, interrupt, missing converter, platform errors
	ExitUsage   = 2 // Invalid flags or config
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var ue *usageError
	if errors.As(err, &ue) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, exfetch.ErrUnknownEngine) {
		return ExitUsage
	}

	return ExitFailure
}
