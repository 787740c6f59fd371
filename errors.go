package exfetch

import "errors"

// Sentinel errors for pipeline operations.
var (
	// ErrTransport means a request to the platform could not be completed
	// (DNS, refused connection, timeout). Always fatal.
	ErrTransport = errors.New("request to platform failed")

	// ErrProtocol means a response did not have the expected textual shape.
	// Always fatal.
	ErrProtocol = errors.New("unexpected platform response")

	// ErrExternalTool means the PDF converter executable could not be found.
	// Fatal for the conversion stage only.
	ErrExternalTool = errors.New("converter executable not found")

	ErrMissingCredentials = errors.New("username and matricola are required")
	ErrAmbiguousName      = errors.New("filename must contain exactly one source extension")
	ErrConversionFailed   = errors.New("PDF conversion failed")
	ErrInterrupted        = errors.New("interrupted")
	ErrUnknownEngine      = errors.New("unknown PDF engine")

	// Chrome engine errors.
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageLoad       = errors.New("failed to load page")
)
