package main

import (
	"io"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/go-rod/rod/lib/launcher"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/archive"
	"github.com/alnah/go-exfetch/internal/which"
)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Now     func() time.Time
	Stdout  io.Writer
	Stderr  io.Writer
	Getenv  func(string) string
	Environ func() []string

	// GOOS drives PDF strategy selection.
	GOOS string

	// Lookup finds executables (wkhtmltopdf, xvfb-run).
	Lookup exfetch.LookupFunc

	// LookChrome finds the browser used by the chrome engine.
	LookChrome func() (string, bool)

	// Runner executes the converter. Nil uses an ExecRunner with the
	// configured timeout.
	Runner exfetch.CommandRunner

	// HTTPClient replaces the platform client transport when set.
	HTTPClient *http.Client

	// NewMirror connects the archive mirror.
	NewMirror func(cfg archive.Config) (*archive.Mirror, error)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Now:        time.Now,
		Stdout:     os.Stdout,
		Stderr:     os.Stderr,
		Getenv:     os.Getenv,
		Environ:    os.Environ,
		GOOS:       runtime.GOOS,
		Lookup:     which.Look,
		LookChrome: launcher.LookPath,
		NewMirror:  archive.New,
	}
}
