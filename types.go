package exfetch

import (
	"fmt"
	"time"
)

// Credentials identify a student on the platform.
// They are opaque to this package and sent verbatim at login.
type Credentials struct {
	User string // nome.cognome
	ID   string // matricola
}

// Validate checks that both identifiers are present.
func (c Credentials) Validate() error {
	if c.User == "" || c.ID == "" {
		return ErrMissingCredentials
	}
	return nil
}

// SessionHandle is the server-relative path returned by login.
// It is the base of the listing request and is valid for one run.
type SessionHandle string

// ConversionJob describes a single HTML to PDF conversion.
type ConversionJob struct {
	Input     string
	Output    string
	Converter string
}

// Result holds the outcome of one work item in a stage.
type Result struct {
	Name     string // source filename
	Path     string // local output path
	Err      error
	Duration time.Duration
}

// Summary holds the count of succeeded and failed items.
type Summary struct {
	Succeeded int
	Failed    int
}

// Summarize tallies results.
func Summarize(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

func (s Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d failed", s.Succeeded, s.Failed)
}

// Stage names a pipeline stage for progress reporting.
type Stage string

// Pipeline stages.
const (
	StageFetch   Stage = "fetch"
	StageConvert Stage = "convert"
)

// Observer receives progress notifications. Methods may be called from
// several workers at once.
type Observer interface {
	ItemStarted(stage Stage, name string)
	ItemDone(stage Stage, r Result)
}

// nopObserver discards notifications.
type nopObserver struct{}

func (nopObserver) ItemStarted(Stage, string) {}
func (nopObserver) ItemDone(Stage, Result)    {}
