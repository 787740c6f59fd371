package main

import (
	"io"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/alnah/go-exfetch/internal/config"
)

// runFlags holds all flags for the run command.
type runFlags struct {
	username  string
	matricola string
	force     bool
	htmlOut   string
	pdfOut    string
	wk        string
	noPDF     bool
	verbose   bool
	jobs      int
	config    string
	engine    string
	timeout   time.Duration
	noIndex   bool
	baseURL   string
	noColor   bool

	// changed reports whether a flag was given on the command line.
	changed func(name string) bool
}

// parseRunFlags parses run command flags. Positional arguments are rejected.
func parseRunFlags(args []string, stderr io.Writer) (*runFlags, error) {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	f := &runFlags{}

	// Identity
	fs.StringVarP(&f.username, "username", "u", "", "DoExercises username (nome.cognome)")
	fs.StringVarP(&f.matricola, "matricola", "m", "", "student number")

	// Output
	fs.StringVarP(&f.htmlOut, "htmlout", "o", config.DefaultHTMLDir, "HTML output directory")
	fs.StringVarP(&f.pdfOut, "pdfout", "p", config.DefaultPDFDir, "PDF output directory")
	fs.BoolVarP(&f.force, "force", "f", false, "download and convert again even if files exist")
	fs.BoolVar(&f.noIndex, "no-index", false, "do not write index.html")

	// Conversion
	fs.StringVar(&f.wk, "wk", config.DefaultConverter, "wkhtmltopdf executable name or path")
	fs.BoolVar(&f.noPDF, "nopdf", false, "skip PDF conversion")
	fs.StringVar(&f.engine, "engine", config.EngineWkhtmltopdf, "PDF engine: wkhtmltopdf or chrome")
	fs.DurationVar(&f.timeout, "timeout", 0, "per-file conversion timeout (e.g. 90s, 2m)")
	fs.IntVarP(&f.jobs, "jobs", "j", config.DefaultJobs, "parallel workers (0 = auto)")

	// Platform
	fs.StringVar(&f.baseURL, "base-url", config.DefaultBaseURL, "platform address")

	// Common
	fs.StringVarP(&f.config, "config", "c", "", "config file name or path")
	fs.BoolVarP(&f.verbose, "verbose", "v", false, "print server responses and timing")
	fs.BoolVar(&f.noColor, "no-color", false, "disable colored output")

	fs.Usage = func() { printRunUsage(stderr) }

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, &usageError{msg: "unexpected argument: " + fs.Arg(0)}
	}

	f.changed = fs.Changed
	return f, nil
}

// mergeFlags merges explicitly set CLI flags into config. CLI values
// override config and environment values; unset flags leave cfg alone.
func mergeFlags(f *runFlags, cfg *config.Config) {
	if f.changed("username") {
		cfg.Credentials.Username = f.username
	}
	if f.changed("matricola") {
		cfg.Credentials.Matricola = f.matricola
	}
	if f.changed("htmlout") {
		cfg.Output.HTMLDir = f.htmlOut
	}
	if f.changed("pdfout") {
		cfg.Output.PDFDir = f.pdfOut
	}
	if f.changed("no-index") {
		cfg.Output.NoIndex = f.noIndex
	}
	if f.changed("wk") {
		cfg.Convert.Converter = f.wk
	}
	if f.changed("nopdf") {
		cfg.Convert.Disabled = f.noPDF
	}
	if f.changed("engine") {
		cfg.Convert.Engine = f.engine
	}
	if f.changed("timeout") {
		cfg.Convert.Timeout = f.timeout.String()
	}
	if f.changed("jobs") {
		cfg.Convert.Jobs = f.jobs
	}
	if f.changed("base-url") {
		cfg.Server.BaseURL = f.baseURL
	}
}

// usageError reports an invalid command line.
type usageError struct {
	msg string
}

func (e *usageError) Error() string {
	return e.msg
}
