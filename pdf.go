package exfetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/alnah/go-exfetch/internal/fileutil"
	"github.com/alnah/go-exfetch/internal/which"
)

// Conversion constants.
const (
	// DefaultConverter is the wkhtmltopdf executable name.
	DefaultConverter = "wkhtmltopdf"

	// HeadlessHelper provisions a virtual X display per invocation.
	HeadlessHelper = "xvfb-run"

	// SettleDelay lets client-side scripts (MathJax, widgets) finish
	// before the page is captured.
	SettleDelay = 4000 * time.Millisecond

	// ScreenGeometry is the virtual display size used by HeadlessHelper.
	ScreenGeometry = "1920x1080x24"

	// maxStderrInError keeps converter diagnostics readable.
	maxStderrInError = 300
)

// PDFEngine converts rendered HTML files to PDF.
type PDFEngine interface {
	Convert(ctx context.Context, names []string, htmlDir, pdfDir string) ([]Result, error)
}

// Compile-time interface implementation checks.
var (
	_ PDFEngine = (*PDFConverter)(nil)
	_ PDFEngine = (*ChromeConverter)(nil)
)

// Strategy selects how conversion jobs are scheduled.
type Strategy int

// Scheduling strategies.
const (
	// StrategySerial runs one converter process at a time on the calling goroutine.
	StrategySerial Strategy = iota

	// StrategyParallel wraps each converter run in HeadlessHelper and
	// dispatches jobs across the worker pool.
	StrategyParallel
)

func (s Strategy) String() string {
	switch s {
	case StrategyParallel:
		return "parallel"
	default:
		return "serial"
	}
}

// LookupFunc resolves an executable name to a path.
type LookupFunc func(name string) (string, error)

// SelectStrategy returns StrategyParallel and the helper path when
// HeadlessHelper can be found and goos is POSIX-like; StrategySerial otherwise.
func SelectStrategy(lookup LookupFunc, goos string) (Strategy, string) {
	if !isPOSIX(goos) {
		return StrategySerial, ""
	}
	helper, err := lookup(HeadlessHelper)
	if err != nil || helper == "" {
		return StrategySerial, ""
	}
	return StrategyParallel, helper
}

// isPOSIX reports whether goos can run an X virtual framebuffer.
// darwin is excluded: xvfb-run is not shipped there.
func isPOSIX(goos string) bool {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return true
	}
	return false
}

// PDFConverter runs an external wkhtmltopdf-compatible executable.
type PDFConverter struct {
	converter string
	runner    CommandRunner
	pool      *WorkerPool
	observer  Observer
	strategy  Strategy
	helper    string
	lookup    LookupFunc
	goos      string
	forced    bool
}

// PDFOption configures a PDFConverter.
type PDFOption func(*PDFConverter)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) PDFOption {
	return func(c *PDFConverter) {
		if r != nil {
			c.runner = r
		}
	}
}

// WithStrategy bypasses discovery and forces a strategy.
// helper is the HeadlessHelper path used by StrategyParallel.
func WithStrategy(s Strategy, helper string) PDFOption {
	return func(c *PDFConverter) {
		c.strategy = s
		c.helper = helper
		c.forced = true
	}
}

// WithLookup replaces executable discovery and the platform name used
// for strategy selection.
func WithLookup(lookup LookupFunc, goos string) PDFOption {
	return func(c *PDFConverter) {
		c.lookup = lookup
		c.goos = goos
	}
}

// WithPDFObserver registers a progress observer.
func WithPDFObserver(o Observer) PDFOption {
	return func(c *PDFConverter) {
		if o != nil {
			c.observer = o
		}
	}
}

// NewPDFConverter creates a converter for the executable at converterPath.
// The strategy is selected once, here.
func NewPDFConverter(converterPath string, pool *WorkerPool, opts ...PDFOption) *PDFConverter {
	c := &PDFConverter{
		converter: converterPath,
		runner:    &ExecRunner{},
		pool:      pool,
		observer:  nopObserver{},
		lookup:    which.Look,
		goos:      runtime.GOOS,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !c.forced {
		c.strategy, c.helper = SelectStrategy(c.lookup, c.goos)
	}
	return c
}

// ResolveConverter locates the converter executable.
// The error wraps ErrExternalTool.
func ResolveConverter(nameOrPath string, lookup LookupFunc) (string, error) {
	if nameOrPath == "" {
		nameOrPath = DefaultConverter
	}
	path, err := lookup(nameOrPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalTool, err)
	}
	return path, nil
}

// Strategy returns the selected scheduling strategy.
func (c *PDFConverter) Strategy() Strategy {
	return c.strategy
}

// Job builds the conversion job for a source name.
func (c *PDFConverter) Job(name, htmlDir, pdfDir string) (ConversionJob, error) {
	in, err := DerivedName(name, HTMLExt)
	if err != nil {
		return ConversionJob{}, err
	}
	out, err := DerivedName(name, PDFExt)
	if err != nil {
		return ConversionJob{}, err
	}
	return ConversionJob{
		Input:     filepath.Join(htmlDir, in),
		Output:    filepath.Join(pdfDir, out),
		Converter: c.converter,
	}, nil
}

// Command returns the executable and arguments that convert job into output.
func (c *PDFConverter) Command(job ConversionJob, output string) (string, []string) {
	delay := strconv.FormatInt(SettleDelay.Milliseconds(), 10)

	if c.strategy == StrategyParallel {
		return c.helper, []string{
			"--auto-servernum",
			"--server-args=-screen 0, " + ScreenGeometry,
			job.Converter,
			"--use-xserver",
			"--javascript-delay", delay,
			job.Input,
			output,
		}
	}
	return job.Converter, []string{
		"--javascript-delay", delay,
		job.Input,
		output,
	}
}

// Convert produces one PDF per name in pdfDir from the HTML in htmlDir.
//
// A failing converter run is not fatal: it is reported in the item's
// Result and the remaining jobs continue. On ctx cancellation no new job
// starts, running jobs finish, and the error wraps ErrInterrupted.
func (c *PDFConverter) Convert(ctx context.Context, names []string, htmlDir, pdfDir string) ([]Result, error) {
	results := make([]Result, len(names))
	for i, name := range names {
		results[i] = Result{Name: name, Err: ErrInterrupted}
	}

	if c.strategy == StrategyParallel {
		_, err := c.pool.Run(ctx, len(names), func(ctx context.Context, i int) error {
			results[i] = c.convertOne(ctx, names[i], htmlDir, pdfDir)
			return nil
		})
		return results, err
	}

	work := context.WithoutCancel(ctx)
	for i, name := range names {
		if ctx.Err() != nil {
			return results, fmt.Errorf("%w: %d of %d conversion(s) started", ErrInterrupted, i, len(names))
		}
		results[i] = c.convertOne(work, name, htmlDir, pdfDir)
	}
	return results, nil
}

// convertOne runs the converter for a single name. Output goes to a
// temporary sibling renamed into place when the converter produced a
// non-empty file; a run killed by timeout never leaves a PDF behind.
func (c *PDFConverter) convertOne(ctx context.Context, name, htmlDir, pdfDir string) Result {
	start := time.Now()
	result := Result{Name: name}

	job, err := c.Job(name, htmlDir, pdfDir)
	if err != nil {
		result.Err = err
		return result
	}
	result.Path = job.Output
	c.observer.ItemStarted(StageConvert, filepath.Base(job.Output))

	tmp := partialOutput(job.Output)
	bin, args := c.Command(job, tmp)
	_, stderr, runErr := c.runner.Run(ctx, bin, args...)

	produced := fileutil.FileExists(tmp) && nonEmpty(tmp)
	timedOut := errors.Is(runErr, context.DeadlineExceeded)

	switch {
	case produced && !timedOut:
		if err := os.Rename(tmp, job.Output); err != nil {
			result.Err = fmt.Errorf("%w: %s: %v", ErrConversionFailed, name, err)
		} else if runErr != nil {
			result.Err = fmt.Errorf("%w: %s: %v (output kept)%s", ErrConversionFailed, name, runErr, stderrDetail(stderr))
		}
	default:
		_ = os.Remove(tmp)
		if runErr == nil {
			runErr = errors.New("converter produced no output")
		}
		result.Err = fmt.Errorf("%w: %s: %v%s", ErrConversionFailed, name, runErr, stderrDetail(stderr))
	}

	result.Duration = time.Since(start)
	c.observer.ItemDone(StageConvert, result)
	return result
}

// partialOutput names the in-progress file for a PDF. The .pdf suffix is
// kept so converters that infer the format from the name still work.
func partialOutput(output string) string {
	dir, base := filepath.Split(output)
	return filepath.Join(dir, "."+strings.TrimSuffix(base, PDFExt)+".part"+PDFExt)
}

func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

func stderrDetail(stderr string) string {
	stderr = strings.TrimSpace(stderr)
	if stderr == "" {
		return ""
	}
	if len(stderr) > maxStderrInError {
		stderr = "..." + stderr[len(stderr)-maxStderrInError:]
	}
	return ": " + stderr
}
