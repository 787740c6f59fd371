package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	exfetch "github.com/alnah/go-exfetch"
	"github.com/alnah/go-exfetch/internal/archive"
	"github.com/alnah/go-exfetch/internal/config"
	"github.com/alnah/go-exfetch/internal/console"
	"github.com/alnah/go-exfetch/internal/fileutil"
	"github.com/alnah/go-exfetch/internal/hints"
)

// Sentinel errors for CLI operations.
var (
	ErrOutputDir = errors.New("cannot create output directory")
)

// indexTitle heads the run index.
const indexTitle = "DoExercises solutions"

// runner carries the state of one run through its stages.
type runner struct {
	opts  *options
	env   *Environment
	out   console.Printer
	pool  *exfetch.WorkerPool
	runID string

	names   []string // every listed source name
	htmlDir string
	pdfDir  string // "" until the PDF stage created it
}

// runPipeline executes login, listing, fetch, conversion, index and
// archive in order. Fatal errors end the run; an interrupt drains the
// active stage first.
func runPipeline(ctx context.Context, opts *options, env *Environment, out console.Printer) error {
	if err := opts.creds.Validate(); err != nil {
		return err
	}

	r := &runner{
		opts:  opts,
		env:   env,
		out:   out,
		pool:  exfetch.NewWorkerPool(exfetch.ResolvePoolSize(opts.jobs)),
		runID: uuid.NewString(),
	}
	out.Debug("Run %s", r.runID)
	out.Debug("Using %d workers", r.pool.Size())

	if err := r.fetch(ctx); err != nil {
		return err
	}

	var convErr error
	if opts.noPDF {
		out.Debug("PDF conversion disabled")
	} else {
		convErr = r.convert(ctx)
		if errors.Is(convErr, exfetch.ErrInterrupted) {
			return convErr
		}
	}

	if !opts.noIndex {
		r.writeIndex()
	}
	if opts.archive.Enabled() {
		r.mirror(ctx)
	}
	return convErr
}

// fetch logs in, lists the exercises and downloads the missing HTML.
func (r *runner) fetch(ctx context.Context) error {
	client := exfetch.NewClient(
		exfetch.WithHTTPClient(r.env.HTTPClient),
		exfetch.WithBaseURL(r.opts.baseURL),
		exfetch.WithTimeout(r.opts.httpTimeout),
		exfetch.WithTrace(func(label string, body []byte) {
			r.out.Debug("%s response:\n%s", label, body)
		}),
	)

	r.out.Info("Logging in as %s", r.opts.creds.User)
	handle, err := client.Login(ctx, r.opts.creds)
	if err != nil {
		return err
	}
	r.out.Debug("Session path: %s", handle)

	htmlDir, created, err := fileutil.EnsureDir(r.opts.htmlDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if created {
		r.out.Info("Creating output folder %s", htmlDir)
	}
	r.htmlDir = htmlDir

	r.out.Info("Fetching exercise list")
	names, err := client.FetchFilenames(ctx, handle)
	if err != nil {
		return err
	}
	r.names = names
	r.out.Debug("Found %d exercise(s)", len(names))

	if !r.opts.noIndex && exfetch.IndexCollides(names) {
		r.out.Warn("An exercise renders to %s; not writing the run index", exfetch.IndexFile)
		r.opts.noIndex = true
	}

	r.out.Info("Checking existing files")
	todo, err := exfetch.FilterExisting(names, htmlDir, exfetch.HTMLExt, r.opts.force)
	if err != nil {
		return err
	}
	r.out.Debug("Skipping %d file(s)", len(names)-len(todo))

	fetcher := exfetch.NewFetcher(client, r.pool, progress{out: r.out})
	results, err := fetcher.FetchRendered(ctx, todo, htmlDir)
	if err != nil {
		if errors.Is(err, exfetch.ErrInterrupted) {
			r.out.Error("Terminating prematurely")
			r.out.Info("Finished pending downloads")
		}
		return err
	}
	r.out.Success("Finished downloading (%s)", exfetch.Summarize(results))
	return nil
}

// convert turns every listed exercise without a PDF into one.
// A missing converter is returned wrapping ErrExternalTool; the HTML
// already on disk stays.
func (r *runner) convert(ctx context.Context) error {
	engine, closeEngine, err := r.newEngine()
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEngine(); err != nil {
			r.out.Debug("closing PDF engine: %v", err)
		}
	}()

	pdfDir, created, err := fileutil.EnsureDir(r.opts.pdfDir)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOutputDir, err)
	}
	if created {
		r.out.Info("Creating output folder %s", pdfDir)
	}
	r.pdfDir = pdfDir

	todo, err := exfetch.FilterExisting(r.names, pdfDir, exfetch.PDFExt, r.opts.force)
	if err != nil {
		return err
	}
	r.out.Debug("Skipping %d PDF(s)", len(r.names)-len(todo))

	r.out.Info("Converting %d file(s) to PDF", len(todo))
	results, err := engine.Convert(ctx, todo, r.htmlDir, pdfDir)
	if err != nil {
		if errors.Is(err, exfetch.ErrInterrupted) {
			r.out.Error("Terminating prematurely")
			r.out.Info("Finished pending conversions")
		}
		return err
	}

	summary := exfetch.Summarize(results)
	if summary.Failed > 0 {
		r.out.Warn("Finished converting files to PDF (%s)", summary)
		return nil
	}
	r.out.Success("Finished converting files to PDF")
	return nil
}

// newEngine builds the configured PDF engine and its release function.
func (r *runner) newEngine() (exfetch.PDFEngine, func() error, error) {
	obs := progress{out: r.out}

	switch r.opts.engine {
	case config.EngineChrome:
		c := exfetch.NewChromeConverter(r.pool, obs)
		c.Timeout = r.opts.convertTimeout
		r.out.Info("Using headless Chrome. Using %d workers", r.pool.Size())
		return c, c.Close, nil

	case "", config.EngineWkhtmltopdf:
		path, err := exfetch.ResolveConverter(r.opts.converter, r.env.Lookup)
		if err != nil {
			return nil, nil, fmt.Errorf("%s not installed (or not found as %q), skipping PDF conversion: %w",
				exfetch.DefaultConverter, r.opts.converter, err)
		}
		r.out.Debug("Converter: %s", path)

		cmdRunner := r.env.Runner
		if cmdRunner == nil {
			cmdRunner = &exfetch.ExecRunner{Timeout: r.opts.convertTimeout}
		}
		c := exfetch.NewPDFConverter(path, r.pool,
			exfetch.WithRunner(cmdRunner),
			exfetch.WithLookup(r.env.Lookup, r.env.GOOS),
			exfetch.WithPDFObserver(obs),
		)
		if c.Strategy() == exfetch.StrategyParallel {
			r.out.Info("Detected %s. Using %d workers", exfetch.HeadlessHelper, r.pool.Size())
		} else {
			r.out.Debug("Converting one file at a time%s", hints.ForSerialConversion())
		}
		return c, func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("%w: %q", exfetch.ErrUnknownEngine, r.opts.engine)
	}
}

// writeIndex writes index.html into the HTML directory. Failure is a warning.
func (r *runner) writeIndex() {
	idx := exfetch.Index{
		Title:   indexTitle,
		RunID:   r.runID,
		User:    r.opts.creds.User,
		Created: r.env.Now(),
		Command: r.opts.refreshCommand(),
		Entries: exfetch.BuildIndexEntries(r.names, r.htmlDir, r.pdfDir),
	}
	path, err := exfetch.WriteIndex(r.htmlDir, idx)
	if err != nil {
		r.out.Warn("Could not write run index: %v", err)
		return
	}
	r.out.Debug("Wrote %s", path)
}

// mirror uploads the produced files. Failures are warnings.
func (r *runner) mirror(ctx context.Context) {
	m, err := r.env.NewMirror(r.opts.archive)
	if err != nil {
		r.out.Warn("Archive disabled: %v", err)
		return
	}
	if err := m.EnsureBucket(ctx); err != nil {
		r.out.Warn("Archive disabled: %v", err)
		return
	}

	files := r.archiveFiles(m)
	r.out.Info("Mirroring %d file(s) to %s", len(files), r.opts.archive.Bucket)

	var uploaded, skipped int
	for _, o := range m.Upload(ctx, files, r.opts.force) {
		switch {
		case o.Err != nil:
			r.out.Warn("%v", o.Err)
		case o.Skipped:
			skipped++
		default:
			uploaded++
			r.out.Debug("Uploaded %s", o.Key)
		}
	}
	r.out.Success("Mirrored %d file(s), %d already present", uploaded, skipped)
}

// archiveFiles lists the HTML and PDF files present for the listed names.
func (r *runner) archiveFiles(m *archive.Mirror) []archive.File {
	var files []archive.File
	add := func(dir, kind, ext, name string) {
		if dir == "" {
			return
		}
		out, err := exfetch.DerivedName(name, ext)
		if err != nil {
			return
		}
		local := filepath.Join(dir, out)
		if fileutil.FileExists(local) {
			files = append(files, archive.File{Local: local, Key: m.Key(r.opts.creds.User, kind, local)})
		}
	}
	for _, name := range r.names {
		add(r.htmlDir, "html", exfetch.HTMLExt, name)
		add(r.pdfDir, "pdf", exfetch.PDFExt, name)
	}
	return files
}
