package exfetch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-exfetch/internal/fileutil"
	"github.com/alnah/go-exfetch/internal/process"
)

// PDF page dimensions in inches (A4), used by the Chrome engine.
const (
	paperWidthInches  = 8.27
	paperHeightInches = 11.69
	marginInches      = 0.4
	pageLoadTimeout   = 60 * time.Second
)

// pageRenderer renders a local HTML file to a PDF file.
type pageRenderer interface {
	RenderFile(ctx context.Context, input, output string) error
	Close() error
}

// Compile-time interface check.
var _ pageRenderer = (*rodRenderer)(nil)

// rodRenderer implements pageRenderer using go-rod.
// One browser is shared; each render opens its own page, so concurrent
// renders are safe.
type rodRenderer struct {
	mu       sync.Mutex
	browser  *rod.Browser
	launcher *launcher.Launcher
	settle   time.Duration
}

// ensureBrowser lazily launches and connects to the browser.
func (r *rodRenderer) ensureBrowser() (*rod.Browser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser != nil {
		return r.browser, nil
	}

	l := launcher.New()

	// Use pre-installed browser if specified (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = browser
	r.launcher = l
	return browser, nil
}

// RenderFile loads input from disk, waits for the settle delay and prints
// the page to output.
func (r *rodRenderer) RenderFile(ctx context.Context, input, output string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	browser, err := r.ensureBrowser()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(input)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", input, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + filepath.ToSlash(abs)})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}
	defer page.Close()

	if err := page.Context(ctx).Timeout(pageLoadTimeout).WaitLoad(); err != nil {
		return fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(r.settle):
	}

	reader, err := page.Context(ctx).PDF(&proto.PagePrintToPDF{
		PaperWidth:      floatPtr(paperWidthInches),
		PaperHeight:     floatPtr(paperHeightInches),
		MarginTop:       floatPtr(marginInches),
		MarginBottom:    floatPtr(marginInches),
		MarginLeft:      floatPtr(marginInches),
		MarginRight:     floatPtr(marginInches),
		PrintBackground: true,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}

	if _, err := fileutil.WriteAtomic(output, reader); err != nil {
		return fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	return nil
}

// Close releases browser resources and kills the browser process tree.
func (r *rodRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browser == nil {
		return nil
	}
	err := r.browser.Close()
	if r.launcher != nil {
		process.KillProcessGroup(r.launcher.PID())
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
	r.browser = nil
	r.launcher = nil
	return err
}

// floatPtr returns a pointer to a float64 value.
func floatPtr(v float64) *float64 {
	return &v
}

// ChromeConverter converts HTML to PDF with headless Chrome via go-rod.
// It needs no display server, so jobs always run on the pool.
type ChromeConverter struct {
	// Timeout bounds one render. Zero leaves only the page load limit.
	Timeout time.Duration

	renderer pageRenderer
	pool     *WorkerPool
	observer Observer
}

// NewChromeConverter creates a ChromeConverter. The browser is launched on
// first use; call Close when done.
func NewChromeConverter(pool *WorkerPool, observer Observer) *ChromeConverter {
	return newChromeConverterWith(&rodRenderer{settle: SettleDelay}, pool, observer)
}

// newChromeConverterWith creates a ChromeConverter with a custom renderer (for testing).
func newChromeConverterWith(r pageRenderer, pool *WorkerPool, observer Observer) *ChromeConverter {
	if observer == nil {
		observer = nopObserver{}
	}
	return &ChromeConverter{renderer: r, pool: pool, observer: observer}
}

// Convert produces one PDF per name. Failures are reported per item.
func (c *ChromeConverter) Convert(ctx context.Context, names []string, htmlDir, pdfDir string) ([]Result, error) {
	results := make([]Result, len(names))
	for i, name := range names {
		results[i] = Result{Name: name, Err: ErrInterrupted}
	}

	_, err := c.pool.Run(ctx, len(names), func(ctx context.Context, i int) error {
		results[i] = c.convertOne(ctx, names[i], htmlDir, pdfDir)
		return nil
	})
	return results, err
}

func (c *ChromeConverter) convertOne(ctx context.Context, name, htmlDir, pdfDir string) Result {
	start := time.Now()
	result := Result{Name: name}

	in, err := DerivedName(name, HTMLExt)
	if err != nil {
		result.Err = err
		return result
	}
	out, _ := DerivedName(name, PDFExt)
	result.Path = filepath.Join(pdfDir, out)
	c.observer.ItemStarted(StageConvert, out)

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	if err := c.renderer.RenderFile(ctx, filepath.Join(htmlDir, in), result.Path); err != nil {
		result.Err = fmt.Errorf("%s: %w", name, err)
	}

	result.Duration = time.Since(start)
	c.observer.ItemDone(StageConvert, result)
	return result
}

// Close shuts the browser down.
func (c *ChromeConverter) Close() error {
	return c.renderer.Close()
}
