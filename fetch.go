package exfetch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"
)

// RenderDownloader is the part of Client used by the fetch stage.
type RenderDownloader interface {
	Render(ctx context.Context, name, outputName string) (string, error)
	Download(ctx context.Context, remotePath, localPath string) (int64, error)
}

// Compile-time interface implementation check.
var _ RenderDownloader = (*Client)(nil)

// Fetcher renders source documents on the platform and downloads the
// resulting HTML into a local directory.
type Fetcher struct {
	client   RenderDownloader
	pool     *WorkerPool
	observer Observer
}

// NewFetcher creates a Fetcher. A nil observer discards progress.
func NewFetcher(client RenderDownloader, pool *WorkerPool, observer Observer) *Fetcher {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Fetcher{client: client, pool: pool, observer: observer}
}

// FetchRendered fetches one HTML file per name into dir, on the pool.
//
// Transport and protocol failures are fatal: no new item is admitted,
// items already running finish, and the first failure is returned.
// On ctx cancellation the same drain happens and the error wraps
// ErrInterrupted. Results are indexed like names; items that never
// started carry ErrInterrupted.
func (f *Fetcher) FetchRendered(ctx context.Context, names []string, dir string) ([]Result, error) {
	results := make([]Result, len(names))
	for i, name := range names {
		results[i] = Result{Name: name, Err: ErrInterrupted}
	}

	_, err := f.pool.Run(ctx, len(names), func(ctx context.Context, i int) error {
		results[i] = f.fetchOne(ctx, names[i], dir)
		return results[i].Err
	})
	return results, err
}

// fetchOne runs the render, parse, download sequence for a single name.
func (f *Fetcher) fetchOne(ctx context.Context, name, dir string) Result {
	start := time.Now()
	result := Result{Name: name}

	outName, err := DerivedName(name, HTMLExt)
	if err != nil {
		result.Err = err
		return result
	}
	result.Path = filepath.Join(dir, outName)
	f.observer.ItemStarted(StageFetch, outName)

	remote, err := f.client.Render(ctx, name, outName)
	if err != nil {
		result.Err = fmt.Errorf("rendering %s: %w", name, err)
		result.Duration = time.Since(start)
		f.observer.ItemDone(StageFetch, result)
		return result
	}

	if _, err := f.client.Download(ctx, remote, result.Path); err != nil {
		result.Err = fmt.Errorf("fetching %s: %w", outName, err)
	}
	result.Duration = time.Since(start)
	f.observer.ItemDone(StageFetch, result)
	return result
}
