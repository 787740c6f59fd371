package exfetch

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Pool sizing constants.
const (
	// DefaultJobs is the worker count used when none is configured.
	DefaultJobs = 4

	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxAutoPoolSize caps the automatic size; each worker may hold a
	// network connection or a converter process.
	MaxAutoPoolSize = 16
)

// WorkerPool distributes work items across a fixed number of workers.
// Both pipeline stages share one pool; a stage returns only once every
// dispatched item has finished, so the pool is always drained.
type WorkerPool struct {
	size int
}

// NewWorkerPool creates a pool with n workers (at least MinPoolSize).
func NewWorkerPool(n int) *WorkerPool {
	if n < MinPoolSize {
		n = MinPoolSize
	}
	return &WorkerPool{size: n}
}

// Size returns the pool capacity.
func (p *WorkerPool) Size() int {
	return p.size
}

// Task processes item i. The context it receives is never cancelled by an
// interrupt, so an item that has started always runs to completion. A
// non-nil return is fatal for the whole stage.
type Task func(ctx context.Context, i int) error

// Run executes task for every index in [0, n).
//
// Admission of new items stops when ctx is cancelled or when a task
// returns an error; items already started keep running and Run waits for
// them. The first task error is returned as is. If ctx was cancelled,
// the returned error wraps ErrInterrupted. started reports how many items
// began executing.
func (p *WorkerPool) Run(ctx context.Context, n int, task Task) (started int, err error) {
	if n == 0 {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(p.size, n))

	work := context.WithoutCancel(ctx)
	var count atomic.Int64

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// A slot may free up after admission was closed.
			if gctx.Err() != nil {
				return nil
			}
			count.Add(1)
			return task(work, i)
		})
	}

	err = g.Wait()
	started = int(count.Load())

	if err != nil {
		return started, err
	}
	if ctx.Err() != nil {
		return started, fmt.Errorf("%w: %d of %d item(s) started", ErrInterrupted, started, n)
	}
	return started, nil
}

// ResolvePoolSize determines the worker count.
// Priority: explicit jobs > GOMAXPROCS-based calculation.
func ResolvePoolSize(jobs int) int {
	if jobs > 0 {
		return jobs
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	// Work is network and subprocess bound, so oversubscribe.
	n := runtime.GOMAXPROCS(0) * 2

	if n < DefaultJobs {
		return DefaultJobs
	}
	if n > MaxAutoPoolSize {
		return MaxAutoPoolSize
	}
	return n
}
