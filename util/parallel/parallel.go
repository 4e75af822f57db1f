// Package parallel fans independent iterations out to a bounded number of
// workers. Results are meant to be collected in per-worker slots (indexed
// by the worker number passed to the callback) and merged afterwards, so
// no lock is needed inside the hot loop.
package parallel

import (
	"context"
	"runtime"
	"sync"

	"github.com/klauspost/cpuid/v2"
)

// DefaultWorkers is the number of logical cores, but at least one.
func DefaultWorkers() int {
	if cores := cpuid.CPU.LogicalCores; cores > 0 {
		return cores
	}

	if cores := runtime.NumCPU(); cores > 0 {
		return cores
	}

	return 1
}

// Workers resolves a configured worker count; zero or less means DefaultWorkers.
func Workers(n int) int {
	if n <= 0 {
		return DefaultWorkers()
	}

	return n
}

// ForEach calls `fn` for every index in [0, n). With more than one worker
// the indices are handed out in ascending order, but may finish in any
// order. The first error returned by `fn` stops the remaining iterations
// and is returned. Cancellation of `ctx` is checked between iterations.
func ForEach(ctx context.Context, n, workers int, fn func(worker, idx int) error) error {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}

	if workers <= 1 {
		for idx := 0; idx < n; idx++ {
			if err := ctx.Err(); err != nil {
				return err
			}

			if err := fn(0, idx); err != nil {
				return err
			}
		}

		return ctx.Err()
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	indices := make(chan int)
	errs := make(chan error, workers)
	wg := &sync.WaitGroup{}

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()

			for idx := range indices {
				if err := fn(worker, idx); err != nil {
					errs <- err
					cancel()
					return
				}
			}
		}(worker)
	}

feed:
	for idx := 0; idx < n; idx++ {
		select {
		case indices <- idx:
		case <-workCtx.Done():
			break feed
		}
	}

	close(indices)
	wg.Wait()
	close(errs)

	if err, ok := <-errs; ok {
		return err
	}

	return ctx.Err()
}

// Split divides [0, n) into `workers` contiguous chunks and calls `fn`
// once per chunk. The chunk number doubles as worker slot.
func Split(ctx context.Context, n, workers int, fn func(worker, lo, hi int) error) error {
	workers = Workers(workers)
	if workers > n {
		workers = n
	}

	if workers < 1 {
		return ctx.Err()
	}

	chunk := (n + workers - 1) / workers
	return ForEach(ctx, workers, workers, func(_, idx int) error {
		lo := idx * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}

		if lo >= hi {
			return nil
		}

		return fn(idx, lo, hi)
	})
}
