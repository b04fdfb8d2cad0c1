// Package workerpool fans reads out across goroutines within one phase
// and joins at the phase boundary, grounded on the token-channel +
// sync.WaitGroup pattern in lexicmap/cmd/map.go's map command.
package workerpool

import (
	"sync"
	"sync/atomic"

	"github.com/bioforge/fmap/readsrc"
)

// Work is invoked once per read, by whichever worker goroutine dequeued
// it. workerID identifies the calling worker (0..nthreads-1) so callers
// can index into a per-worker slice of reusable state (a Backtracker,
// in the Phase Orchestrator's case) without locking. A non-nil error
// (e.g. the completion bitmap hitting its capacity cap) aborts the
// phase: Run stops dequeuing new reads and returns the first error seen.
type Work func(workerID int, r readsrc.Read) error

// Run drains src across up to nthreads concurrently-running goroutines,
// calling fn for each read, and returns once every read has been
// processed and joined, or fn reports a fatal error. Read fetch from
// src is the only serialization point; per-read work runs independently
// of the others.
//
// nthreads < 1 is treated as 1; a single worker degenerates to a plain
// sequential loop, matching spec.md §5's "a worker count of 1 degenerates
// to single-threaded."
func Run(src readsrc.Source, nthreads int, fn Work) error {
	if nthreads < 1 {
		nthreads = 1
	}

	if nthreads == 1 {
		for {
			r, ok := src.Next()
			if !ok {
				break
			}
			if err := fn(0, r); err != nil {
				return err
			}
		}
		return src.Err()
	}

	var wg sync.WaitGroup
	tokens := make(chan int, nthreads)
	errOnce := sync.Once{}
	var firstErr error
	var stop atomic.Bool

	for w := 0; w < nthreads; w++ {
		tokens <- w
	}

	for !stop.Load() {
		r, ok := src.Next()
		if !ok {
			break
		}
		workerID := <-tokens
		wg.Add(1)
		go func(workerID int, r readsrc.Read) {
			defer func() {
				tokens <- workerID
				wg.Done()
			}()
			if err := fn(workerID, r); err != nil {
				errOnce.Do(func() { firstErr = err })
				stop.Store(true)
			}
		}(workerID, r)
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}
	if err := src.Err(); err != nil {
		errOnce.Do(func() { firstErr = err })
	}
	return firstErr
}
