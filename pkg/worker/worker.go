package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/genzj/warpconnect/pkg/log"
)

// DefaultJobTimeout is the per-job deadline applied when a caller's context
// carries no deadline at all (spec §5: "default 5s").
const DefaultJobTimeout = 5 * time.Second

// Job is a synchronous closure that runs on a single pinned OS thread for
// its entire lifetime: enter namespace, operate, restore namespace. No
// suspension is expected inside it.
type Job func() error

type request struct {
	job    Job
	result chan error
}

// Pool is a fixed-size set of OS-thread-pinned workers pulling Jobs off a
// shared channel (spec §5). Size 1 is correct; a larger pool only helps if
// every Job scopes its own namespace entry, which holds for this daemon's
// route-install/remove Jobs.
type Pool struct {
	requests chan request
	wg       sync.WaitGroup
}

// NewPool starts size workers, each pinned to its own OS thread for the
// life of the Pool. size must be >= 1.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{requests: make(chan request)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.runWorker()
	}
	return p
}

func (p *Pool) runWorker() {
	defer p.wg.Done()
	// Locked for the goroutine's entire lifetime and never unlocked: the Go
	// runtime retires this OS thread on exit instead of reusing it for
	// another goroutine, so a namespace entered here can never leak onto
	// unrelated work.
	runtime.LockOSThread()

	logger := log.WithComponent("worker")
	for req := range p.requests {
		req.result <- func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("worker job panicked: %v", r)
					logger.Error().Interface("panic", r).Msg("recovered from job panic")
				}
			}()
			return req.job()
		}()
	}
}

// Submit dispatches job to the next free worker and blocks until it
// completes or ctx is done. If ctx carries no deadline, DefaultJobTimeout is
// applied. On timeout or cancellation Submit returns ctx.Err() immediately;
// the job keeps running on its worker to completion (namespace operations
// are not preemptible mid-flight) and its result is discarded.
func (p *Pool) Submit(ctx context.Context, job Job) error {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultJobTimeout)
		defer cancel()
	}

	req := request{job: job, result: make(chan error, 1)}
	select {
	case p.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting new jobs and waits for in-flight jobs to finish.
// Workers already blocked reading from requests exit once it is closed.
func (p *Pool) Close() {
	close(p.requests)
	p.wg.Wait()
}
