// Package dispatcher fans queued jobs out to a fixed pool of workers.
package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/jobs"
)

// Runner drains the job queue until ctx ends.
type Runner interface {
	Run(ctx context.Context)
}

// Dispatcher owns the worker pool and the producer side of the queue.
type Dispatcher struct {
	queue   jobs.Queue
	workers []Runner
	clock   jobs.Clock
}

// New creates a Dispatcher. A nil clock stamps submissions with time.Now.
func New(queue jobs.Queue, workers []Runner, clock jobs.Clock) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		workers: workers,
		clock:   clock,
	}
}

// Run starts all workers and blocks until the context finishes and every
// worker has returned.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(r Runner) {
			defer wg.Done()
			r.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit hands the job to the worker pool without waiting for it to run. It
// never blocks: a full queue is reported as jobs.ErrQueueFull.
func (d *Dispatcher) Submit(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	now := time.Now()
	if d.clock != nil {
		now = d.clock.Now()
	}
	item := jobs.QueueItem{JobID: jobID, Submitted: now.UnixMilli()}
	if err := d.queue.TryEnqueue(item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
