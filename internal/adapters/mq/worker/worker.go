// Package worker runs the background pool that drains the projection queue
// and re-attempts failed index writes.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"

	"github.com/vinatravel/discovery/internal/adapters/mq/queue"
	"github.com/vinatravel/discovery/pkg/logger"
)

// Projector re-projects one entity into the vector index.
type Projector interface {
	Project(ctx context.Context, entityID string) error
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker drains jobs until stopped.
type Worker struct {
	queue     Queue
	projector Projector
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(q Queue, projector Projector, opts ...Option) *Worker {
	w := &Worker{
		queue:     q,
		projector: projector,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = logger.Get().Named(w.name)
	return w
}

// Run starts the worker loop until ctx is canceled, the queue closes, or
// Shutdown is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			if err := w.projector.Project(ctx, job.EntityID); err != nil {
				w.logger.Error(ctx, "projection retry failed",
					logger.String("entity_id", job.EntityID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker, waiting for the in-flight job to finish.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("worker shutdown: %w", ctx.Err())
	}
}

// Pool runs a fixed set of workers over a shared queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

// NewPool creates count workers; a non-positive count defaults to the number
// of CPUs.
func NewPool(q Queue, projector Projector, count int) *Pool {
	if count <= 0 {
		count = runtime.NumCPU()
	}
	p := &Pool{workers: make([]*Worker, 0, count)}
	for i := 0; i < count; i++ {
		p.workers = append(p.workers, New(q, projector, WithName("worker-"+strconv.Itoa(i))))
	}
	return p
}

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	p.started = true
	p.mu.Unlock()
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Shutdown stops all workers and waits for them to finish. Calling it on a
// pool that never started is a no-op.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return nil
	}

	var firstErr error
	for _, w := range p.workers {
		if err := w.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.wg.Wait()
	return firstErr
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}
