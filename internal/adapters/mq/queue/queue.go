// Package queue holds the bounded in-memory queue feeding projection
// retries to the background workers. Inline projection is the fast path;
// only failures land here.
package queue

import (
	"context"
	"sync"
)

const defaultCapacity = 10000

// Job identifies one entity whose index projection needs (re)doing.
type Job struct {
	EntityID string
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. Returns false when the queue is full or closed.
	Enqueue(ctx context.Context, job Job) bool

	// Dequeue returns the channel workers receive jobs on. The channel is
	// closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops the queue. No new jobs are accepted afterwards.
	Close() error

	// IsClosed reports whether Close has been called.
	IsClosed() bool
}

// InMemory implements Queue using a buffered channel.
type InMemory struct {
	jobs     chan Job
	capacity int
	mu       sync.RWMutex
	closed   bool
}

// NewInMemory creates a bounded queue with configuration options.
func NewInMemory(opts ...Option) *InMemory {
	q := &InMemory{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, q.capacity)
	return q
}

// Enqueue implements Queue.
func (q *InMemory) Enqueue(ctx context.Context, job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	default:
		return false // queue is full
	}
}

// Dequeue implements Queue.
func (q *InMemory) Dequeue(_ context.Context) <-chan Job {
	return q.jobs
}

// Len implements Queue.
func (q *InMemory) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close implements Queue.
func (q *InMemory) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	q.closed = true
	close(q.jobs)
	return nil
}

// IsClosed implements Queue.
func (q *InMemory) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
