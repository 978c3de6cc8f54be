package queue

// Option applies a configuration option to the queue.
type Option func(*InMemory)

// WithCapacity sets the maximum number of buffered jobs.
func WithCapacity(capacity int) Option {
	return func(q *InMemory) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
