package queue

// Option configures a Memory queue.
type Option func(*Memory)

// WithCapacity sets how many events may wait for delivery.
func WithCapacity(capacity int) Option {
	return func(q *Memory) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
