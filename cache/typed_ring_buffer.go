package cache

import "context"

// TypedRingBuffer hands out n preallocated values. Get blocks until one is
// returned, which bounds the memory held by all borrowers together.
type TypedRingBuffer[T any] struct {
	buffers []T
	free    chan uint16
}

func NewTypedRingBuffer[T any](n int, alloc func() T) *TypedRingBuffer[T] {

	if n <= 0 || n > 1<<16 {
		panic("ring buffer size must be in 1..65536")
	}

	buffers := make([]T, n)
	for i := range buffers {
		buffers[i] = alloc()
	}

	free := make(chan uint16, n)
	for i := 0; i < n; i++ {
		free <- uint16(i)
	}

	return &TypedRingBuffer[T]{
		buffers: buffers,
		free:    free,
	}
}

// Get waits for a free value or for ctx to be done.
func (p *TypedRingBuffer[T]) Get(ctx context.Context) (T, uint16, error) {
	select {
	case id := <-p.free:
		return p.buffers[id], id, nil
	case <-ctx.Done():
		var zero T
		return zero, 0, ctx.Err()
	}
}

func (p *TypedRingBuffer[T]) Return(id uint16) {
	p.free <- id
}

func (p *TypedRingBuffer[T]) Available() int {
	return len(p.free)
}

func (p *TypedRingBuffer[T]) Size() int {
	return len(p.buffers)
}
