package stream

import (
	"context"
	"io"
	"sync"
)

// Line is one newline-terminated piece of output, or a read failure when Err
// is set. Text keeps its trailing newline; the last line of a stream may lack
// one.
type Line struct {
	Err    error
	Source Source
	Text   string
}

// Queue is an unbounded FIFO of lines with a single consumer. Producers never
// block, so a slow consumer cannot stall the process writing to the pipes.
type Queue struct {
	ready  chan struct{}
	items  []Line
	mu     sync.Mutex
	closed bool
}

// NewQueue returns an empty open queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Push appends l. It reports false if the queue is already closed.
func (q *Queue) Push(l Line) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, l)
	q.mu.Unlock()
	q.signal()
	return true
}

// Close marks the end of input. Lines already queued remain readable.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.signal()
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Len returns the number of queued lines.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// TryPop removes and returns the oldest line without waiting.
func (q *Queue) TryPop() (Line, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return Line{}, false
	}
	l := q.items[0]
	q.items[0] = Line{}
	q.items = q.items[1:]
	return l, true
}

// Ready fires after the queue changed. Consumers re-check with TryPop and
// Closed after each receive.
func (q *Queue) Ready() <-chan struct{} {
	return q.ready
}

// Next waits for the next line. It returns io.EOF once the queue is closed
// and empty, or ctx.Err() if ctx ends first.
func (q *Queue) Next(ctx context.Context) (Line, error) {
	for {
		if l, ok := q.TryPop(); ok {
			return l, nil
		}
		if q.Closed() {
			// A push may have raced with the close.
			if l, ok := q.TryPop(); ok {
				return l, nil
			}
			return Line{}, io.EOF
		}
		select {
		case <-ctx.Done():
			return Line{}, ctx.Err()
		case <-q.ready:
		}
	}
}

// Drain removes and returns everything currently queued.
func (q *Queue) Drain() []Line {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

func (q *Queue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}
