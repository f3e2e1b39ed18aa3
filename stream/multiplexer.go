package stream

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
	"syscall"
)

// Multiplexer reads two streams concurrently into one queue. Order is kept
// within a source; interleaving across sources follows arrival.
type Multiplexer struct {
	queue *Queue
	done  chan struct{}
}

// NewMultiplexer starts one reader goroutine per non-nil source. The queue is
// closed after every source reached end of file.
func NewMultiplexer(stdout, stderr io.Reader) *Multiplexer {
	m := &Multiplexer{
		queue: NewQueue(),
		done:  make(chan struct{}),
	}

	var wg sync.WaitGroup
	for _, src := range []struct {
		r    io.Reader
		name Source
	}{{stdout, Stdout}, {stderr, Stderr}} {
		if src.r == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.readLoop(src.r, src.name)
		}()
	}

	go func() {
		wg.Wait()
		m.queue.Close()
		close(m.done)
	}()
	return m
}

// Queue returns the queue the readers feed.
func (m *Multiplexer) Queue() *Queue {
	return m.queue
}

// Done is closed once both readers have returned.
func (m *Multiplexer) Done() <-chan struct{} {
	return m.done
}

func (m *Multiplexer) readLoop(r io.Reader, src Source) {
	br := bufio.NewReader(r)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			m.queue.Push(Line{Source: src, Text: text})
		}
		if err != nil {
			if !isEndOfStream(err) {
				m.queue.Push(Line{Source: src, Err: &StreamReadError{Source: src, Cause: err}})
			}
			return
		}
	}
}

// isEndOfStream treats a pipe closed by cmd.Wait like EOF.
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, syscall.EIO)
}

// Merge reads stdout and stderr until both end and delivers their lines as
// content chunks followed by exactly one terminal chunk. The terminal chunk is
// an error when a read fails or ctx ends first. Callers must receive until the
// channel is closed.
func Merge(ctx context.Context, stdout, stderr io.Reader) <-chan Chunk {
	out := make(chan Chunk, 16)
	mux := NewMultiplexer(stdout, stderr)

	go func() {
		defer close(out)
		q := mux.Queue()
		for {
			line, err := q.Next(ctx)
			if errors.Is(err, io.EOF) {
				out <- Completed()
				return
			}
			if err != nil {
				out <- Failed(fmt.Errorf("stream cancelled: %w", context.Cause(ctx)))
				return
			}
			if line.Err != nil {
				out <- Failed(line.Err)
				return
			}
			select {
			case out <- Content(line.Source, line.Text):
			case <-ctx.Done():
				out <- Failed(fmt.Errorf("stream cancelled: %w", context.Cause(ctx)))
				return
			}
		}
	}()
	return out
}
