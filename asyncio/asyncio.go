// Package asyncio implements an async writer queue: a single producer
// enqueues records into a bounded queue; a single drain goroutine
// synchronously writes them through an underlying sink. Backpressure is
// strict — a full queue blocks the producer — and an error raised on
// the drain goroutine is latched and re-raised on the next producer
// call (Add or Close), preserving at-most-once delivery of the
// exception.
//
// biogo/hts carries no equivalent (its bam.Writer is synchronous
// only); this package is new, grounded in the general Go idiom for
// bounded worker queues — a buffered channel paired with a single
// drain goroutine.
package asyncio

import (
	"sync"

	"github.com/seqarc/gsa/xerrors"
)

// Sink receives items drained from the queue, in submission order.
type Sink[T any] interface {
	Write(T) error
}

// Writer is a bounded single-producer/single-drain queue in front of
// a Sink.
type Writer[T any] struct {
	sink  Sink[T]
	queue chan T
	done  chan struct{}

	mu      sync.Mutex
	err     error
	closed  bool
}

// New starts a Writer draining into sink through a queue of the given
// capacity (at least 1).
func New[T any](sink Sink[T], capacity int) *Writer[T] {
	if capacity < 1 {
		capacity = 1
	}
	w := &Writer[T]{
		sink:  sink,
		queue: make(chan T, capacity),
		done:  make(chan struct{}),
	}
	go w.drain()
	return w
}

func (w *Writer[T]) drain() {
	defer close(w.done)
	for item := range w.queue {
		if err := w.sink.Write(item); err != nil {
			w.mu.Lock()
			if w.err == nil {
				w.err = err
			}
			w.mu.Unlock()
			// Keep draining the queue so the producer's blocked sends
			// (if any) unblock, but stop writing through the sink:
			// subsequent items are dropped once an error has latched.
			for range w.queue {
			}
			return
		}
	}
}

// Add enqueues item, blocking if the queue is full. It returns any
// error latched by the drain goroutine since the last call to Add or
// Close (at-most-once delivery of the error).
func (w *Writer[T]) Add(item T) error {
	if err := w.takeErr(); err != nil {
		return err
	}
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return xerrors.NewUsageError("asyncio: Add called after Close")
	}
	w.queue <- item
	return w.takeErr()
}

// Close stops accepting new items, waits for the queue to drain, and
// returns any latched error.
func (w *Writer[T]) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return w.takeErr()
	}
	w.closed = true
	w.mu.Unlock()
	close(w.queue)
	<-w.done
	return w.takeErr()
}

// takeErr returns and clears the latched drain error, if any.
func (w *Writer[T]) takeErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := w.err
	w.err = nil
	return err
}
