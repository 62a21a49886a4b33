package asyncio

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	received []int
	failAt   int // fail when this item value is written, 0 disables.
}

func (s *recordingSink) Write(item int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt != 0 && item == s.failAt {
		return assert.AnError
	}
	s.received = append(s.received, item)
	return nil
}

func (s *recordingSink) snapshot() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.received...)
}

func TestWriterDeliversItemsInOrder(t *testing.T) {
	sink := &recordingSink{}
	w := New[int](sink, 4)

	for i := 0; i < 10; i++ {
		require.NoError(t, w.Add(i))
	}
	require.NoError(t, w.Close())

	got := sink.snapshot()
	want := make([]int, 10)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestWriterLatchesDrainErrorOnNextCall(t *testing.T) {
	sink := &recordingSink{failAt: 3}
	w := New[int](sink, 1)

	var sawErr error
	for i := 0; i < 10 && sawErr == nil; i++ {
		sawErr = w.Add(i)
	}
	require.Error(t, sawErr)
	assert.ErrorIs(t, sawErr, assert.AnError)

	closeErr := w.Close()
	assert.NoError(t, closeErr)
}

func TestWriterRejectsAddAfterClose(t *testing.T) {
	sink := &recordingSink{}
	w := New[int](sink, 2)
	require.NoError(t, w.Add(1))
	require.NoError(t, w.Close())

	err := w.Add(2)
	assert.Error(t, err)
}

func TestWriterCloseIsIdempotent(t *testing.T) {
	sink := &recordingSink{}
	w := New[int](sink, 2)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestWriterBlocksProducerWhenQueueFull(t *testing.T) {
	release := make(chan struct{})
	blocking := &blockingSink{release: release}
	w := New[int](blocking, 1)

	require.NoError(t, w.Add(1)) // consumed immediately by the drain goroutine, which then blocks.
	// The drain goroutine is now blocked inside Write(1); the channel
	// buffer (capacity 1) can hold exactly one more item before Add blocks.
	require.NoError(t, w.Add(2))

	done := make(chan error, 1)
	go func() { done <- w.Add(3) }()

	select {
	case <-done:
		t.Fatal("Add(3) should have blocked while the queue is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-done)
	require.NoError(t, w.Close())
}

type blockingSink struct {
	release chan struct{}
	once    sync.Once
}

func (s *blockingSink) Write(item int) error {
	s.once.Do(func() { <-s.release })
	return nil
}
