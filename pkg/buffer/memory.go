package buffer

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/irctrakz/pcapbuf/pkg/core"
)

// fifo is the byte queue shared by the ends of a pipe.
type fifo struct {
	mu      sync.Mutex
	pending []byte
	closed  bool
	changed chan struct{}
}

func newFIFO() *fifo {
	return &fifo{changed: make(chan struct{})}
}

// notify wakes blocked readers. Must hold mu.
func (f *fifo) notify() {
	close(f.changed)
	f.changed = make(chan struct{})
}

func (f *fifo) push(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	f.pending = append(f.pending, p...)
	f.notify()
	return nil
}

// pop fills dst once enough bytes are queued, or with whatever is left once
// the queue is closed.
func (f *fifo) pop(ctx context.Context, dst []byte) (int, error) {
	for {
		f.mu.Lock()
		if len(f.pending) >= len(dst) || f.closed {
			n := copy(dst, f.pending)
			f.pending = f.pending[n:]
			if len(f.pending) == 0 {
				f.pending = nil
			}
			f.mu.Unlock()
			return n, nil
		}
		wait := f.changed
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-wait:
		}
	}
}

func (f *fifo) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		f.notify()
	}
}

// MemoryBuffer is a core.Buffer over an in-memory byte queue. Reads block
// until the requested count is queued, the queue is closed, or the context
// is done.
type MemoryBuffer struct {
	q          *fifo
	data       []byte
	size       int
	writeLimit int64
	metrics    core.BufferMetrics
}

// NewMemoryBuffer creates a loopback buffer: bytes written to it are read
// back from it.
func NewMemoryBuffer(capacity int) *MemoryBuffer {
	return newMemoryBuffer(newFIFO(), capacity)
}

// NewPipe creates two buffers sharing one queue, so a producer and a
// consumer can each drive their own end.
func NewPipe(capacity int) (reader, writer *MemoryBuffer) {
	q := newFIFO()
	return newMemoryBuffer(q, capacity), newMemoryBuffer(q, capacity)
}

func newMemoryBuffer(q *fifo, capacity int) *MemoryBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &MemoryBuffer{q: q, data: make([]byte, capacity), writeLimit: -1}
}

// Read implements core.Buffer.
func (b *MemoryBuffer) Read(ctx context.Context, n int) (int, error) {
	b.size = 0
	atomic.AddUint64(&b.metrics.Reads, 1)
	want := n
	if n > len(b.data) {
		n = len(b.data)
	}
	if n < 0 {
		n = 0
	}

	got, err := b.q.pop(ctx, b.data[:n])
	b.size = got
	atomic.AddUint64(&b.metrics.BytesRead, uint64(got))
	if got < want {
		atomic.AddUint64(&b.metrics.ShortReads, 1)
	}
	return got, err
}

// Write implements core.Buffer. At most the write limit is accepted.
func (b *MemoryBuffer) Write(ctx context.Context, n int) (int, error) {
	b.size = 0
	atomic.AddUint64(&b.metrics.Writes, 1)
	if n > len(b.data) {
		atomic.AddUint64(&b.metrics.ShortWrites, 1)
		return 0, fmt.Errorf("%w: %d > %d", ErrCapacity, n, len(b.data))
	}
	if n <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	accept := n
	if limit := atomic.LoadInt64(&b.writeLimit); limit >= 0 && int64(accept) > limit {
		accept = int(limit)
	}
	if err := b.q.push(b.data[:accept]); err != nil {
		atomic.AddUint64(&b.metrics.ShortWrites, 1)
		return 0, err
	}
	b.size = accept
	atomic.AddUint64(&b.metrics.BytesWritten, uint64(accept))
	if accept < n {
		atomic.AddUint64(&b.metrics.ShortWrites, 1)
	}
	return accept, nil
}

// SetWriteLimit caps how many bytes each write accepts. A negative limit
// removes the cap.
func (b *MemoryBuffer) SetWriteLimit(n int) {
	atomic.StoreInt64(&b.writeLimit, int64(n))
}

// Feed queues raw bytes as if a peer had written them.
func (b *MemoryBuffer) Feed(p []byte) error {
	return b.q.push(p)
}

// CloseWrite ends the stream. Readers drain what is queued, then get short
// counts.
func (b *MemoryBuffer) CloseWrite() {
	b.q.close()
}

// Pending returns a copy of the queued, unread bytes.
func (b *MemoryBuffer) Pending() []byte {
	b.q.mu.Lock()
	defer b.q.mu.Unlock()
	return append([]byte(nil), b.q.pending...)
}

// Size implements core.Buffer.
func (b *MemoryBuffer) Size() int { return b.size }

// Capacity implements core.Buffer.
func (b *MemoryBuffer) Capacity() int { return len(b.data) }

// Bytes implements core.Buffer.
func (b *MemoryBuffer) Bytes() []byte { return b.data }

// Metrics returns a snapshot of counters.
func (b *MemoryBuffer) Metrics() core.BufferMetrics { return snapshot(&b.metrics) }
