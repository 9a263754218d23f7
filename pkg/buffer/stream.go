// Package buffer provides core.Buffer implementations over io streams and
// in-memory queues.
package buffer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/core"
	"github.com/irctrakz/pcapbuf/pkg/logging"
)

var (
	// ErrClosed is returned when writing to a closed queue.
	ErrClosed = errors.New("buffer: closed")

	// ErrCapacity is returned when a write asks for more than the buffer holds.
	ErrCapacity = errors.New("buffer: request exceeds capacity")

	errNoReader = errors.New("buffer: not readable")
	errNoWriter = errors.New("buffer: not writable")
)

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

type flusher interface {
	Flush() error
}

// StreamBuffer is a core.Buffer over an io.Reader, an io.Writer, or both.
//
// Reads block until the requested count arrives or the stream ends; an end
// of stream shows up as a short count, not an error. When the stream is a
// net.Conn the context deadline becomes the connection deadline for the
// duration of the request.
type StreamBuffer struct {
	r       io.Reader
	w       io.Writer
	data    []byte
	size    int
	metrics core.BufferMetrics
}

// NewStreamBuffer creates a buffer of the given capacity. Either r or w may
// be nil.
func NewStreamBuffer(r io.Reader, w io.Writer, capacity int) *StreamBuffer {
	if capacity < 0 {
		capacity = 0
	}
	return &StreamBuffer{r: r, w: w, data: make([]byte, capacity)}
}

// NewReadBuffer creates a read-only StreamBuffer.
func NewReadBuffer(r io.Reader, capacity int) *StreamBuffer {
	return NewStreamBuffer(r, nil, capacity)
}

// NewWriteBuffer creates a write-only StreamBuffer.
func NewWriteBuffer(w io.Writer, capacity int) *StreamBuffer {
	return NewStreamBuffer(nil, w, capacity)
}

// Read implements core.Buffer.
func (b *StreamBuffer) Read(ctx context.Context, n int) (int, error) {
	b.size = 0
	atomic.AddUint64(&b.metrics.Reads, 1)
	if b.r == nil {
		return 0, errNoReader
	}
	want := n
	if n > len(b.data) {
		n = len(b.data)
	}
	if n <= 0 {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if d, ok := b.r.(readDeadliner); ok {
		if dl, ok := ctx.Deadline(); ok {
			_ = d.SetReadDeadline(dl)
			defer d.SetReadDeadline(time.Time{})
		}
	}

	got, err := io.ReadFull(b.r, b.data[:n])
	b.size = got
	atomic.AddUint64(&b.metrics.BytesRead, uint64(got))
	if got < want {
		atomic.AddUint64(&b.metrics.ShortReads, 1)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		if got > 0 {
			logging.Debugf("stream ended after %d of %d bytes", got, want)
		}
		err = nil
	}
	return got, err
}

// Write implements core.Buffer.
func (b *StreamBuffer) Write(ctx context.Context, n int) (int, error) {
	b.size = 0
	atomic.AddUint64(&b.metrics.Writes, 1)
	if b.w == nil {
		return 0, errNoWriter
	}
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
	if d, ok := b.w.(writeDeadliner); ok {
		if dl, ok := ctx.Deadline(); ok {
			_ = d.SetWriteDeadline(dl)
			defer d.SetWriteDeadline(time.Time{})
		}
	}

	got, err := b.w.Write(b.data[:n])
	b.size = got
	atomic.AddUint64(&b.metrics.BytesWritten, uint64(got))
	if got < n {
		atomic.AddUint64(&b.metrics.ShortWrites, 1)
	}
	return got, err
}

// Flush flushes the writer if it buffers output.
func (b *StreamBuffer) Flush() error {
	if f, ok := b.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// Size implements core.Buffer.
func (b *StreamBuffer) Size() int { return b.size }

// Capacity implements core.Buffer.
func (b *StreamBuffer) Capacity() int { return len(b.data) }

// Bytes implements core.Buffer.
func (b *StreamBuffer) Bytes() []byte { return b.data }

// Metrics returns a snapshot of counters.
func (b *StreamBuffer) Metrics() core.BufferMetrics { return snapshot(&b.metrics) }

func snapshot(m *core.BufferMetrics) core.BufferMetrics {
	return core.BufferMetrics{
		Reads:        atomic.LoadUint64(&m.Reads),
		Writes:       atomic.LoadUint64(&m.Writes),
		BytesRead:    atomic.LoadUint64(&m.BytesRead),
		BytesWritten: atomic.LoadUint64(&m.BytesWritten),
		ShortReads:   atomic.LoadUint64(&m.ShortReads),
		ShortWrites:  atomic.LoadUint64(&m.ShortWrites),
	}
}
