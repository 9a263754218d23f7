package core

import "context"

// Buffer is a bounded byte channel that capture records are transferred
// through. A request moves at most Capacity() bytes and blocks until the
// underlying stream delivers or accepts them, or gives up.
//
// A Buffer is driven by one request at a time. Implementations are not
// required to be safe for concurrent use.
type Buffer interface {
	// Read blocks until up to n bytes are available at the start of Bytes()
	// and returns how many were transferred. Zero means end of stream.
	Read(ctx context.Context, n int) (int, error)

	// Write transfers the first n bytes of Bytes() and returns how many
	// were accepted.
	Write(ctx context.Context, n int) (int, error)

	// Size returns the number of bytes moved by the last request.
	Size() int

	// Capacity returns the largest number of bytes a single request can move.
	Capacity() int

	// Bytes returns the backing storage. Its length is Capacity().
	Bytes() []byte
}

// BufferMetrics contains counters for a Buffer.
type BufferMetrics struct {
	// Reads is the number of read requests.
	Reads uint64

	// Writes is the number of write requests.
	Writes uint64

	// BytesRead is the number of bytes delivered by read requests.
	BytesRead uint64

	// BytesWritten is the number of bytes accepted by write requests.
	BytesWritten uint64

	// ShortReads counts read requests that delivered fewer bytes than asked.
	ShortReads uint64

	// ShortWrites counts write requests that accepted fewer bytes than asked.
	ShortWrites uint64
}
