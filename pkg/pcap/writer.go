package pcap

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/core"
)

// Writer emits a capture: the file header once, then packet records.
type Writer struct {
	buf    core.Buffer
	header FileHeader
	count  uint64
}

// NewWriter writes h to buf and returns a Writer for the packet records.
func NewWriter(ctx context.Context, buf core.Buffer, h FileHeader) (*Writer, error) {
	if !WriteHeader(ctx, buf, h) {
		return nil, ErrFileHeader
	}
	return &Writer{buf: buf, header: h}, nil
}

// Header returns the file header that was written.
func (w *Writer) Header() FileHeader { return w.header }

// Count returns the number of records written so far.
func (w *Writer) Count() uint64 { return w.count }

// MaxPayload returns the largest payload a single record can carry: the
// smaller of the snap length and what fits in one buffer transfer.
func (w *Writer) MaxPayload() int {
	n := w.buf.Capacity() - PacketHeaderSize
	if n < 0 {
		return 0
	}
	if w.header.SnapLen > 0 && uint64(w.header.SnapLen) < uint64(n) {
		n = int(w.header.SnapLen)
	}
	return n
}

// WritePacket writes one record as given.
func (w *Writer) WritePacket(ctx context.Context, h PacketHeader, data []byte) error {
	if !WritePacket(ctx, w.buf, h, data) {
		return fmt.Errorf("%w: record %d, incl_len %d", ErrPacketRecord, w.count, h.InclLen)
	}
	w.count++
	return nil
}

// WriteData records a packet seen at t, storing at most MaxPayload bytes of
// it. OrigLen keeps the full length.
func (w *Writer) WriteData(ctx context.Context, t time.Time, data []byte) error {
	incl := len(data)
	if limit := w.MaxPayload(); incl > limit {
		incl = limit
	}
	orig := uint64(len(data))
	if orig > math.MaxUint32 {
		orig = math.MaxUint32
	}

	var h PacketHeader
	h.SetTime(t)
	h.InclLen = uint32(incl)
	h.OrigLen = uint32(orig)
	return w.WritePacket(ctx, h, data)
}
