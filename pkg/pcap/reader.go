package pcap

import (
	"context"
	"errors"

	"github.com/irctrakz/pcapbuf/pkg/buffer"
	"github.com/irctrakz/pcapbuf/pkg/core"
)

var (
	// ErrFileHeader is returned when the file header could not be transferred.
	ErrFileHeader = errors.New("pcap: file header transfer failed")

	// ErrPacketRecord is returned when a packet record could not be transferred.
	ErrPacketRecord = errors.New("pcap: packet record transfer failed")
)

// Reader iterates over the records of a capture.
type Reader struct {
	buf     core.Buffer
	header  FileHeader
	payload []byte
	count   uint64
	bytes   uint64
}

// NewReader reads the file header from buf. Payloads longer than maxPayload
// end the iteration.
func NewReader(ctx context.Context, buf core.Buffer, maxPayload int) (*Reader, error) {
	h, ok := ReadHeader(ctx, buf)
	if !ok {
		return nil, ErrFileHeader
	}
	if maxPayload < 0 {
		maxPayload = 0
	}
	return &Reader{
		buf:     buf,
		header:  h,
		payload: buffer.GetPayload(maxPayload),
	}, nil
}

// Header returns the file header.
func (r *Reader) Header() FileHeader { return r.header }

// Next reads the next record. The payload slice is only valid until the
// following call. It returns false at the end of the capture and on any
// malformed or truncated record; the two are not distinguished.
func (r *Reader) Next(ctx context.Context) (PacketHeader, []byte, bool) {
	h, ok := ReadPacket(ctx, r.buf, r.payload)
	if !ok {
		return PacketHeader{}, nil, false
	}
	r.count++
	r.bytes += uint64(h.InclLen)
	return h, r.payload[:h.InclLen], true
}

// Count returns the number of records read so far.
func (r *Reader) Count() uint64 { return r.count }

// Bytes returns the total payload bytes read so far.
func (r *Reader) Bytes() uint64 { return r.bytes }

// Close releases the payload scratch space.
func (r *Reader) Close() {
	if r.payload != nil {
		buffer.PutPayload(r.payload)
		r.payload = nil
	}
}
