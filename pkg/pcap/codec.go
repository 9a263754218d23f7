package pcap

import (
	"context"

	"github.com/irctrakz/pcapbuf/pkg/core"
	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/sirupsen/logrus"
)

// The four codec operations report failure as a single false. The cause is
// only logged, at debug level. Header values returned on failure must not be
// used.

func logFailure(op, cause string, fields logrus.Fields) {
	if !logging.IsDebug() {
		return
	}
	logging.WithComponent("pcap").WithField("op", op).WithFields(fields).Debug(cause)
}

// transferred reports whether a request moved exactly want bytes.
func transferred(n int, err error, buf core.Buffer, want int) bool {
	return err == nil && n == want && buf.Size() == want
}

// ReadHeader reads the file header from buf.
func ReadHeader(ctx context.Context, buf core.Buffer) (FileHeader, bool) {
	n, err := buf.Read(ctx, FileHeaderSize)
	if !transferred(n, err, buf, FileHeaderSize) {
		logFailure("read_header", "short transfer", logrus.Fields{"want": FileHeaderSize, "got": n, "err": err})
		return FileHeader{}, false
	}
	return decodeFileHeader(buf.Bytes()), true
}

// ReadPacket reads one packet record from buf and copies its payload to the
// start of payload. Bytes of payload past InclLen are left as they were. It
// fails if the stream ends before the record is complete or if payload is
// too small for InclLen bytes; payload is not written in either case.
func ReadPacket(ctx context.Context, buf core.Buffer, payload []byte) (PacketHeader, bool) {
	n, err := buf.Read(ctx, PacketHeaderSize)
	if !transferred(n, err, buf, PacketHeaderSize) {
		logFailure("read_packet", "short transfer", logrus.Fields{"want": PacketHeaderSize, "got": n, "err": err})
		return PacketHeader{}, false
	}
	h := decodePacketHeader(buf.Bytes())

	l := int(h.InclLen)
	n, err = buf.Read(ctx, l)
	if !transferred(n, err, buf, l) {
		logFailure("read_packet", "short transfer", logrus.Fields{"want": l, "got": n, "err": err})
		return h, false
	}
	if len(payload) < l {
		logFailure("read_packet", "destination too small", logrus.Fields{"incl_len": l, "dst": len(payload)})
		return h, false
	}
	copy(payload[:l], buf.Bytes()[:l])
	return h, true
}

// WriteHeader writes the file header to buf.
func WriteHeader(ctx context.Context, buf core.Buffer, h FileHeader) bool {
	if buf.Capacity() < FileHeaderSize {
		logFailure("write_header", "record exceeds capacity", logrus.Fields{"size": FileHeaderSize, "capacity": buf.Capacity()})
		return false
	}
	h.Put(buf.Bytes())
	n, err := buf.Write(ctx, FileHeaderSize)
	if !transferred(n, err, buf, FileHeaderSize) {
		logFailure("write_header", "short transfer", logrus.Fields{"want": FileHeaderSize, "got": n, "err": err})
		return false
	}
	return true
}

// WritePacket writes h followed by the first h.InclLen bytes of payload as a
// single transfer. Nothing is sent when the record does not fit in one
// transfer or payload holds fewer than h.InclLen bytes. OrigLen is never
// consulted.
func WritePacket(ctx context.Context, buf core.Buffer, h PacketHeader, payload []byte) bool {
	l := uint64(h.InclLen)
	size := PacketHeaderSize + l
	if size > uint64(buf.Capacity()) {
		logFailure("write_packet", "record exceeds capacity", logrus.Fields{"size": size, "capacity": buf.Capacity()})
		return false
	}
	if uint64(len(payload)) < l {
		logFailure("write_packet", "payload shorter than incl_len", logrus.Fields{"incl_len": l, "payload": len(payload)})
		return false
	}

	staging := buf.Bytes()[:size]
	h.Put(staging)
	copy(staging[PacketHeaderSize:], payload[:l])

	n, err := buf.Write(ctx, int(size))
	if !transferred(n, err, buf, int(size)) {
		logFailure("write_packet", "short transfer", logrus.Fields{"want": size, "got": n, "err": err})
		return false
	}
	return true
}
