// Package pcap reads and writes classic pcap capture files over a core.Buffer.
//
// A capture is a 24 byte file header followed by any number of records, each
// a 16 byte packet header and InclLen bytes of payload. There are no
// separators, trailers or checksums. Fields are encoded one by one in native
// byte order, the order libpcap itself writes.
package pcap

import (
	"encoding/binary"
	"errors"
	"time"
)

const (
	// FileHeaderSize is the encoded size of a FileHeader.
	FileHeaderSize = 24

	// PacketHeaderSize is the encoded size of a PacketHeader.
	PacketHeaderSize = 16

	// MagicMicroseconds identifies a microsecond-resolution capture.
	MagicMicroseconds uint32 = 0xa1b2c3d4

	// MagicSwapped is MagicMicroseconds as read on a host of the other byte order.
	MagicSwapped uint32 = 0xd4c3b2a1

	VersionMajor uint16 = 2
	VersionMinor uint16 = 4
)

var errShortHeader = errors.New("pcap: header shorter than its encoded size")

var order = binary.NativeEndian

// FileHeader is the header written once at the start of a capture.
type FileHeader struct {
	MagicNumber  uint32
	VersionMajor uint16
	VersionMinor uint16
	ThisZone     int32   // GMT to local correction
	SigFigs      uint32  // accuracy of timestamps, conventionally 0
	SnapLen      uint32  // max length of captured packets
	Network      Network // link type of every packet in the file
}

// NewFileHeader returns a version 2.4 microsecond header.
func NewFileHeader(snapLen uint32, network Network) FileHeader {
	return FileHeader{
		MagicNumber:  MagicMicroseconds,
		VersionMajor: VersionMajor,
		VersionMinor: VersionMinor,
		SnapLen:      snapLen,
		Network:      network,
	}
}

// Swapped reports whether the header was produced on a host of the other
// byte order. Such files are still decoded, just not meaningfully.
func (h FileHeader) Swapped() bool {
	return h.MagicNumber == MagicSwapped
}

// Put encodes h into the first FileHeaderSize bytes of b.
func (h FileHeader) Put(b []byte) {
	_ = b[FileHeaderSize-1]
	order.PutUint32(b[0:4], h.MagicNumber)
	order.PutUint16(b[4:6], h.VersionMajor)
	order.PutUint16(b[6:8], h.VersionMinor)
	order.PutUint32(b[8:12], uint32(h.ThisZone))
	order.PutUint32(b[12:16], h.SigFigs)
	order.PutUint32(b[16:20], h.SnapLen)
	order.PutUint32(b[20:24], uint32(h.Network))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h FileHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, FileHeaderSize)
	h.Put(b)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *FileHeader) UnmarshalBinary(b []byte) error {
	if len(b) < FileHeaderSize {
		return errShortHeader
	}
	*h = decodeFileHeader(b)
	return nil
}

func decodeFileHeader(b []byte) FileHeader {
	_ = b[FileHeaderSize-1]
	return FileHeader{
		MagicNumber:  order.Uint32(b[0:4]),
		VersionMajor: order.Uint16(b[4:6]),
		VersionMinor: order.Uint16(b[6:8]),
		ThisZone:     int32(order.Uint32(b[8:12])),
		SigFigs:      order.Uint32(b[12:16]),
		SnapLen:      order.Uint32(b[16:20]),
		Network:      Network(order.Uint32(b[20:24])),
	}
}

// PacketHeader precedes every packet payload in a capture.
type PacketHeader struct {
	TsSec   uint32 // timestamp seconds
	TsUsec  uint32 // timestamp microseconds
	InclLen uint32 // number of payload bytes stored after this header
	OrigLen uint32 // length of the packet on the wire
}

// SetTimestampMicros sets the capture time from microseconds since the epoch.
func (h *PacketHeader) SetTimestampMicros(us uint64) {
	h.TsSec = uint32(us / 1000000)
	h.TsUsec = uint32(us % 1000000)
}

// SetTimestampMillis sets the capture time from milliseconds since the epoch.
func (h *PacketHeader) SetTimestampMillis(ms uint32) {
	h.SetTimestampMicros(uint64(ms) * 1000)
}

// SetTime sets the capture time. Times before the epoch are stored as zero.
func (h *PacketHeader) SetTime(t time.Time) {
	us := t.UnixMicro()
	if us < 0 {
		us = 0
	}
	h.SetTimestampMicros(uint64(us))
}

// Time returns the capture time.
func (h PacketHeader) Time() time.Time {
	return time.Unix(int64(h.TsSec), int64(h.TsUsec)*int64(time.Microsecond))
}

// Truncated reports whether fewer bytes were stored than seen on the wire.
func (h PacketHeader) Truncated() bool {
	return h.InclLen < h.OrigLen
}

// Put encodes h into the first PacketHeaderSize bytes of b.
func (h PacketHeader) Put(b []byte) {
	_ = b[PacketHeaderSize-1]
	order.PutUint32(b[0:4], h.TsSec)
	order.PutUint32(b[4:8], h.TsUsec)
	order.PutUint32(b[8:12], h.InclLen)
	order.PutUint32(b[12:16], h.OrigLen)
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (h PacketHeader) MarshalBinary() ([]byte, error) {
	b := make([]byte, PacketHeaderSize)
	h.Put(b)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (h *PacketHeader) UnmarshalBinary(b []byte) error {
	if len(b) < PacketHeaderSize {
		return errShortHeader
	}
	*h = decodePacketHeader(b)
	return nil
}

func decodePacketHeader(b []byte) PacketHeader {
	_ = b[PacketHeaderSize-1]
	return PacketHeader{
		TsSec:   order.Uint32(b[0:4]),
		TsUsec:  order.Uint32(b[4:8]),
		InclLen: order.Uint32(b[8:12]),
		OrigLen: order.Uint32(b[12:16]),
	}
}
