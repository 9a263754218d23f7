package core

// CaptureConfig contains configuration for reading and writing capture files.
type CaptureConfig struct {
	// BufferCapacity is the largest single transfer, in bytes. A packet
	// record (16 byte header plus payload) must fit in one transfer.
	BufferCapacity int `json:"buffer_capacity" yaml:"bufferCapacity"`

	// SnapLen is the maximum number of payload bytes stored per packet when
	// writing a capture. It is also written into the file header.
	SnapLen uint32 `json:"snaplen" yaml:"snapLen"`

	// Network, when non-zero, replaces the link-layer type in the header of
	// captures this tool writes. Zero keeps the type of the input capture.
	Network uint32 `json:"network" yaml:"network"`
}

// LinkType returns the link-layer type for a capture copied from one of type
// in.
func (c CaptureConfig) LinkType(in uint32) uint32 {
	if c.Network != 0 {
		return c.Network
	}
	return in
}

// MaxPayload returns the largest payload that fits in one transfer next to a
// packet header of headerSize bytes.
func (c CaptureConfig) MaxPayload(headerSize int) int {
	n := c.BufferCapacity - headerSize
	if n < 0 {
		return 0
	}
	if c.SnapLen > 0 && uint64(c.SnapLen) < uint64(n) {
		return int(c.SnapLen)
	}
	return n
}
