package buffer

import "sync"

// Payload scratch pools for common snap lengths. Callers should only return
// slices that came from GetPayload (checked via capacity match).

const (
	payloadSmall = 2048   // MTU-sized captures
	payloadMed   = 16384  // jumbo frames
	payloadLarge = 65536  // default snaplen
	payloadXL    = 262144 // libpcap's maximum snaplen
)

var (
	poolSmall = sync.Pool{New: func() any { b := make([]byte, payloadSmall); return &b }}
	poolMed   = sync.Pool{New: func() any { b := make([]byte, payloadMed); return &b }}
	poolLarge = sync.Pool{New: func() any { b := make([]byte, payloadLarge); return &b }}
	poolXL    = sync.Pool{New: func() any { b := make([]byte, payloadXL); return &b }}
)

// GetPayload returns a slice of length n, pooled when n fits a size class.
func GetPayload(n int) []byte {
	switch {
	case n <= payloadSmall:
		p := poolSmall.Get().(*[]byte)
		return (*p)[:n]
	case n <= payloadMed:
		p := poolMed.Get().(*[]byte)
		return (*p)[:n]
	case n <= payloadLarge:
		p := poolLarge.Get().(*[]byte)
		return (*p)[:n]
	case n <= payloadXL:
		p := poolXL.Get().(*[]byte)
		return (*p)[:n]
	default:
		return make([]byte, n)
	}
}

// PutPayload returns a slice obtained from GetPayload to its pool. Other
// slices are ignored.
func PutPayload(b []byte) {
	switch cap(b) {
	case payloadSmall:
		bb := b[:payloadSmall]
		poolSmall.Put(&bb)
	case payloadMed:
		bb := b[:payloadMed]
		poolMed.Put(&bb)
	case payloadLarge:
		bb := b[:payloadLarge]
		poolLarge.Put(&bb)
	case payloadXL:
		bb := b[:payloadXL]
		poolXL.Put(&bb)
	}
}
