package wireguard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	wtun "golang.zx2c4.com/wireguard/tun"
)

// TapMetrics exposes counters for packets seen by a Tap.
type TapMetrics struct {
	Inbound  uint64 // packets read from the device (towards WireGuard)
	Outbound uint64 // packets written to the device (from WireGuard)
	Recorded uint64 // records written to the capture
	Failed   uint64 // records the capture writer rejected
}

// Tap wraps a tun.Device handed to wireguard-go and records every plaintext
// packet crossing it into a pcap Writer. Recording failures never affect the
// device; they are counted and logged at debug level.
type Tap struct {
	wtun.Device

	mu  sync.Mutex
	w   *pcap.Writer
	now func() time.Time

	metrics TapMetrics
}

// NewTap returns a Tap recording into w. The capture should use
// pcap.NetworkRaw, the link type of tun devices.
func NewTap(dev wtun.Device, w *pcap.Writer) *Tap {
	return &Tap{Device: dev, w: w, now: time.Now}
}

// Read reads from the wrapped device and records what was read.
func (t *Tap) Read(bufs [][]byte, sizes []int, offset int) (int, error) {
	n, err := t.Device.Read(bufs, sizes, offset)
	for i := 0; i < n && i < len(bufs) && i < len(sizes); i++ {
		end := offset + sizes[i]
		if offset >= len(bufs[i]) || end > len(bufs[i]) {
			continue
		}
		atomic.AddUint64(&t.metrics.Inbound, 1)
		t.record(bufs[i][offset:end])
	}
	return n, err
}

// Write records each packet and passes the batch to the wrapped device.
func (t *Tap) Write(bufs [][]byte, offset int) (int, error) {
	for _, b := range bufs {
		if b == nil || offset >= len(b) {
			continue
		}
		atomic.AddUint64(&t.metrics.Outbound, 1)
		t.record(b[offset:])
	}
	return t.Device.Write(bufs, offset)
}

// Metrics returns a snapshot of counters.
func (t *Tap) Metrics() TapMetrics {
	return TapMetrics{
		Inbound:  atomic.LoadUint64(&t.metrics.Inbound),
		Outbound: atomic.LoadUint64(&t.metrics.Outbound),
		Recorded: atomic.LoadUint64(&t.metrics.Recorded),
		Failed:   atomic.LoadUint64(&t.metrics.Failed),
	}
}

func (t *Tap) record(pkt []byte) {
	if len(pkt) == 0 {
		return
	}
	t.mu.Lock()
	err := t.w.WriteData(context.Background(), t.now(), pkt)
	t.mu.Unlock()
	if err != nil {
		atomic.AddUint64(&t.metrics.Failed, 1)
		logging.Debugf("tap: capture write failed: %v", err)
		return
	}
	atomic.AddUint64(&t.metrics.Recorded, 1)
}
