package main

import (
	"context"
	"encoding/json"
	"runtime"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/core"
	"github.com/irctrakz/pcapbuf/pkg/logging"
)

type metricsSnapshot struct {
	Timestamp string            `json:"ts"`
	In        map[string]uint64 `json:"in"`
	Out       map[string]uint64 `json:"out"`
	Records   uint64            `json:"records"`
	Bytes     uint64            `json:"bytes"`
	RT        map[string]uint64 `json:"rt"`
}

func bufferCounters(m core.BufferMetrics) map[string]uint64 {
	return map[string]uint64{
		"reads":         m.Reads,
		"writes":        m.Writes,
		"bytes_read":    m.BytesRead,
		"bytes_written": m.BytesWritten,
		"short_reads":   m.ShortReads,
		"short_writes":  m.ShortWrites,
	}
}

func newMetricsSnapshot(in, out core.BufferMetrics, records, bytes uint64) metricsSnapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return metricsSnapshot{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		In:        bufferCounters(in),
		Out:       bufferCounters(out),
		Records:   records,
		Bytes:     bytes,
		RT: map[string]uint64{
			"heap_alloc": ms.HeapAlloc,
			"num_gc":     uint64(ms.NumGC),
			"goroutines": uint64(runtime.NumGoroutine()),
		},
	}
}

// metricsReporter periodically logs counters while a capture is copied.
type metricsReporter struct {
	format string
	source func() metricsSnapshot
}

func (m *metricsReporter) run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *metricsReporter) report() {
	snap := m.source()
	switch m.format {
	case "json":
		b, _ := json.Marshal(snap)
		logging.Infof("metrics: %s", string(b))
	default:
		logging.Infof("metrics: ts=%s records=%d bytes=%d | in: reads=%d bytes=%d short=%d | out: writes=%d bytes=%d short=%d | rt: heap=%dMi gor=%d gc=%d",
			snap.Timestamp, snap.Records, snap.Bytes,
			snap.In["reads"], snap.In["bytes_read"], snap.In["short_reads"],
			snap.Out["writes"], snap.Out["bytes_written"], snap.Out["short_writes"],
			snap.RT["heap_alloc"]>>20, snap.RT["goroutines"], snap.RT["num_gc"],
		)
	}
}
