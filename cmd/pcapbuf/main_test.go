package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/buffer"
	"github.com/irctrakz/pcapbuf/pkg/config"
	"github.com/irctrakz/pcapbuf/pkg/core"
	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// writeCapture stores one record per entry of sizes with a 64 byte snap
// length, so any size above 64 is truncated.
func writeCapture(t *testing.T, path string, sizes ...int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	w, err := pcap.NewWriter(ctx, buffer.NewWriteBuffer(f, 4096), pcap.NewFileHeader(64, pcap.NetworkRaw))
	require.NoError(t, err)
	for i, n := range sizes {
		data := bytes.Repeat([]byte{byte(i)}, n)
		require.NoError(t, w.WriteData(ctx, epoch.Add(time.Duration(i)*time.Millisecond), data))
	}
}

func readCapture(t *testing.T, path string) (pcap.FileHeader, []pcap.PacketHeader) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ctx := context.Background()
	r, err := pcap.NewReader(ctx, buffer.NewReadBuffer(f, 4096), 4096)
	require.NoError(t, err)
	defer r.Close()
	var records []pcap.PacketHeader
	for {
		h, _, ok := r.Next(ctx)
		if !ok {
			break
		}
		records = append(records, h)
	}
	return r.Header(), records
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetIn(strings.NewReader(""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pcap")
	writeCapture(t, path, 20, 100, 40)

	out, err := execute(t, "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "magic:     0xa1b2c3d4")
	assert.Contains(t, out, "version:   2.4")
	assert.Contains(t, out, "snaplen:   64")
	assert.Contains(t, out, "network:   RAW (101)")
	assert.Contains(t, out, "packets:   3")
	assert.Contains(t, out, "bytes:     124 stored, 160 on the wire")
	assert.Contains(t, out, "truncated: 1")
	assert.Contains(t, out, "duration:  2ms")
}

func TestInfoMissingFile(t *testing.T) {
	_, err := execute(t, "info", filepath.Join(t.TempDir(), "missing.pcap"))
	assert.Error(t, err)
}

func TestInfoNotACapture(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.pcap")
	require.NoError(t, os.WriteFile(path, []byte("too short"), 0o644))

	_, err := execute(t, "info", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pcap.ErrFileHeader)
}

func TestDump(t *testing.T) {
	path := filepath.Join(t.TempDir(), "in.pcap")
	writeCapture(t, path, 20, 100, 40, 30)

	out, err := execute(t, "dump", path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "1 2024-03-01T12:00:00Z 20/20 "), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "2 2024-03-01T12:00:00.001Z 64/100 "), lines[1])

	out, err = execute(t, "dump", "--limit", "2", path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestCopy(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcap")
	out := filepath.Join(dir, "out.pcap")
	writeCapture(t, in, 20, 100, 40)

	_, err := execute(t, "copy", "--snaplen", "32", in, out)
	require.NoError(t, err)

	h, records := readCapture(t, out)
	assert.Equal(t, uint32(32), h.SnapLen)
	assert.Equal(t, pcap.NetworkRaw, h.Network)
	require.Len(t, records, 3)
	assert.Equal(t, uint32(20), records[0].InclLen)
	assert.Equal(t, uint32(32), records[1].InclLen)
	assert.Equal(t, uint32(100), records[1].OrigLen)
	assert.Equal(t, uint32(32), records[2].InclLen)
	assert.Equal(t, uint32(40), records[2].OrigLen)
	assert.Equal(t, epoch.Add(2*time.Millisecond), records[2].Time().UTC())
}

func TestCopyNetwork(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcap")
	writeCapture(t, in, 10, 11)

	tests := []struct {
		name    string
		env     string
		args    []string
		network pcap.Network
	}{
		{"keeps input", "", nil, pcap.NetworkRaw},
		{"from environment", "ETHERNET", nil, pcap.NetworkEthernet},
		{"flag", "", []string{"--network", "USER3"}, pcap.NetworkUser3},
		{"flag over environment", "ETHERNET", []string{"--network", "195"}, pcap.NetworkIEEE802_15_4},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("PCAP_NETWORK", tt.env)
			out := filepath.Join(dir, fmt.Sprintf("out%d.pcap", i))
			args := append([]string{"copy"}, tt.args...)
			_, err := execute(t, append(args, in, out)...)
			require.NoError(t, err)

			h, records := readCapture(t, out)
			assert.Equal(t, tt.network, h.Network)
			assert.Len(t, records, 2)
		})
	}

	_, err := execute(t, "copy", "--network", "token-ring", in, filepath.Join(dir, "bad.pcap"))
	assert.Error(t, err)
}

func TestCopyLimit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcap")
	out := filepath.Join(dir, "out.pcap")
	writeCapture(t, in, 10, 11, 12, 13)

	_, err := execute(t, "copy", "-n", "2", in, out)
	require.NoError(t, err)

	h, records := readCapture(t, out)
	assert.Equal(t, uint32(64), h.SnapLen)
	require.Len(t, records, 2)
	assert.Equal(t, uint32(11), records[1].InclLen)
}

func TestCopyToStdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pcap")
	writeCapture(t, in, 10, 11)

	out, err := execute(t, "copy", in, "-")
	require.NoError(t, err)
	raw, err := os.ReadFile(in)
	require.NoError(t, err)
	assert.Equal(t, raw, []byte(out))
}

func TestServe(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pcap")
	out := filepath.Join(dir, "received.pcap")
	writeCapture(t, in, 20, 100, 40, 64, 1)
	raw, err := os.ReadFile(in)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	a := &app{cfg: config.DefaultConfig()}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, out, nil) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write(raw)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("serve did not finish")
	}

	received, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, raw, received)
}

func TestServeToStdout(t *testing.T) {
	in := filepath.Join(t.TempDir(), "in.pcap")
	writeCapture(t, in, 4)
	raw, err := os.ReadFile(in)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	a := &app{cfg: config.DefaultConfig()}
	a.cfg.Capture.Network = uint32(pcap.NetworkUser2)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var stdout bytes.Buffer
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, "-", &stdout) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	_, err = conn.Write(raw)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("serve did not finish")
	}

	require.Len(t, stdout.Bytes(), len(raw))
	h, ok := pcap.ReadHeader(ctx, buffer.NewReadBuffer(bytes.NewReader(stdout.Bytes()), 64))
	require.True(t, ok)
	assert.Equal(t, pcap.NetworkUser2, h.Network)
	assert.Equal(t, raw[pcap.FileHeaderSize:], stdout.Bytes()[pcap.FileHeaderSize:])
}

func TestServeCancelledBeforeConnect(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	a := &app{cfg: config.DefaultConfig()}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = a.serve(ctx, ln, filepath.Join(t.TempDir(), "never.pcap"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMetricsSnapshot(t *testing.T) {
	snap := newMetricsSnapshot(core.BufferMetrics{Reads: 4, BytesRead: 184}, core.BufferMetrics{Writes: 4}, 3, 120)
	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"records":3`)
	assert.Contains(t, string(b), `"bytes":120`)
	assert.Contains(t, string(b), `"bytes_read":184`)
	assert.Equal(t, uint64(4), snap.Out["writes"])
}

func TestMetricsReporter(t *testing.T) {
	var logs bytes.Buffer
	logging.SetOutput(&logs)
	defer logging.SetOutput(os.Stderr)

	calls := 0
	m := &metricsReporter{
		format: "text",
		source: func() metricsSnapshot {
			calls++
			return newMetricsSnapshot(core.BufferMetrics{}, core.BufferMetrics{}, 7, 70)
		},
	}
	m.report()
	assert.Equal(t, 1, calls)
	assert.Contains(t, logs.String(), "records=7 bytes=70")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.run(ctx, time.Hour)
	assert.Equal(t, 1, calls)
}
