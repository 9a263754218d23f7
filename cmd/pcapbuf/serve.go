package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"

	"github.com/irctrakz/pcapbuf/pkg/buffer"
	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var listen, out string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Receive one capture stream over TCP and store it",
		Long: "Receive one capture stream over TCP and store it, e.g.\n" +
			"  tcpdump -w - | nc HOST PORT",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen %s: %w", listen, err)
			}
			defer ln.Close()
			logging.Infof("waiting for a capture stream on %s", ln.Addr())
			return a.serve(cmd.Context(), ln, out, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "127.0.0.1:5555", "address to accept the stream on")
	cmd.Flags().StringVarP(&out, "out", "o", "capture.pcap", "file to store the capture in (- for stdout)")
	return cmd
}

// serve accepts one connection from ln and copies the capture it carries to
// the file at out, or to stdout for "-", until the stream ends or ctx is done.
func (a *app) serve(ctx context.Context, ln net.Listener, out string, stdout io.Writer) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("accept: %w", err)
	}
	defer conn.Close()
	logging.Infof("receiving capture from %s", conn.RemoteAddr())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	capacity := a.cfg.Capture.BufferCapacity
	in := buffer.NewReadBuffer(bufio.NewReaderSize(conn, 1<<16), capacity)
	r, err := pcap.NewReader(ctx, in, capacity)
	if err != nil {
		return fmt.Errorf("read stream header: %w", err)
	}
	defer r.Close()

	h := r.Header()
	h.Network = pcap.Network(a.cfg.Capture.LinkType(uint32(h.Network)))
	w, err := a.createWriter(ctx, out, stdout, h)
	if err != nil {
		return err
	}

	c := &copier{snapLen: h.SnapLen}
	interval, _ := a.cfg.MetricsInterval()
	reporter := &metricsReporter{
		format: a.cfg.Metrics.Format,
		source: func() metricsSnapshot {
			return newMetricsSnapshot(in.Metrics(), w.buf.Metrics(), c.Records(), c.Bytes())
		},
	}
	go reporter.run(ctx, interval)

	runErr := c.run(ctx, r, w.Writer)
	if err := w.Close(); err != nil && runErr == nil {
		runErr = err
	}
	reporter.report()
	logging.InfoWithFields(logrus.Fields{
		"records": c.Records(),
		"bytes":   c.Bytes(),
		"network": h.Network,
	}, "stored capture from %s in %s", conn.RemoteAddr(), out)
	return runErr
}
