package main

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// copier moves records from a Reader to a Writer, truncating payloads to
// the destination's snap length.
type copier struct {
	limit   uint64
	snapLen uint32

	records uint64
	bytes   uint64
}

func (c *copier) run(ctx context.Context, r *pcap.Reader, w *pcap.Writer) error {
	limit := uint32(w.MaxPayload())
	if c.snapLen > 0 && c.snapLen < limit {
		limit = c.snapLen
	}
	for c.limit == 0 || atomic.LoadUint64(&c.records) < c.limit {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		h, data, ok := r.Next(ctx)
		if !ok {
			return nil
		}
		if h.InclLen > limit {
			h.InclLen = limit
		}
		if err := w.WritePacket(ctx, h, data); err != nil {
			return err
		}
		atomic.AddUint64(&c.records, 1)
		atomic.AddUint64(&c.bytes, uint64(h.InclLen))
	}
	return nil
}

func (c *copier) Records() uint64 { return atomic.LoadUint64(&c.records) }
func (c *copier) Bytes() uint64   { return atomic.LoadUint64(&c.bytes) }

func newCopyCmd(a *app) *cobra.Command {
	var limit uint64
	var snapLen uint32
	var network string

	cmd := &cobra.Command{
		Use:   "copy IN OUT",
		Short: "Re-encode a capture, optionally truncating packets",
		Long:  "Re-encode a capture, optionally truncating packets. Use - for stdin or stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, closer, err := a.openReader(ctx, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closer.Close()
			defer r.Close()

			if !cmd.Flags().Changed("snaplen") {
				snapLen = uint32(a.cfg.Capture.MaxPayload(pcap.PacketHeaderSize))
			}
			h := r.Header()
			h.Network = pcap.Network(a.cfg.Capture.LinkType(uint32(h.Network)))
			if cmd.Flags().Changed("network") {
				n, err := pcap.ParseNetwork(network)
				if err != nil {
					return fmt.Errorf("invalid --network %q: %w", network, err)
				}
				h.Network = n
			}
			if snapLen > 0 && (h.SnapLen == 0 || snapLen < h.SnapLen) {
				h.SnapLen = snapLen
			}

			w, err := a.createWriter(ctx, args[1], cmd.OutOrStdout(), h)
			if err != nil {
				return err
			}

			c := &copier{limit: limit, snapLen: h.SnapLen}
			runErr := c.run(ctx, r, w.Writer)
			if err := w.Close(); err != nil && runErr == nil {
				runErr = err
			}
			logging.InfoWithFields(logrus.Fields{
				"records": c.Records(),
				"bytes":   c.Bytes(),
				"snaplen": h.SnapLen,
				"network": h.Network,
			}, "copied %s to %s", args[0], args[1])
			return runErr
		},
	}
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 0, "stop after this many packets (0 = all)")
	cmd.Flags().Uint32Var(&snapLen, "snaplen", 0, "truncate packets to this many bytes")
	cmd.Flags().StringVar(&network, "network", "", "link-layer type for the output (name such as RAW or USER3, or number)")
	return cmd
}
