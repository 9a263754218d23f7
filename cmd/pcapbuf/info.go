package main

import (
	"fmt"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/spf13/cobra"
)

// captureStats summarises the records of a capture.
type captureStats struct {
	Packets   uint64
	Stored    uint64
	Original  uint64
	Truncated uint64
	First     time.Time
	Last      time.Time
}

func (s *captureStats) add(h pcap.PacketHeader) {
	ts := h.Time()
	if s.Packets == 0 || ts.Before(s.First) {
		s.First = ts
	}
	if ts.After(s.Last) {
		s.Last = ts
	}
	s.Packets++
	s.Stored += uint64(h.InclLen)
	s.Original += uint64(h.OrigLen)
	if h.Truncated() {
		s.Truncated++
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE",
		Short: "Print the file header and packet totals of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, closer, err := a.openReader(ctx, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closer.Close()
			defer r.Close()

			var st captureStats
			for {
				h, _, ok := r.Next(ctx)
				if !ok {
					break
				}
				st.add(h)
			}

			h := r.Header()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "file:      %s\n", args[0])
			fmt.Fprintf(out, "magic:     %#08x", h.MagicNumber)
			if h.Swapped() {
				fmt.Fprint(out, " (swapped)")
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "version:   %d.%d\n", h.VersionMajor, h.VersionMinor)
			fmt.Fprintf(out, "thiszone:  %d\n", h.ThisZone)
			fmt.Fprintf(out, "sigfigs:   %d\n", h.SigFigs)
			fmt.Fprintf(out, "snaplen:   %d\n", h.SnapLen)
			fmt.Fprintf(out, "network:   %s (%d)\n", h.Network, uint32(h.Network))
			fmt.Fprintf(out, "packets:   %d\n", st.Packets)
			fmt.Fprintf(out, "bytes:     %d stored, %d on the wire\n", st.Stored, st.Original)
			fmt.Fprintf(out, "truncated: %d\n", st.Truncated)
			if st.Packets > 0 {
				fmt.Fprintf(out, "first:     %s\n", st.First.UTC().Format(time.RFC3339Nano))
				fmt.Fprintf(out, "last:      %s\n", st.Last.UTC().Format(time.RFC3339Nano))
				fmt.Fprintf(out, "duration:  %s\n", st.Last.Sub(st.First))
			}
			return nil
		},
	}
}
