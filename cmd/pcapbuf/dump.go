package main

import (
	"fmt"
	"time"

	"github.com/irctrakz/pcapbuf/pkg/dissect"
	"github.com/spf13/cobra"
)

func newDumpCmd(a *app) *cobra.Command {
	var limit uint64

	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Print one line per packet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			r, closer, err := a.openReader(ctx, args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closer.Close()
			defer r.Close()

			network := r.Header().Network
			out := cmd.OutOrStdout()
			for limit == 0 || r.Count() < limit {
				h, data, ok := r.Next(ctx)
				if !ok {
					break
				}
				fmt.Fprintf(out, "%d %s %d/%d %s\n",
					r.Count(),
					h.Time().UTC().Format(time.RFC3339Nano),
					h.InclLen, h.OrigLen,
					dissect.Summarize(network, data))
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&limit, "limit", "n", 0, "stop after this many packets (0 = all)")
	return cmd
}
