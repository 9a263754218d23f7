package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/irctrakz/pcapbuf/pkg/buffer"
	"github.com/irctrakz/pcapbuf/pkg/config"
	"github.com/irctrakz/pcapbuf/pkg/logging"
	"github.com/irctrakz/pcapbuf/pkg/pcap"
	"github.com/spf13/cobra"
)

// app carries state shared by the subcommands.
type app struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var cfgPath string
	var debug bool

	root := &cobra.Command{
		Use:           "pcapbuf",
		Short:         "Inspect, copy and receive pcap capture files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if cfgPath != "" {
				if err := config.LoadFromFile(cfgPath, cfg); err != nil {
					return err
				}
			}
			config.LoadFromEnv(cfg)
			if debug {
				cfg.Logging.Level = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logging.SetOutput(cmd.ErrOrStderr())
			if err := cfg.ApplyLogging(); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (.yaml, .yml or .json)")
	root.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	root.AddCommand(newInfoCmd(a), newDumpCmd(a), newCopyCmd(a), newServeCmd(a))
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}

// openReader opens a capture for reading; "-" is stdin.
func (a *app) openReader(ctx context.Context, path string, stdin io.Reader) (*pcap.Reader, io.Closer, error) {
	var src io.Reader
	var closer io.Closer
	if path == "-" {
		src, closer = stdin, io.NopCloser(stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open capture %q: %w", path, err)
		}
		src, closer = f, f
	}

	capacity := a.cfg.Capture.BufferCapacity
	buf := buffer.NewReadBuffer(bufio.NewReaderSize(src, 1<<16), capacity)
	r, err := pcap.NewReader(ctx, buf, capacity)
	if err != nil {
		closer.Close()
		return nil, nil, fmt.Errorf("read capture %q: %w", path, err)
	}
	if r.Header().Swapped() {
		logging.Warnf("%s was written on a host of the other byte order; fields will not decode meaningfully", path)
	}
	return r, closer, nil
}

// captureOutput is a buffered capture destination.
type captureOutput struct {
	*pcap.Writer
	buf  *buffer.StreamBuffer
	file *os.File
}

// createWriter creates a capture for writing; "-" is stdout.
func (a *app) createWriter(ctx context.Context, path string, stdout io.Writer, h pcap.FileHeader) (*captureOutput, error) {
	var dst io.Writer = stdout
	var file *os.File
	if path == "-" && stdout == nil {
		return nil, fmt.Errorf("create capture: no stdout to write to")
	}
	if path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create capture %q: %w", path, err)
		}
		dst, file = f, f
	}

	buf := buffer.NewWriteBuffer(bufio.NewWriterSize(dst, 1<<16), a.cfg.Capture.BufferCapacity)
	w, err := pcap.NewWriter(ctx, buf, h)
	if err != nil {
		if file != nil {
			file.Close()
		}
		return nil, fmt.Errorf("write capture %q: %w", path, err)
	}
	return &captureOutput{Writer: w, buf: buf, file: file}, nil
}

// Close flushes buffered records and closes the file.
func (o *captureOutput) Close() error {
	err := o.buf.Flush()
	if o.file != nil {
		if cerr := o.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
