package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	apperrors "github.com/kbukum/iopipe/errors"
	"github.com/kbukum/iopipe/file"
	"github.com/kbukum/iopipe/metrics"
	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/pipeline"
)

type splitFlags struct {
	sizes     []string
	prefix    string
	blockSize string
}

func newSplitCmd(a *app) *cobra.Command {
	var f splitFlags
	cmd := &cobra.Command{
		Use:   "split SRC DIR",
		Short: "Cut SRC into consecutive parts of the given sizes",
		Long: "Cut SRC into consecutive parts written to DIR/<prefix>000, DIR/<prefix>001, ...\n" +
			"SRC is read once, front to back; it may be a file, - or store://KEY.",
		Example: "  iop split --sizes 512,1KiB,1KiB firmware.bin parts/",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSplit(cmd, args[0], args[1], &f)
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVar(&f.sizes, "sizes", nil, "part sizes in order (e.g. 1MiB,1MiB,512KiB)")
	fs.StringVar(&f.prefix, "prefix", "part-", "part file name prefix")
	fs.StringVar(&f.blockSize, "block-size", "", "read chunk ceiling (default from config, 1MiB)")
	_ = cmd.MarkFlagRequired("sizes")
	return cmd
}

func (a *app) runSplit(cmd *cobra.Command, srcArg, dir string, f *splitFlags) error {
	src, err := parseEndpoint(srcArg)
	if err != nil {
		return err
	}
	sizes := make([]int64, len(f.sizes))
	for i, s := range f.sizes {
		if sizes[i], err = parseSize("sizes", s); err != nil {
			return err
		}
	}
	rf := readFlags{blockSize: f.blockSize}
	opts, err := rf.options(a.cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	r, err := a.openStream(cmd.Context(), src)
	if err != nil {
		return err
	}
	defer r.Close()

	seg := file.NewSegmentReader(r, opts...)
	out := cmd.OutOrStdout()
	for i, size := range sizes {
		part := filepath.Join(dir, fmt.Sprintf("%s%03d", f.prefix, i))
		written := metrics.NewCounter("write", a.rec)
		last, err := pipeline.Chain(seg.Prepare(size), written, file.NewWriter(part, file.WithAtomic()))
		if err != nil {
			return err
		}
		err = a.execute(cmd.Context(), "split", last, written,
			attribute.String(observability.AttrSource, src.String()),
			attribute.String(observability.AttrDestination, part),
			attribute.Int("iop.part", i),
		)
		if err != nil {
			return fmt.Errorf("part %d: %w", i, err)
		}
		fmt.Fprintf(out, "%s  %d\n", part, size)
	}
	return nil
}

// openStream opens src as one sequential reader.
func (a *app) openStream(ctx context.Context, src endpoint) (io.ReadCloser, error) {
	switch src.scheme {
	case schemeStdio:
		return io.NopCloser(a.stdin), nil
	case schemeFile:
		f, err := os.Open(src.path)
		if os.IsNotExist(err) {
			return nil, apperrors.NotFound("file", src.path)
		}
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", src.path, err)
		}
		return f, nil
	case schemeStore:
		s, err := a.storage()
		if err != nil {
			return nil, err
		}
		return s.Download(ctx, src.path)
	}
	return nil, apperrors.InvalidInput("source", "split reads files, - or store:// (got "+src.scheme+")")
}
