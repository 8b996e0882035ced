package main

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/pipeline"
)

type copyFlags struct {
	read      readFlags
	transform transformFlags
	write     writeFlags
}

func newCopyCmd(a *app) *cobra.Command {
	var f copyFlags
	cmd := &cobra.Command{
		Use:   "copy SRC DST",
		Short: "Copy a byte range from SRC to DST",
		Example: "  iop copy data.bin sftp://deploy@host/srv/data.bin\n" +
			"  iop copy --offset 1KiB --size 4KiB disk.img - | xxd\n" +
			"  iop copy --compress zstd --encrypt --passphrase s3cret logs.tar store://backup/logs.tar.zst.enc",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCopy(cmd, args[0], args[1], &f)
		},
	}
	f.read.register(cmd.Flags())
	f.transform.register(cmd.Flags(), true)
	f.write.register(cmd.Flags())
	return cmd
}

func (a *app) runCopy(cmd *cobra.Command, srcArg, dstArg string, f *copyFlags) error {
	src, err := parseEndpoint(srcArg)
	if err != nil {
		return err
	}
	dst, err := parseEndpoint(dstArg)
	if err != nil {
		return err
	}
	opts, err := f.read.options(a.cfg)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	ch, err := f.transform.build(ctx, a.rec, src.path, dst.path)
	if err != nil {
		return err
	}
	feed, err := a.source(ctx, src, opts)
	if err != nil {
		return err
	}
	sink, err := a.destination(ctx, dst, f.write)
	if err != nil {
		return err
	}
	last, err := pipeline.Chain(feed, append(ch.stages, sink)...)
	if err != nil {
		return err
	}
	err = a.execute(ctx, "copy", last, ch.written,
		attribute.String(observability.AttrSource, src.String()),
		attribute.String(observability.AttrDestination, dst.String()),
	)
	if err != nil {
		return err
	}
	ch.report(cmd.ErrOrStderr(), src.String())
	return nil
}
