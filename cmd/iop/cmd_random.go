package main

import (
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/pipeline"
	"github.com/kbukum/iopipe/random"
)

type randomFlags struct {
	blockSize string
	transform transformFlags
	write     writeFlags
}

func newRandomCmd(a *app) *cobra.Command {
	var f randomFlags
	cmd := &cobra.Command{
		Use:     "random SIZE DST",
		Short:   "Write SIZE cryptographically random bytes to DST",
		Example: "  iop random 16MiB test.bin --digest sha256",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRandom(cmd, args[0], args[1], &f)
		},
	}
	cmd.Flags().StringVar(&f.blockSize, "block-size", "", "write chunk size (default from config, 1MiB)")
	f.transform.register(cmd.Flags(), false)
	f.write.register(cmd.Flags())
	return cmd
}

func (a *app) runRandom(cmd *cobra.Command, sizeArg, dstArg string, f *randomFlags) error {
	size, err := parseSize("size", sizeArg)
	if err != nil {
		return err
	}
	dst, err := parseEndpoint(dstArg)
	if err != nil {
		return err
	}
	rf := readFlags{blockSize: f.blockSize}
	opts, err := rf.options(a.cfg)
	if err != nil {
		return err
	}
	ch, err := f.transform.build(cmd.Context(), a.rec, "", dst.path)
	if err != nil {
		return err
	}
	sink, err := a.destination(cmd.Context(), dst, f.write)
	if err != nil {
		return err
	}
	last, err := pipeline.Chain(random.NewGenerator(size, opts...), append(ch.stages, sink)...)
	if err != nil {
		return err
	}
	if err := a.execute(cmd.Context(), "random", last, ch.written,
		attribute.String(observability.AttrDestination, dst.String())); err != nil {
		return err
	}
	ch.report(cmd.ErrOrStderr(), dst.String())
	return nil
}
