package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/iopipe/digest"
	"github.com/kbukum/iopipe/metrics"
	"github.com/kbukum/iopipe/observability"
	"github.com/kbukum/iopipe/pipeline"
)

type digestFlags struct {
	read       readFlags
	algorithms []string
}

func newDigestCmd(a *app) *cobra.Command {
	var f digestFlags
	cmd := &cobra.Command{
		Use:   "digest SRC...",
		Short: "Print message digests of one or more sources",
		Long: "Print message digests in the sha256sum layout. With several algorithms\n" +
			"each line is prefixed by the algorithm name.\n\nAlgorithms: " + strings.Join(digest.Algorithms(), ", "),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, arg := range args {
				if err := a.runDigest(cmd, arg, &f); err != nil {
					return err
				}
			}
			return nil
		},
	}
	f.read.register(cmd.Flags())
	cmd.Flags().StringSliceVarP(&f.algorithms, "algorithm", "a", []string{"sha256"}, "digest algorithm; repeatable")
	return cmd
}

func (a *app) runDigest(cmd *cobra.Command, arg string, f *digestFlags) error {
	src, err := parseEndpoint(arg)
	if err != nil {
		return err
	}
	opts, err := f.read.options(a.cfg)
	if err != nil {
		return err
	}
	read := metrics.NewCounter("read", a.rec)
	stages := []pipeline.Sink{read}
	computers := make([]*digest.Computer, 0, len(f.algorithms))
	for _, alg := range f.algorithms {
		c, err := digest.New(alg)
		if err != nil {
			return err
		}
		computers = append(computers, c)
		stages = append(stages, c)
	}

	feed, err := a.source(cmd.Context(), src, opts)
	if err != nil {
		return err
	}
	last, err := pipeline.Chain(feed, stages...)
	if err != nil {
		return err
	}
	if err := a.execute(cmd.Context(), "digest", last, read,
		attribute.String(observability.AttrSource, src.String())); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, c := range computers {
		if len(computers) == 1 {
			fmt.Fprintf(out, "%s  %s\n", c.Hex(), src)
			continue
		}
		fmt.Fprintf(out, "%s  %s  %s\n", c.Algorithm(), c.Hex(), src)
	}
	return nil
}
