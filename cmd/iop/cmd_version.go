package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/iopipe/version"
)

func newVersionCmd() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			if !long {
				fmt.Fprintln(cmd.OutOrStdout(), "iop", info)
				return nil
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(info); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "print every build field as YAML")
	return cmd
}
