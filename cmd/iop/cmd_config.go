package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/iopipe/encryption"
	apperrors "github.com/kbukum/iopipe/errors"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: "Print the configuration after defaults, config file and IOP_* environment\n" +
			"variables are merged. Secrets are masked.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(a.cfg.masked()); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	}
	cmd.AddCommand(newSealCmd())
	return cmd
}

func newSealCmd() *cobra.Command {
	var alg string
	cmd := &cobra.Command{
		Use:   "seal VALUE",
		Short: "Seal a secret for use in the config file",
		Long: "Encrypt VALUE with the passphrase in $" + configKeyEnv + ". The printed\n" +
			"enc:... string can replace any password in the config file.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv(configKeyEnv)
			if key == "" {
				return apperrors.InvalidInput(configKeyEnv, "is not set")
			}
			s, err := encryption.NewSecrets(key, alg)
			if err != nil {
				return apperrors.InvalidInput("algorithm", err.Error())
			}
			sealed, err := s.Seal(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sealed)
			return nil
		},
	}
	cmd.Flags().StringVar(&alg, "algorithm", encryption.SealAESGCM, "AEAD: "+encryption.SealAESGCM+" or "+encryption.SealChaCha20)
	return cmd
}
