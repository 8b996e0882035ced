// Command iop moves byte streams between files, stdio, SFTP, FTP and object
// storage, optionally compressing, encrypting and hashing them on the way.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/iopipe/version"
)

var rootFlags struct {
	configFile string
	envFile    string
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "iop",
		Short: "Stream bytes between files, SFTP, FTP and object storage",
		Long: "iop copies a byte stream from a source to a destination through optional\n" +
			"decrypt, decompress, digest, compress and encrypt stages.\n\n" +
			"Endpoints: PATH, file://PATH, - (stdin/stdout), sftp://user@host[:port]/path,\n" +
			"ftp://user@host[:port]/path, store://KEY (configured storage backend).",
		Version:       version.Get().Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context(), rootFlags.configFile, rootFlags.envFile)
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&rootFlags.configFile, "config", "c", "", "config file (default: search iop.yml, config.yml, $XDG_CONFIG_HOME/iop, /etc/iop)")
	pf.StringVar(&rootFlags.envFile, "env-file", "", ".env file to load")

	root.AddCommand(newCopyCmd(a))
	root.AddCommand(newDigestCmd(a))
	root.AddCommand(newRandomCmd(a))
	root.AddCommand(newSplitCmd(a))
	root.AddCommand(newConfigCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// run executes one command line and releases everything it opened.
func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "iop:", err)
		os.Exit(1)
	}
}
