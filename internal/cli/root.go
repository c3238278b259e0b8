// Package cli implements the readerstudy-cli commands.
package cli

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"yashubustudio/readerstudy/readerstudy"
	"yashubustudio/readerstudy/slicetable"
)

const configEnv = "READERSTUDY_CONFIG"

type rootOptions struct {
	configPath string
	verbose    bool
	// opener overrides the HDF5 reader in tests.
	opener slicetable.Opener
}

func (o *rootOptions) loadConfig() (readerstudy.Config, error) {
	path := o.configPath
	if path == "" {
		path = os.Getenv(configEnv)
	}
	return readerstudy.LoadConfig(path)
}

func (o *rootOptions) logger(cmd *cobra.Command) *log.Logger {
	if !o.verbose {
		return nil
	}
	return log.New(cmd.ErrOrStderr(), "readerstudy: ", log.LstdFlags)
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&rootOptions{})
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "readerstudy-cli",
		Short: "Slice tables and reader-study label files",
		Long: `readerstudy-cli inspects the slice tables shown by the reader-study app and
converts or summarises the label files it writes.

The configuration file defaults to ./readerstudy.yaml and can be set with
--config or the READERSTUDY_CONFIG environment variable (a .env file is read).`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to readerstudy.yaml")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")

	cmd.AddCommand(newSlicesCmd(opts))
	cmd.AddCommand(newLabelsCmd(opts))
	return cmd
}
