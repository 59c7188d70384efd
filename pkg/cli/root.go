package cli

import (
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"
)

const (
	// Version is the current version of nodetick
	Version = "1.0.0"
)

// Config holds the global configuration for the nodetick CLI
type Config struct {
	Debug       bool
	HistoryPath string
}

// GlobalConfig is the shared configuration instance
var GlobalConfig = &Config{}

// NewRootCommand creates the root cobra command for nodetick
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nodetick",
		Short: "nodetick - incremental re-evaluation for node-based dataflow graphs",
		Long: `nodetick is an incremental re-evaluation scheduler for node-based dataflow
graphs. Editing a graph's topology or parameter values recomputes only the
nodes whose outputs could have changed, in dependency order, driven by
bounded time slices so a host editor's tick loop is never blocked for long.`,
		Version: Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if GlobalConfig.Debug {
				log.SetOutput(os.Stderr)
				log.SetFlags(log.Ldate | log.Ltime)
			} else {
				log.SetOutput(io.Discard)
			}
		},
	}

	// Persistent flags (available to all subcommands)
	cmd.PersistentFlags().BoolVar(&GlobalConfig.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&GlobalConfig.HistoryPath, "history", "", "Record node runs to a SQLite history database at this path")

	// Add subcommands
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewValidateCommand())
	cmd.AddCommand(NewHistoryCommand())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCommand().Execute()
}
