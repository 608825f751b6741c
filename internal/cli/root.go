// Package cli exposes the archiver as a command line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/ytarchive/ytarchive/internal"
)

type app struct {
	configPath string
	logLevel   string

	config   *internal.ArchiveConfig
	archiver *internal.Archiver
}

// NewRootCommand builds the command tree. Configuration is loaded once the
// command to run is known, so that --help never touches the filesystem.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "ytarchive",
		Short: "Download media with yt-dlp and catalogue it in a database",
		Long: `ytarchive downloads single items or whole playlists using yt-dlp, names the
files from their metadata and records each item in a songs or videos table.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if a.archiver == nil {
				return nil
			}

			return a.archiver.Close()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/ytarchive/config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (verbose, debug, info, warn, error)")

	root.AddCommand(newFetchCommand(a), newDatabaseCommand(a), newHistoryCommand(a))
	return root
}

// Execute runs the root command, cancelling the context on SIGINT/SIGTERM.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	return 0
}

func (a *app) load() error {
	path := a.configPath
	if path == "" {
		path = internal.DefaultConfigPath()
	}

	config, err := internal.LoadConfig(path)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		config.LogLevel = a.logLevel
	}

	a.config = config
	a.archiver = internal.New(config)
	return nil
}
