package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ytarchive/ytarchive/internal"
	"github.com/ytarchive/ytarchive/internal/acquire"
)

func newFetchCommand(a *app) *cobra.Command {
	var (
		video       bool
		noDB        bool
		collection  bool
		single      bool
		preflight   bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "fetch URL",
		Short: "Download a single item or a whole collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if collection && single {
				return errors.New("--collection and --single are mutually exclusive")
			}

			opts := internal.FetchOptions{Concurrency: concurrency}
			if cmd.Flags().Changed("video") {
				audioOnly := !video
				opts.AudioOnly = &audioOnly
			}
			if noDB {
				persist := false
				opts.Persist = &persist
			}
			if cmd.Flags().Changed("preflight") {
				opts.Preflight = &preflight
			}
			switch {
			case collection:
				opts.Mode = acquire.ModeCollection
			case single:
				opts.Mode = acquire.ModeSingle
			}

			report, err := a.archiver.Fetch(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}

			renderReport(cmd.OutOrStdout(), report)
			if failures := len(report.Failures()); failures > 0 {
				return fmt.Errorf("%d of %d item(s) failed", failures, len(report.Items))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&video, "video", false, "download video instead of extracting audio")
	cmd.Flags().BoolVar(&noDB, "no-db", false, "do not record downloaded items in the database")
	cmd.Flags().BoolVar(&collection, "collection", false, "treat the URL as a collection regardless of its shape")
	cmd.Flags().BoolVar(&single, "single", false, "treat the URL as a single item regardless of its shape")
	cmd.Flags().BoolVar(&preflight, "preflight", false, "check the URL is reachable before invoking yt-dlp")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "number of collection items processed at once (default from config)")
	return cmd
}
