package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/ytarchive/ytarchive/internal/history"
)

func newHistoryCommand(a *app) *cobra.Command {
	var limit uint64

	cmd := &cobra.Command{
		Use:   "history [RUN_ID]",
		Short: "List previous acquisition runs, most recent first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.archiver.History(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 1 {
				id, err := uuid.Parse(args[0])
				if err != nil {
					return fmt.Errorf("invalid run ID %q: %w", args[0], err)
				}

				run, err := store.Get(cmd.Context(), id)
				if err != nil {
					return err
				}

				renderRuns(cmd.OutOrStdout(), []*history.Run{run})
				return nil
			}

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			renderRuns(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().Uint64VarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	return cmd
}
