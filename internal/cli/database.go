package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ytarchive/ytarchive/internal/table"
)

func newDatabaseCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Inspect and maintain the archive database",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "databases",
			Short: "List the databases visible to the configured backend",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				names, err := store.Databases(cmd.Context())
				if err != nil {
					return err
				}

				renderList(cmd.OutOrStdout(), "Database", names)
				return nil
			},
		},
		&cobra.Command{
			Use:   "create-database NAME",
			Short: "Create a database if it does not already exist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				created, err := store.CreateDatabaseIfAbsent(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				if created {
					fmt.Fprintf(cmd.OutOrStdout(), "Created database %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "Database %s already exists\n", args[0])
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "drop-database NAME",
			Short: "Drop a database other than the one in use",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				return store.DropDatabase(cmd.Context(), args[0])
			},
		},
		&cobra.Command{
			Use:   "tables",
			Short: "List the tables of the archive database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				names, err := store.Tables(cmd.Context())
				if err != nil {
					return err
				}

				renderList(cmd.OutOrStdout(), "Table", names)
				return nil
			},
		},
		&cobra.Command{
			Use:   "columns TABLE",
			Short: "Describe the columns of a table",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				columns, err := store.Columns(cmd.Context(), args[0])
				if err != nil {
					return err
				}

				renderColumns(cmd.OutOrStdout(), columns)
				return nil
			},
		},
		&cobra.Command{
			Use:   "drop-table TABLE",
			Short: "Drop a table if it exists",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				store, err := a.archiver.Tables(cmd.Context())
				if err != nil {
					return err
				}

				return store.DropTable(cmd.Context(), args[0])
			},
		},
		newSelectCommand(a),
		newDeleteCommand(a),
		newUpdateCommand(a),
	)

	return cmd
}

func newSelectCommand(a *app) *cobra.Command {
	var (
		where   string
		orderBy string
		desc    bool
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "select TABLE",
		Short: "Print the rows of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.archiver.Tables(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.SetCurrentTable(cmd.Context(), args[0]); err != nil {
				return err
			}

			var rows []table.Row
			switch {
			case where != "" && orderBy != "":
				return errors.New("--where and --order-by cannot be combined")
			case where != "":
				err = store.SelectWhere(cmd.Context(), table.Where(where), columns, table.Collect(&rows))
			case orderBy != "":
				err = store.SelectOrderedBy(cmd.Context(), orderBy, desc, columns, table.Collect(&rows))
			default:
				err = store.SelectAll(cmd.Context(), columns, table.Collect(&rows))
			}
			if err != nil {
				return err
			}

			header := columns
			if len(header) == 0 && len(rows) > 0 {
				header = rows[0].Columns
			}
			renderRows(cmd.OutOrStdout(), header, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "SQL filter applied to the rows, e.g. \"duration > 300\"")
	cmd.Flags().StringVar(&orderBy, "order-by", "", "column to order the rows by")
	cmd.Flags().BoolVar(&desc, "desc", false, "order descending (with --order-by)")
	cmd.Flags().StringSliceVar(&columns, "columns", nil, "columns to print (default all)")
	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	var where string

	cmd := &cobra.Command{
		Use:   "delete TABLE",
		Short: "Delete the rows of a table matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.archiver.Tables(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.SetCurrentTable(cmd.Context(), args[0]); err != nil {
				return err
			}

			affected, err := store.DeleteWhere(cmd.Context(), table.Where(where))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d row(s) from %s\n", affected, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "SQL filter selecting the rows to delete")
	_ = cmd.MarkFlagRequired("where")
	return cmd
}

func newUpdateCommand(a *app) *cobra.Command {
	var (
		where       string
		assignments []string
	)

	cmd := &cobra.Command{
		Use:   "update TABLE",
		Short: "Update the rows of a table matching a filter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(assignments)
			if err != nil {
				return err
			}

			store, err := a.archiver.Tables(cmd.Context())
			if err != nil {
				return err
			}

			if err := store.SetCurrentTable(cmd.Context(), args[0]); err != nil {
				return err
			}

			affected, err := store.UpdateWhere(cmd.Context(), table.Where(where), values)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d row(s) in %s\n", affected, args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&where, "where", "", "SQL filter selecting the rows to update")
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "assignment in the form column=value (repeatable)")
	_ = cmd.MarkFlagRequired("where")
	_ = cmd.MarkFlagRequired("set")
	return cmd
}

// parseAssignments turns column=value pairs into update assignments. The
// value "NULL" (in any case) clears the column.
func parseAssignments(pairs []string) (map[string]any, error) {
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		column, value, ok := strings.Cut(pair, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			return nil, fmt.Errorf("invalid assignment %q, expected column=value", pair)
		}

		if strings.EqualFold(value, "null") {
			values[column] = nil
		} else {
			values[column] = value
		}
	}

	return values, nil
}
