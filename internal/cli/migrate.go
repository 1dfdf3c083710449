package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/nyashahama/counselling-portal-backend/internal/db"
)

func newMigrateCommand(open dbOpener) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Long:  "Apply the database schema. The DDL is idempotent, so running it twice is safe.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pool, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if _, err := pool.ExecContext(cmd.Context(), db.Schema); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}
