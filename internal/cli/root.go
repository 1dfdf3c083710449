// Package cli implements portalctl, the operator command line for the
// counselling portal: schema migration, counsellor accounts and a printout
// of the assessment questions.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

var errNoDatabase = errors.New("no database configured: pass --database-url or set DATABASE_URL")

// NewRootCommand creates the root portalctl command with every subcommand.
func NewRootCommand() *cobra.Command {
	var dsn string

	cmd := &cobra.Command{
		Use:   "portalctl",
		Short: "Operator tools for the counselling portal",
		Long: `portalctl manages a counselling portal deployment.

It applies the database schema, creates counsellor accounts (students sign
up through the portal) and resets passwords.`,
		Version:      Version,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&dsn, "database-url", os.Getenv("DATABASE_URL"), "Postgres connection string")

	open := func(ctx context.Context) (*sql.DB, error) { return openDB(ctx, dsn) }

	cmd.AddCommand(newMigrateCommand(open))
	cmd.AddCommand(newAddCounsellorCommand(open))
	cmd.AddCommand(newResetPasswordCommand(open))
	cmd.AddCommand(newQuestionsCommand())

	return cmd
}

// dbOpener defers connecting until a subcommand actually needs the database.
type dbOpener func(ctx context.Context) (*sql.DB, error)

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, errNoDatabase
	}
	pool, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	pool.SetMaxOpenConns(2)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
