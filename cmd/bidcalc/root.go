package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/noah-isme/backend-bidcalc/internal/feestore"
	"github.com/noah-isme/backend-bidcalc/internal/obs"
)

type rootOptions struct {
	databaseURL string
	jsonOutput  bool
	logLevel    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "bidcalc",
		Short: "Calculate vehicle auction totals",
		Long: `bidcalc applies the auction fee schedule to a vehicle price.

Rules are read from PostgreSQL when --database-url (or DATABASE_URL) is set and
from the built-in schedule otherwise.

Examples:
  bidcalc quote --price 398 --vehicle-type common
  bidcalc quote --price 1800 --vehicle-type luxury --json
  bidcalc schedule --vehicle-type luxury
  bidcalc migrate --database-url postgres://localhost/bid`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "print JSON instead of a table")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level for diagnostics written to stderr")

	root.AddCommand(newQuoteCmd(opts), newScheduleCmd(opts), newMigrateCmd(opts))
	return root
}

// openStore returns the configured fee store and a release func.
func (o *rootOptions) openStore(ctx context.Context) (feestore.Store, func(), error) {
	if o.databaseURL == "" {
		return feestore.NewMemoryStore(feestore.DefaultSchedule()), func() {}, nil
	}
	poolConfig, err := pgxpool.ParseConfig(o.databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{DBName: poolConfig.ConnConfig.Database}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return feestore.PGStore{DB: pool}, pool.Close, nil
}

func (o *rootOptions) requireDatabase() error {
	if o.databaseURL == "" {
		return errors.New("--database-url or DATABASE_URL is required")
	}
	return nil
}
