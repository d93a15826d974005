package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pravara/school-backend/internal/config"
	"github.com/pravara/school-backend/internal/repository/sqlstore"
	"github.com/pravara/school-backend/internal/server"
)

// newMigrateCommand represents the migrate command and its subcommands.
// Migrations are embedded in the binary, so these work from any directory.
func newMigrateCommand() *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all up migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlstore.Store) error {
				if err := store.MigrateUp(); err != nil {
					return fmt.Errorf("migrate up failed: %w", err)
				}
				return printVersion(cmd, store)
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (all of them when steps is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 0
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withStore(cmd, func(store *sqlstore.Store) error {
				if err := store.MigrateDown(steps); err != nil {
					return fmt.Errorf("migrate down failed: %w", err)
				}
				return printVersion(cmd, store)
			})
		},
	})

	migrateCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(store *sqlstore.Store) error {
				return printVersion(cmd, store)
			})
		},
	})

	return migrateCmd
}

// withStore opens the configured database for the duration of fn. Only the
// database settings are needed, so the rest of the config is not validated.
func withStore(cmd *cobra.Command, fn func(store *sqlstore.Store) error) error {
	cfg := config.Load()

	store, err := server.OpenStore(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}

func printVersion(cmd *cobra.Command, store *sqlstore.Store) error {
	version, dirty, err := store.MigrationVersion()
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	if dirty {
		cmd.Printf("schema version %d (dirty)\n", version)
		return nil
	}
	cmd.Printf("schema version %d\n", version)
	return nil
}
