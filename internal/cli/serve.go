package cli

import (
	"github.com/spf13/cobra"

	"github.com/pravara/school-backend/internal/config"
	"github.com/pravara/school-backend/internal/server"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Start the HTTP API server. Usage:

	schoold serve

Pending migrations are applied on startup unless AUTO_MIGRATE=false.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			logger := cfg.Log.NewLogger()

			srv, err := server.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			// Start blocks until SIGINT/SIGTERM.
			return srv.Start()
		},
	}
}
