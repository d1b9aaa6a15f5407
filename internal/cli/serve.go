package cli

import (
	"os/signal"
	"syscall"

	"github.com/koustreak/datamodeler/internal/app"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/spf13/cobra"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Start the HTTP API and block until interrupted.

The query executor defaults to the mock driver, which answers every query
with sample rows. Object storage is optional; without it the data source
and model archive endpoints report that storage is not configured.`,
		Example: `  # Local run with mock data and in-memory storage
  DATAMODELER_FILESTORE_PROVIDER=memory datamodeler serve

  # Against Postgres
  datamodeler serve --driver postgres --dsn postgres://localhost/shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, configFrom(ctx), logger.FromContext(ctx))
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(ctx)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("driver", "", "query driver (mock|postgres|mysql)")
	cmd.Flags().String("dsn", "", "database connection string")
	cmd.Flags().Duration("mock-delay", 0, "artificial latency of the mock driver")
	return cmd
}
