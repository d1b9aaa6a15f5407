// Package cli provides the datamodeler command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/koustreak/datamodeler/internal/app"
	"github.com/koustreak/datamodeler/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

type configKey struct{}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "datamodeler",
		Short: "Data modeling dashboard backend",
		Long: `datamodeler serves the data-modeling dashboard API: formula evaluation,
SQL generation from the model canvas and query builder, data source
import, and model export.

The subcommands expose the same engines offline for scripting.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			log := app.NewLogger(cfg)

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = context.WithValue(ctx, configKey{}, cfg)
			cmd.SetContext(log.WithContext(ctx))
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./"+config.DefaultFile+" when present)")
	root.PersistentFlags().String("log-level", "", "log level (debug|info|warn|error)")
	root.PersistentFlags().String("log-format", "", "log format (json|console)")

	root.AddCommand(newServeCommand())
	root.AddCommand(newEvalCommand())
	root.AddCommand(newSQLCommand())
	root.AddCommand(newImportCommand())
	root.AddCommand(newIntrospectCommand())
	root.AddCommand(newVersionCommand())
	return root
}

// Execute runs the root command and reports any error on stderr.
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// configFrom returns the config loaded for this invocation, or defaults
// when the command ran without the root pre-run.
func configFrom(ctx context.Context) *config.Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
			return c
		}
	}
	return config.Default()
}
