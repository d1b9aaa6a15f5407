package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/database/connect"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/sqlgen"
	"github.com/spf13/cobra"
)

func newIntrospectCommand() *cobra.Command {
	var (
		name   string
		output string
	)

	cmd := &cobra.Command{
		Use:   "introspect",
		Short: "Build a data model from a live database schema",
		Long: `Read the tables, columns and foreign keys of a Postgres or MySQL database
and print them as a data model document, or as the SELECT joining them.`,
		Example: `  datamodeler introspect --driver postgres --dsn postgres://localhost/shop
  datamodeler introspect --driver mysql --dsn 'root:pw@tcp(localhost:3306)/shop' -o sql`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := configFrom(ctx)
			if err := cfg.Database.Validate(); err != nil {
				return err
			}
			if d, _ := database.ParseDriver(string(cfg.Database.Driver)); d == database.DriverMock {
				return errs.New(errs.ErrKindInvalidInput, "introspect needs a postgres or mysql --driver")
			}

			conn, err := connect.Open(ctx, &cfg.Database, logger.FromContext(ctx))
			if err != nil {
				return err
			}
			defer conn.Close()

			tables, rels, err := database.Introspect(ctx, conn.DB)
			if err != nil {
				return err
			}
			m := &model.Model{Name: name, Tables: tables, Relationships: rels}

			out := cmd.OutOrStdout()
			if strings.EqualFold(output, "sql") {
				_, err := fmt.Fprintln(out, sqlgen.ModelSQL(m.Tables, m.Relationships))
				return err
			}
			enc, err := export.ParseEncoding(output)
			if err != nil {
				return err
			}
			return export.WriteDocument(out, export.NewDocument("model", m, time.Now()), enc)
		},
	}

	cmd.Flags().String("driver", "", "database driver (postgres|mysql)")
	cmd.Flags().String("dsn", "", "database connection string")
	cmd.Flags().StringVar(&name, "name", "Introspected", "model name")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json|yaml|sql)")
	return cmd
}
