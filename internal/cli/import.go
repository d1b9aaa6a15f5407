package cli

import (
	"encoding/json"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/koustreak/datamodeler/internal/datasource"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/logger"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func newImportCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Parse a CSV, TSV, JSON or XLSX file into a typed table",
		Long: `Parse a data source file the way an upload is parsed and print the
result. Column types are inferred from the cell values.

Output formats:
  json   table definition and rows (default)
  yaml   same as json, as YAML
  csv    rows only, re-encoded as CSV`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := datasource.ParseFile(args[0])
			if err != nil {
				return err
			}
			logger.FromContext(cmd.Context()).InfoWith("data source parsed", map[string]any{
				"table":   ds.Table.Name,
				"columns": len(ds.Table.Columns),
				"rows":    humanize.Comma(int64(len(ds.Rows))),
			})

			out := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "", "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(ds); err != nil {
					return errs.Wrap(errs.ErrKindUnknown, "encode json", err)
				}
				return nil
			case "yaml", "yml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(ds); err != nil {
					return errs.Wrap(errs.ErrKindUnknown, "encode yaml", err)
				}
				return enc.Close()
			case "csv":
				names := make([]string, len(ds.Table.Columns))
				for i, c := range ds.Table.Columns {
					names[i] = c.Name
				}
				return export.WriteCSV(out, names, ds.Rows)
			}
			return errs.Newf(errs.ErrKindInvalidInput, "unknown output format %q", output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "json", "output format (json|yaml|csv)")
	return cmd
}
