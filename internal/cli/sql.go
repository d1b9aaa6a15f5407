package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/export"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/sqlgen"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

func newSQLCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Generate SQL from a model or a query-builder form",
	}
	cmd.AddCommand(newSQLModelCommand())
	cmd.AddCommand(newSQLQueryCommand())
	return cmd
}

func newSQLModelCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "model <file>",
		Short: "Print the SELECT that joins every table on the canvas",
		Long: `Print the SELECT statement for a data model.

The file is either a bare model or an exported document, in JSON or YAML.
Use - to read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			m, err := decodeModel(data)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), sqlgen.ModelSQL(m.Tables, m.Relationships))
			return err
		},
	}
}

func newSQLQueryCommand() *cobra.Command {
	var (
		params  bool
		dialect string
	)

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Render a query-builder form as SQL",
		Long: `Render a query-builder form, in JSON or YAML, as SQL.

With --params the values become bind placeholders for --dialect and the
arguments are printed after the statement.`,
		Example: `  datamodeler sql query orders.yaml
  datamodeler sql query orders.json --params --dialect mysql`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			st, err := decodeState(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !params {
				sql, err := sqlgen.Render(st)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, sql)
				return err
			}

			d, err := sqlgen.ParseDialect(dialect)
			if err != nil {
				return err
			}
			q, err := sqlgen.Parameterized(st, d)
			if err != nil {
				return err
			}
			argsJSON, err := json.Marshal(q.Args)
			if err != nil {
				return errs.Wrap(errs.ErrKindUnknown, "encode args", err)
			}
			_, err = fmt.Fprintf(out, "%s\n-- args: %s\n", q.SQL, argsJSON)
			return err
		},
	}

	cmd.Flags().BoolVar(&params, "params", false, "bind values as placeholders")
	cmd.Flags().StringVar(&dialect, "dialect", "postgres", "placeholder dialect (postgres|mysql)")
	return cmd
}

// readInput reads a named file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindUnknown, "read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.Wrap(errs.ErrKindNotFound, "read "+name, err)
		}
		return nil, errs.Wrap(errs.ErrKindPermissionDenied, "read "+name, err)
	}
	return data, nil
}

func decodeModel(data []byte) (*model.Model, error) {
	doc, err := export.ReadDocument(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if doc.Model != nil {
		return doc.Model, nil
	}

	var m model.Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid model", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func decodeState(data []byte) (sqlgen.State, error) {
	var st sqlgen.State
	data = bytes.TrimSpace(data)
	var err error
	if len(data) > 0 && data[0] == '{' {
		err = json.Unmarshal(data, &st)
	} else {
		err = yaml.Unmarshal(data, &st)
	}
	if err != nil {
		return st, errs.Wrap(errs.ErrKindInvalidInput, "invalid query", err)
	}
	return st, nil
}
