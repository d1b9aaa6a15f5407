package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/formula"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/spf13/cobra"
)

func newEvalCommand() *cobra.Command {
	var (
		rowJSON string
		strict  bool
	)

	cmd := &cobra.Command{
		Use:   "eval <formula>",
		Short: "Evaluate a formula against one row",
		Long: `Evaluate a spreadsheet-style formula the way a grid cell would.

A formula that cannot be evaluated prints #ERROR. With --strict the parse
error is reported instead and the command fails.`,
		Example: `  datamodeler eval '[price] * [qty]' --row '{"price": 2.5, "qty": 4}'
  datamodeler eval 'CONCAT(UPPER([name]), "!")' --row '{"name": "ada"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			row := model.Row{}
			if rowJSON != "" {
				if err := json.Unmarshal([]byte(rowJSON), &row); err != nil {
					return errs.Wrap(errs.ErrKindInvalidInput, "invalid --row", err)
				}
			}
			if strict {
				if _, err := formula.Compile(args[0]); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), resultText(formula.Evaluate(args[0], row, nil)))
			return err
		},
	}

	cmd.Flags().StringVar(&rowJSON, "row", "", "row as a JSON object keyed by column name")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail on formulas that do not parse")
	return cmd
}

func resultText(v any) string {
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
