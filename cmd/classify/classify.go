// Package classify handles store detection commands
package classify

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/classifier"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/report"
)

// Classification is the machine-readable output of the classify command.
type Classification struct {
	Store     string             `json:"store"`
	Threshold float64            `json:"threshold"`
	Scores    []classifier.Score `json:"scores"`
}

// Cmd represents the classify command
var Cmd = &cobra.Command{
	Use:   "classify [file]",
	Short: "Detect which store issued a receipt",
	Long: `Score the receipt text against every known store signature and report the
detected store. An empty store means no signature reached the threshold.

Example:
  receipt-extract classify receipt.txt --format table`,
	Args: cobra.MaximumNArgs(1),
	RunE: classifyFunc,
}

func classifyFunc(cmd *cobra.Command, args []string) error {
	input := root.SharedFlags.Input
	if len(args) == 1 {
		input = args[0]
	}
	logger := root.GetLogrusAdapter().WithField(logging.FieldInputFile, input)

	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	if format == report.FormatCSV {
		return fmt.Errorf("classify supports json, yaml and table output")
	}
	text, err := common.ReadInput(cmd, input)
	if err != nil {
		return err
	}

	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	cls := c.GetClassifier()
	out := Classification{
		Store:     cls.Classify(text),
		Threshold: cls.Threshold(),
		Scores:    cls.Scores(text),
	}
	logger.Debug("Receipt classified", logging.F(logging.FieldStoreType, out.Store))

	return common.WriteOutput(cmd, root.SharedFlags.Output, logger, func(w io.Writer) error {
		if format == report.FormatTable {
			return c.GetReportGenerator().WriteScores(w, out.Scores, out.Store)
		}
		return c.GetReportGenerator().WriteValue(w, out, format)
	})
}
