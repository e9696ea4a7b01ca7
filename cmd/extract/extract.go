// Package extract handles single receipt extraction
package extract

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/container"
	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// HintFile is the path of pre-segmented items used as the external source
var HintFile string

// Cmd represents the extract command
var Cmd = &cobra.Command{
	Use:   "extract [file]",
	Short: "Extract line items from one receipt",
	Long: `Extract line items from the OCR text of one receipt.

The text is read from the file argument, the --input flag or standard input.
With --hint, items segmented ahead of time are treated as an external extraction
and combined with the pattern engine result.

Example:
  receipt-extract extract receipt.txt --format table
  cat receipt.txt | receipt-extract extract -f csv -o items.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: extractFunc,
}

func init() {
	Cmd.Flags().StringVar(&HintFile, "hint", "", "YAML or JSON file of pre-segmented items")
}

func extractFunc(cmd *cobra.Command, args []string) error {
	input := root.SharedFlags.Input
	if len(args) == 1 {
		input = args[0]
	}
	logger := root.GetLogrusAdapter().WithField(logging.FieldInputFile, input)

	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	text, err := common.ReadInput(cmd, input)
	if err != nil {
		return err
	}

	c := root.GetContainer()
	if HintFile != "" {
		hint, err := docai.LoadStaticExtractor(HintFile)
		if err != nil {
			return err
		}
		c, err = root.NewContainer(container.WithExtractor(hint))
		if err != nil {
			return err
		}
		defer func() {
			if cerr := c.Close(); cerr != nil {
				logger.WithError(cerr).Warn("Failed to close container")
			}
		}()
	}
	if c == nil {
		return fmt.Errorf("container not initialized")
	}

	result := run(cmd, c, text)
	logger.Info("Receipt extracted",
		logging.F(logging.FieldCount, len(result.Items)),
		logging.F(logging.FieldPatternID, result.PatternID))

	return common.WriteOutput(cmd, root.SharedFlags.Output, logger, func(w io.Writer) error {
		return c.GetReportGenerator().WriteResult(w, result, format)
	})
}

func run(cmd *cobra.Command, c *container.Container, text string) models.ParseResult {
	svc := c.GetService()
	if svc.HybridEnabled() {
		return svc.ExtractHybrid(common.Context(cmd), text)
	}
	return svc.Extract(common.Context(cmd), text)
}
