// Package categorize handles item categorization commands
package categorize

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/report"
)

var (
	// Learn, when set, stores the product name under this category.
	Learn string
	// RawText is optional receipt text the keyword strategy also scans.
	RawText string
)

// Attempt is one strategy outcome in the command output.
type Attempt struct {
	Strategy string `json:"strategy" yaml:"strategy"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Found    bool   `json:"found" yaml:"found"`
	Error    string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Categorization is the machine-readable output of the categorize command.
type Categorization struct {
	Product  string    `json:"product" yaml:"product"`
	Category string    `json:"category" yaml:"category"`
	Attempts []Attempt `json:"attempts" yaml:"attempts"`
}

// Cmd represents the categorize command
var Cmd = &cobra.Command{
	Use:   "categorize <product>",
	Short: "Categorize a product name",
	Long: `Categorize a product name using the direct mappings of the categories file,
then the keyword tables. With --learn the name is stored under the given
category so later extractions reuse it.

Example:
  receipt-extract categorize "Organic milk 1L"
  receipt-extract categorize "Oat drink" --learn beverage`,
	Args: cobra.ExactArgs(1),
	RunE: categorizeFunc,
}

func init() {
	Cmd.Flags().StringVarP(&Learn, "learn", "l", "", "Store the product under this category")
	Cmd.Flags().StringVarP(&RawText, "raw", "r", "", "Receipt line the product came from (optional)")
}

func categorizeFunc(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("product name is required")
	}
	logger := root.GetLogrusAdapter()

	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}
	categ := c.GetCategorizer()

	if Learn != "" {
		if err := categ.LearnMapping(name, Learn); err != nil {
			return err
		}
		if err := categ.SaveMappings(); err != nil {
			return err
		}
		logger.Info("Product mapping learned",
			logging.F("product", name),
			logging.F("category", Learn))
	}

	results := categ.Evaluate(common.Context(cmd), categorizer.Product{Name: name, RawText: RawText})
	category, _ := results.GetBestResult()
	logger.Debug("Product categorized",
		logging.F("product", name),
		logging.F("strategies", results.Summary()))

	out := Categorization{Product: name, Category: category}
	for _, r := range results.Results {
		a := Attempt{Strategy: r.Strategy, Category: r.Category, Found: r.Found}
		if r.Error != nil {
			a.Error = r.Error.Error()
		}
		out.Attempts = append(out.Attempts, a)
	}

	return common.WriteOutput(cmd, root.SharedFlags.Output, logger, func(w io.Writer) error {
		switch format {
		case report.FormatTable, report.FormatCSV:
			_, err := fmt.Fprintf(w, "%s: %s\n", out.Product, out.Category)
			return err
		default:
			return c.GetReportGenerator().WriteValue(w, out, format)
		}
	})
}
