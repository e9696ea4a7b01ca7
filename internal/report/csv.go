package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"

	"fjacquet/receipt-extract/internal/models"
)

// ItemRow is the CSV form of an extracted item.
type ItemRow struct {
	Name          string `csv:"name"`
	Price         string `csv:"price"`
	Quantity      int    `csv:"quantity"`
	Currency      string `csv:"currency"`
	Category      string `csv:"category"`
	Confidence    string `csv:"confidence"`
	SourcePattern string `csv:"source_pattern"`
	LineNumbers   string `csv:"line_numbers"`
	ProductCode   string `csv:"product_code"`
	TaxCode       string `csv:"tax_code"`
}

// NewItemRow flattens item. Prices carry the minor-unit precision of their
// currency and line numbers are joined with spaces.
func NewItemRow(item models.ExtractedItem) ItemRow {
	lines := make([]string, len(item.LineNumbers))
	for idx, n := range item.LineNumbers {
		lines[idx] = strconv.Itoa(n)
	}
	return ItemRow{
		Name:          item.Name,
		Price:         item.Price.StringFixed(item.Currency.DecimalPlaces()),
		Quantity:      item.Quantity,
		Currency:      string(item.Currency),
		Category:      item.Category,
		Confidence:    strconv.FormatFloat(item.Confidence, 'f', 3, 64),
		SourcePattern: item.SourcePattern,
		LineNumbers:   strings.Join(lines, " "),
		ProductCode:   item.Metadata.ProductCode,
		TaxCode:       item.Metadata.TaxCode,
	}
}

// WriteItemsCSV writes items as CSV with a header row, using the generator's
// delimiter.
func (g *Generator) WriteItemsCSV(w io.Writer, items []models.ExtractedItem) error {
	rows := make([]ItemRow, len(items))
	for idx, item := range items {
		rows[idx] = NewItemRow(item)
	}

	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = g.delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		g.logger.WithError(err).Error("Failed to marshal items to CSV")
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
