package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/classifier"
	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
)

// SummaryRow is one processed file of a batch.
type SummaryRow struct {
	File       string
	Items      int
	Confidence float64
	PatternID  string
	DurationMS int64
	Err        string
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func (g *Generator) writeResultTable(w io.Writer, result models.ParseResult) error {
	table := newTable(w, "#", "Name", "Price", "Qty", "Category", "Confidence", "Pattern")

	total := decimal.Zero
	var currency models.Currency
	for idx, item := range result.Items {
		table.Append([]string{
			strconv.Itoa(idx + 1),
			item.Name,
			currencyutils.FormatAmount(item.Price, item.Currency),
			strconv.Itoa(item.Quantity),
			item.Category,
			formatConfidence(item.Confidence),
			item.SourcePattern,
		})
		total = total.Add(item.Price)
		if currency == "" {
			currency = item.Currency
		}
	}
	table.SetFooter([]string{"", "Total", currencyutils.FormatAmount(total, currency), "", "", formatConfidence(result.Confidence), ""})
	table.Render()

	status := "ok"
	if !result.Success {
		status = "no items found"
	}
	_, err := fmt.Fprintf(w, "%s, %s items, store %s, pattern %s, fallback %t, %s ms\n",
		status,
		humanize.Comma(int64(len(result.Items))),
		orDash(result.Metadata.StoreType),
		orDash(result.PatternID),
		result.Metadata.FallbackUsed,
		humanize.Comma(result.Metadata.ProcessingTimeMS))
	return err
}

// WritePatterns renders the catalog as a table.
func (g *Generator) WritePatterns(w io.Writer, patterns []catalog.PatternConfig) error {
	table := newTable(w, "ID", "Priority", "Confidence", "Enabled", "Stores", "Sub-patterns")
	for _, p := range patterns {
		types := make([]string, len(p.SubPatterns))
		for idx, sp := range p.SubPatterns {
			types[idx] = string(sp.Type)
		}
		table.Append([]string{
			p.ID,
			strconv.Itoa(p.Priority),
			formatConfidence(p.Confidence),
			strconv.FormatBool(p.Enabled),
			orDash(strings.Join(p.StoreIdentifiers, ",")),
			strings.Join(types, ","),
		})
	}
	table.Render()
	_, err := fmt.Fprintf(w, "%s patterns\n", humanize.Comma(int64(len(patterns))))
	return err
}

// WriteScores renders store classification scores, the winner first.
func (g *Generator) WriteScores(w io.Writer, scores []classifier.Score, winner string) error {
	table := newTable(w, "Store", "Score", "Keyword hits", "Structural")
	for _, s := range scores {
		table.Append([]string{
			s.StoreID,
			strconv.FormatFloat(s.Score, 'f', 1, 64),
			strconv.Itoa(s.KeywordHits),
			strconv.FormatBool(s.StructuralMatch),
		})
	}
	table.Render()
	_, err := fmt.Fprintf(w, "detected store: %s\n", orDash(winner))
	return err
}

// WriteSummary renders the per-file outcome of a batch run.
func (g *Generator) WriteSummary(w io.Writer, rows []SummaryRow) error {
	table := newTable(w, "File", "Items", "Confidence", "Pattern", "Time", "Error")
	items, failed := 0, 0
	for _, r := range rows {
		table.Append([]string{
			r.File,
			humanize.Comma(int64(r.Items)),
			formatConfidence(r.Confidence),
			orDash(r.PatternID),
			humanize.Comma(r.DurationMS) + " ms",
			r.Err,
		})
		items += r.Items
		if r.Err != "" || r.Items == 0 {
			failed++
		}
	}
	table.Render()
	_, err := fmt.Fprintf(w, "%s files, %s items, %s without items\n",
		humanize.Comma(int64(len(rows))),
		humanize.Comma(int64(items)),
		humanize.Comma(int64(failed)))
	return err
}

func formatConfidence(c float64) string {
	return strconv.FormatFloat(c, 'f', 2, 64)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
