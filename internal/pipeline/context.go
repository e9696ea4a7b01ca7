// Package pipeline runs the staged line-item extraction over one receipt:
// exact catalog rules, flexible catalog rules, proximity heuristics and a
// last-resort fallback, keeping the best result and stopping early once a
// stage is confident enough.
package pipeline

import (
	"time"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Options control one pipeline run.
type Options struct {
	// ConfidenceThreshold is the minimum stage confidence to become the best result.
	ConfidenceThreshold float64
	// EarlyExitConfidence stops the pipeline once a stage reaches it.
	EarlyExitConfidence float64
	// MaxProcessingTime is checked before each stage; zero disables the budget.
	MaxProcessingTime time.Duration
	FallbackEnabled   bool
	// HeuristicWindow is how many lines below a name line a price may appear.
	HeuristicWindow  int
	HeuristicWeights HeuristicWeights
}

// DefaultOptions returns the standard pipeline settings.
func DefaultOptions() Options {
	return Options{
		ConfidenceThreshold: 0.3,
		EarlyExitConfidence: 0.8,
		MaxProcessingTime:   5 * time.Second,
		FallbackEnabled:     true,
		HeuristicWindow:     3,
		HeuristicWeights:    DefaultHeuristicWeights(),
	}
}

// AnalysisContext is the per-call state of one extraction. It is created for
// a single receipt and never shared.
type AnalysisContext struct {
	OriginalText string
	// Lines are the folded, non-blank candidate lines; summary lines such as
	// totals, tax and change are left out.
	Lines     []textutils.Line
	StoreType string
	Currency  models.Currency
	Options   Options
	Catalog   *catalog.Catalog
}

// NewAnalysisContext preprocesses text for a run against cat.
func NewAnalysisContext(text, storeType string, opts Options, cat *catalog.Catalog) *AnalysisContext {
	all := textutils.SplitLines(text)
	lines := make([]textutils.Line, 0, len(all))
	for _, l := range all {
		if !textutils.IsSummaryLine(l.Text) {
			lines = append(lines, l)
		}
	}
	return &AnalysisContext{
		OriginalText: text,
		Lines:        lines,
		StoreType:    storeType,
		Currency:     currencyutils.DetectCurrency(text),
		Options:      opts,
		Catalog:      cat,
	}
}

// texts returns the candidate line texts.
func (a *AnalysisContext) texts() []string {
	return textutils.Texts(a.Lines)
}

// span returns the original line numbers and texts at the given positions.
func (a *AnalysisContext) span(positions []int) ([]int, []string) {
	numbers := make([]int, 0, len(positions))
	texts := make([]string, 0, len(positions))
	for _, pos := range positions {
		numbers = append(numbers, a.Lines[pos].Number)
		texts = append(texts, a.Lines[pos].Text)
	}
	return numbers, texts
}
