// Package validator checks extracted items against a priority-ordered rule
// set, adjusts their confidence and drops the ones that cannot be trusted.
// It also carries the deterministic auto-corrector run before validation.
package validator

import (
	"sort"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/parsererror"
)

// Global pass limits
const (
	// MaxItems is the largest plausible number of items on one receipt.
	MaxItems = 100
	// MinPriceCoverage is the lowest acceptable share of items carrying a price.
	MinPriceCoverage = 0.5
)

// ItemReport is the validation verdict of one item.
type ItemReport struct {
	Index       int
	Valid       bool
	Confidence  float64
	Issues      []models.ValidationIssue
	Suggestions []string
}

// Report is the verdict over a whole item list.
type Report struct {
	Items []ItemReport
	// Global holds findings about the list as a whole; their ItemIndex is -1.
	Global []models.ValidationIssue
	// GlobalAdjustment multiplies the confidence of every item.
	GlobalAdjustment float64
}

// Issues returns every finding, item and global, in order.
func (r Report) Issues() []models.ValidationIssue {
	var out []models.ValidationIssue
	for _, item := range r.Items {
		out = append(out, item.Issues...)
	}
	return append(out, r.Global...)
}

// ValidCount returns the number of items that passed.
func (r Report) ValidCount() int {
	n := 0
	for _, item := range r.Items {
		if item.Valid {
			n++
		}
	}
	return n
}

// Validator runs item rules then the global pass.
type Validator struct {
	rules  []ItemRule
	logger logging.Logger
}

// New returns a validator with the default rules.
func New(logger logging.Logger) *Validator {
	return NewWithRules(logger, DefaultRules()...)
}

// NewWithRules returns a validator running rules in priority order.
func NewWithRules(logger logging.Logger, rules ...ItemRule) *Validator {
	sorted := append([]ItemRule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() > sorted[j].Priority()
	})
	return &Validator{
		rules:  sorted,
		logger: logging.OrDefault(logger).WithField(logging.FieldComponent, "Validator"),
	}
}

// Validate checks items without modifying them. Adjustments multiply across
// rules and the global pass, and the resulting confidence stays in [0,1].
func (v *Validator) Validate(items []models.ExtractedItem) Report {
	global, globalAdjustment := globalPass(items)
	report := Report{
		Items:            make([]ItemReport, len(items)),
		Global:           global,
		GlobalAdjustment: globalAdjustment,
	}

	for idx, item := range items {
		ir := ItemReport{Index: idx, Valid: true}
		adjustment := 1.0
		for _, rule := range v.rules {
			out := rule.Check(idx, item, items)
			if !out.Valid {
				ir.Valid = false
			}
			adjustment *= out.Adjustment
			ir.Issues = append(ir.Issues, out.Issues...)
			ir.Suggestions = append(ir.Suggestions, out.Suggestions...)
		}
		if ir.Valid {
			ir.Confidence = models.ClampConfidence(item.Confidence * adjustment * report.GlobalAdjustment)
		}
		report.Items[idx] = ir
	}
	return report
}

// globalPass checks the item count and the share of items with a price.
func globalPass(items []models.ExtractedItem) ([]models.ValidationIssue, float64) {
	var issues []models.ValidationIssue
	adjustment := 1.0
	if len(items) == 0 {
		return nil, adjustment
	}

	if len(items) > MaxItems {
		issues = append(issues, models.ValidationIssue{
			Rule:      RuleItemCount,
			Severity:  models.SeverityWarning,
			Message:   "more items than a single receipt plausibly holds",
			ItemIndex: -1,
		})
		adjustment *= 0.8
	}

	priced := 0
	for _, item := range items {
		if item.HasPrice() {
			priced++
		}
	}
	if coverage := float64(priced) / float64(len(items)); coverage < MinPriceCoverage {
		issues = append(issues, models.ValidationIssue{
			Rule:      RuleCoverage,
			Severity:  models.SeverityWarning,
			Field:     "price",
			Message:   "fewer than half of the items carry a price",
			ItemIndex: -1,
		})
		adjustment *= 0.9
	}
	return issues, adjustment
}

// Apply validates result.Items and returns a copy holding only the valid
// items with adjusted confidence. The findings are appended to the metadata.
func (v *Validator) Apply(result models.ParseResult) models.ParseResult {
	report := v.Validate(result.Items)

	kept := make([]models.ExtractedItem, 0, len(result.Items))
	for idx, item := range result.Items {
		ir := report.Items[idx]
		if !ir.Valid {
			failure := &parsererror.ValidationFailure{Item: item.Name, Issues: messages(ir.Issues)}
			v.logger.WithError(failure).Debug("Dropping invalid item",
				logging.F(logging.FieldPatternID, item.SourcePattern))
			continue
		}
		item = item.Clone()
		item.Confidence = ir.Confidence
		kept = append(kept, item)
	}

	out := result.WithItems(kept)
	out.Metadata.ValidationIssues = append(out.Metadata.ValidationIssues, report.Issues()...)
	if dropped := len(result.Items) - len(kept); dropped > 0 {
		v.logger.Info("Validation excluded items",
			logging.F(logging.FieldCount, dropped))
	}
	return out
}

func messages(issues []models.ValidationIssue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Severity == models.SeverityError {
			out = append(out, issue.Message)
		}
	}
	return out
}
