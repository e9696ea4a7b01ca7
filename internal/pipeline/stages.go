package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Stage names a pipeline stage.
type Stage string

// Stages in execution order
const (
	StageExact     Stage = "exact"
	StageFlexible  Stage = "flexible"
	StageHeuristic Stage = "heuristic"
	StageFallback  Stage = "fallback"
)

// Stage tuning constants
const (
	// ExactMinConfidence is the lowest rule confidence used by the exact stage.
	ExactMinConfidence = 0.8
	// FlexibleMinConfidence is the lowest rule confidence used by the flexible stage.
	FlexibleMinConfidence = 0.5
	// FlexibleScale discounts items found by flexible rules.
	FlexibleScale = 0.9
	// FallbackConfidence is the fixed confidence of fallback items.
	FallbackConfidence = 0.3
)

// stageResult is what one stage produced.
type stageResult struct {
	stage      Stage
	items      []models.ExtractedItem
	patternID  string
	confidence float64
}

func newStageResult(stage Stage, items []models.ExtractedItem, patternID string) stageResult {
	return stageResult{
		stage:      stage,
		items:      items,
		patternID:  patternID,
		confidence: models.MeanConfidence(items),
	}
}

// ruleMatch pairs a catalog match with the rule that produced it.
type ruleMatch struct {
	rule  *catalog.Rule
	match catalog.Match
}

// runRules applies rules to the context lines. Multi-line rules run first and
// the lines they consume are not reused; then every remaining line is offered
// to the single-line and context rules in priority order, first match wins.
func runRules(actx *AnalysisContext, stage Stage, rules []*catalog.Rule, scale float64) stageResult {
	lines := actx.texts()
	consumed := make([]bool, len(lines))
	var matches []ruleMatch

	claim := func(rule *catalog.Rule, m catalog.Match) bool {
		for _, p := range m.Positions {
			if consumed[p] {
				return false
			}
		}
		for _, p := range m.Positions {
			consumed[p] = true
		}
		matches = append(matches, ruleMatch{rule: rule, match: m})
		return true
	}

	for _, rule := range rules {
		if !rule.HasMultiLine() {
			continue
		}
		for pos := 0; pos < len(lines); pos++ {
			if consumed[pos] {
				continue
			}
			if m, ok := rule.MatchAt(lines, pos, true); ok && claim(rule, m) {
				pos = m.Positions[len(m.Positions)-1]
			}
		}
	}

	for pos := 0; pos < len(lines); pos++ {
		if consumed[pos] {
			continue
		}
		for _, rule := range rules {
			if m, ok := rule.MatchAt(lines, pos, false); ok && claim(rule, m) {
				break
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].match.Positions[0] < matches[j].match.Positions[0]
	})

	items := make([]models.ExtractedItem, 0, len(matches))
	counts := map[string]int{}
	for _, rm := range matches {
		if rm.match.Captures.IsAdjustment() {
			applyDiscount(items, rm.match.Captures.Discount)
			continue
		}
		item, ok := buildItem(actx, rm, scale)
		if !ok {
			continue
		}
		items = append(items, item)
		counts[rm.rule.ID()]++
	}

	return newStageResult(stage, items, dominantRule(rules, counts))
}

// dominantRule returns the id of the rule that produced the most items,
// preferring the higher priority rule on ties.
func dominantRule(rules []*catalog.Rule, counts map[string]int) string {
	best, bestCount := "", 0
	for _, rule := range rules {
		if n := counts[rule.ID()]; n > bestCount {
			best, bestCount = rule.ID(), n
		}
	}
	return best
}

// applyDiscount attaches a discount to the last item, which is the nearest
// item above the discount line.
func applyDiscount(items []models.ExtractedItem, raw string) {
	if len(items) == 0 {
		return
	}
	amount, err := currencyutils.ParseAmount(raw)
	if err != nil || !amount.IsPositive() {
		return
	}
	last := &items[len(items)-1]
	if last.Metadata.Discount != nil {
		amount = amount.Add(*last.Metadata.Discount)
	}
	last.Metadata.Discount = &amount
}

func buildItem(actx *AnalysisContext, rm ruleMatch, scale float64) (models.ExtractedItem, bool) {
	c := rm.match.Captures
	if textutils.IsDiscountName(c.Name) {
		return models.ExtractedItem{}, false
	}
	price, err := currencyutils.ParseAmount(c.Price)
	if err != nil {
		return models.ExtractedItem{}, false
	}

	numbers, texts := actx.span(rm.match.Positions)
	raw := strings.Join(texts, "\n")

	meta := models.ItemMetadata{
		TaxCode:       c.TaxCode,
		ProductCode:   c.ProductCode,
		UnitPrice:     optionalAmount(c.UnitPrice),
		Discount:      optionalAmount(c.Discount),
		StoreSpecific: rm.rule.IsStoreSpecific(),
	}

	item, err := models.NewItemBuilder().
		WithName(c.Name).
		WithPrice(price, itemCurrency(actx, raw)).
		WithQuantity(parseQuantity(c.Quantity)).
		WithConfidence(models.ClampConfidence(rm.rule.Confidence() * scale)).
		FromSource(rm.rule.ID()).
		WithLines(numbers, texts).
		WithMetadata(meta).
		Build()
	if err != nil {
		return models.ExtractedItem{}, false
	}
	return item, true
}

// itemCurrency prefers a currency marker on the item's own lines and falls
// back to the currency of the whole receipt.
func itemCurrency(actx *AnalysisContext, raw string) models.Currency {
	if c := currencyutils.DetectCurrency(raw); c != models.DefaultCurrency {
		return c
	}
	if actx.Currency != "" {
		return actx.Currency
	}
	return models.DefaultCurrency
}

func optionalAmount(raw string) *decimal.Decimal {
	if raw == "" {
		return nil
	}
	amount, err := currencyutils.ParseAmount(raw)
	if err != nil {
		return nil
	}
	return &amount
}

var quantityDigits = regexp.MustCompile(`\d+`)

// parseQuantity reads the first integer of raw, defaulting to 1.
func parseQuantity(raw string) int {
	digits := quantityDigits.FindString(textutils.Fold(raw))
	if digits == "" {
		return 1
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// exactStage runs rules confident enough to be trusted as printed.
func exactStage(actx *AnalysisContext) stageResult {
	return runRules(actx, StageExact, selectRules(actx, ExactMinConfidence, 1.01), 1)
}

// flexibleStage runs the looser rules and scales their confidence down.
func flexibleStage(actx *AnalysisContext) stageResult {
	return runRules(actx, StageFlexible, selectRules(actx, FlexibleMinConfidence, ExactMinConfidence), FlexibleScale)
}

// selectRules returns the applicable rules with confidence in [lower, upper).
func selectRules(actx *AnalysisContext, lower, upper float64) []*catalog.Rule {
	if actx.Catalog == nil {
		return nil
	}
	var out []*catalog.Rule
	for _, rule := range actx.Catalog.Applicable(actx.StoreType) {
		if c := rule.Confidence(); c >= lower && c < upper {
			out = append(out, rule)
		}
	}
	return out
}

var fallbackPattern = regexp.MustCompile(`^(.*\S)\s+[¥$€]?([\d,]+(?:\.\d{1,2})?)\s*円?\s*[A-Z※*軽]?$`)

// fallbackStage matches a generic "name, whitespace, number" shape on every
// line independently.
func fallbackStage(actx *AnalysisContext) stageResult {
	items := []models.ExtractedItem{}
	for _, line := range actx.Lines {
		sm := fallbackPattern.FindStringSubmatch(line.Text)
		if sm == nil || textutils.IsDiscountName(sm[1]) {
			continue
		}
		price, err := currencyutils.ParseAmount(sm[2])
		if err != nil || !price.IsPositive() {
			continue
		}
		item, err := models.NewItemBuilder().
			WithName(sm[1]).
			WithPrice(price, itemCurrency(actx, line.Text)).
			WithConfidence(FallbackConfidence).
			FromSource(string(StageFallback)).
			WithLines([]int{line.Number}, []string{line.Text}).
			Build()
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return newStageResult(StageFallback, items, string(StageFallback))
}
