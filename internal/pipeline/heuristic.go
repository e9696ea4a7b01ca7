package pipeline

import (
	"regexp"

	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// HeuristicWeights score a name line paired with a nearby price line.
type HeuristicWeights struct {
	// Digits is added when the price text contains digits.
	Digits float64
	// Bounds is added when the price lies within the plausible range of its currency.
	Bounds float64
	// Letters is added when the name contains letters of any script.
	Letters float64
	// Length is added when the name length lies in [MinNameLength, MaxNameLength].
	Length        float64
	MinNameLength int
	MaxNameLength int
	// MinScore is the lowest score for which a candidate becomes an item.
	MinScore float64
}

// DefaultHeuristicWeights returns the standard weights.
func DefaultHeuristicWeights() HeuristicWeights {
	return HeuristicWeights{
		Digits:        0.3,
		Bounds:        0.2,
		Letters:       0.3,
		Length:        0.2,
		MinNameLength: 2,
		MaxNameLength: 50,
		MinScore:      0.5,
	}
}

// ScoreCandidate scores a name and price pair in [0,1].
//
//	"Widget" + "¥500"  → 0.3 + 0.2 + 0.3 + 0.2 = 1.0
//	"Widget" + "¥5"    → 0.3 + 0.3 + 0.2       = 0.8 (below ¥10)
//	"12345"  + "¥500"  → 0.3 + 0.2 + 0.2       = 0.7 (no letters)
//	"X"      + "¥500"  → 0.3 + 0.2 + 0.3       = 0.8 (too short)
func ScoreCandidate(w HeuristicWeights, name, priceText string, price decimal.Decimal, currency models.Currency) float64 {
	score := 0.0
	if textutils.HasDigit(priceText) {
		score += w.Digits
	}
	if currencyutils.IsPlausiblePrice(price, currency) {
		score += w.Bounds
	}
	if textutils.HasLetter(name) {
		score += w.Letters
	}
	if n := textutils.RuneLen(name); n >= w.MinNameLength && n <= w.MaxNameLength {
		score += w.Length
	}
	return models.ClampConfidence(score)
}

var priceLinePattern = regexp.MustCompile(`^[¥$€]?\s*([\d,]+(?:\.\d{1,2})?)\s*円?\s*[A-Z※*軽]?$`)

// heuristicStage pairs each lettered line with the first price-only line
// within the window below it. Paired lines are not reused.
func heuristicStage(actx *AnalysisContext) stageResult {
	opts := actx.Options
	window := opts.HeuristicWindow
	if window < 1 {
		window = 1
	}

	items := []models.ExtractedItem{}
	for i := 0; i < len(actx.Lines); i++ {
		name := actx.Lines[i].Text
		if !textutils.HasLetter(name) || priceLinePattern.MatchString(name) || textutils.IsDiscountName(name) {
			continue
		}

		for j := i + 1; j <= i+window && j < len(actx.Lines); j++ {
			priceText := actx.Lines[j].Text
			sm := priceLinePattern.FindStringSubmatch(priceText)
			if sm == nil {
				if textutils.HasLetter(priceText) {
					break
				}
				continue
			}
			price, err := currencyutils.ParseAmount(sm[1])
			if err != nil || !price.IsPositive() {
				continue
			}

			currency := itemCurrency(actx, name+"\n"+priceText)
			score := ScoreCandidate(opts.HeuristicWeights, name, priceText, price, currency)
			if score < opts.HeuristicWeights.MinScore {
				break
			}

			numbers, texts := actx.span([]int{i, j})
			item, err := models.NewItemBuilder().
				WithName(textutils.TrimNoise(name)).
				WithPrice(price, currency).
				WithConfidence(score).
				FromSource(string(StageHeuristic)).
				WithLines(numbers, texts).
				Build()
			if err == nil {
				items = append(items, item)
				i = j
			}
			break
		}
	}
	return newStageResult(StageHeuristic, items, string(StageHeuristic))
}
