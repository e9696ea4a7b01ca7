// Package optimizer cleans up the items of a result: it normalizes names,
// rounds prices to the currency, merges duplicates, fills in categories and
// re-scores and ranks what is left.
package optimizer

import (
	"context"
	"sort"

	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/normalizer"
	"fjacquet/receipt-extract/internal/textutils"
)

// Confidence multipliers applied by Rescore
const (
	PriceTooLowFactor   = 0.6
	PriceTooHighFactor  = 0.5
	DigitsOnlyFactor    = 0.2
	SymbolsOnlyFactor   = 0.1
	ShortNameFactor     = 0.5
	FallbackFactor      = 0.8
	StoreSpecificFactor = 1.1
)

// FallbackSource is the source pattern of fallback stage items.
const FallbackSource = "fallback"

// Optimizer runs the post-extraction clean-up.
type Optimizer struct {
	normalizer  *normalizer.Normalizer
	categorizer *categorizer.Categorizer
	logger      logging.Logger
}

// New returns an optimizer. A nil normalizer uses the default tables and a
// nil categorizer leaves categories untouched.
func New(n *normalizer.Normalizer, c *categorizer.Categorizer, logger logging.Logger) *Optimizer {
	if n == nil {
		n = normalizer.New()
	}
	return &Optimizer{
		normalizer:  n,
		categorizer: c,
		logger:      logging.OrDefault(logger).WithField(logging.FieldComponent, "Optimizer"),
	}
}

// Optimize returns the cleaned up, re-scored and ranked copy of items.
func (o *Optimizer) Optimize(ctx context.Context, items []models.ExtractedItem) []models.ExtractedItem {
	out := models.CloneItems(items)
	for idx := range out {
		out[idx].Name = o.normalizer.Name(out[idx].Name)
		roundAmounts(&out[idx])
	}

	before := len(out)
	out = Dedup(out)
	if merged := before - len(out); merged > 0 {
		o.logger.Debug("Merged duplicate items", logging.F(logging.FieldCount, merged))
	}

	for idx := range out {
		if o.categorizer != nil {
			out[idx] = o.categorizer.Backfill(ctx, out[idx])
		}
		out[idx].Confidence = Rescore(out[idx])
	}
	Rank(out)
	return out
}

// Apply optimizes result.Items and returns the updated copy.
func (o *Optimizer) Apply(ctx context.Context, result models.ParseResult) models.ParseResult {
	return result.WithItems(o.Optimize(ctx, result.Items))
}

func roundAmounts(item *models.ExtractedItem) {
	if item.Currency == "" {
		item.Currency = models.DefaultCurrency
	}
	item.Price = currencyutils.Round(item.Price, item.Currency)
	if p := item.Metadata.UnitPrice; p != nil {
		rounded := currencyutils.Round(*p, item.Currency)
		item.Metadata.UnitPrice = &rounded
	}
	if p := item.Metadata.Discount; p != nil {
		rounded := currencyutils.Round(*p, item.Currency)
		item.Metadata.Discount = &rounded
	}
}

// Rescore returns the item confidence after the plausibility and source
// multipliers, clamped to [0,1].
func Rescore(item models.ExtractedItem) float64 {
	c := item.Confidence

	lower, upper := currencyutils.PriceBounds(item.Currency)
	switch {
	case item.Price.LessThan(lower):
		c *= PriceTooLowFactor
	case item.Price.GreaterThan(upper):
		c *= PriceTooHighFactor
	}

	switch {
	case textutils.IsDigitsOnly(item.Name):
		c *= DigitsOnlyFactor
	case textutils.IsSymbolsOnly(item.Name):
		c *= SymbolsOnlyFactor
	case textutils.RuneLen(item.Name) < 2:
		c *= ShortNameFactor
	}

	switch {
	case item.SourcePattern == FallbackSource:
		c *= FallbackFactor
	case item.Metadata.StoreSpecific:
		c *= StoreSpecificFactor
	}
	return models.ClampConfidence(c)
}

// Rank sorts items by confidence descending, then first line ascending, then
// name.
func Rank(items []models.ExtractedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Confidence != items[j].Confidence {
			return items[i].Confidence > items[j].Confidence
		}
		if li, lj := items[i].FirstLine(), items[j].FirstLine(); li != lj {
			return li < lj
		}
		return items[i].Name < items[j].Name
	})
}
