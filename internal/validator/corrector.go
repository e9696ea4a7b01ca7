package validator

import (
	"regexp"
	"strconv"

	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Correction reasons
const (
	ReasonPriceReextracted = "price re-extracted from raw text"
	ReasonQuantityDefault  = "missing quantity defaulted to 1"
	ReasonNameNoise        = "noise symbols stripped from name"
)

var rawAmountPattern = regexp.MustCompile(`[¥$€]?\s*(\d[\d,]*(?:\.\d{1,2})?)\s*円?`)

// Corrector repairs items from what they already carry. It re-derives a
// missing price from the raw text, defaults a missing quantity to 1 and
// strips noise symbols around names. It never invents a name or a price.
type Corrector struct {
	logger logging.Logger
}

// NewCorrector returns a corrector logging to logger.
func NewCorrector(logger logging.Logger) *Corrector {
	return &Corrector{logger: logging.OrDefault(logger).WithField(logging.FieldComponent, "Corrector")}
}

// Correct returns corrected copies of items and one Correction per change.
// Running it on its own output changes nothing.
func (c *Corrector) Correct(items []models.ExtractedItem) ([]models.ExtractedItem, []models.Correction) {
	out := models.CloneItems(items)
	var corrections []models.Correction

	for idx := range out {
		item := &out[idx]

		if !item.HasPrice() {
			if price, ok := reextractPrice(item.RawText); ok {
				corrections = append(corrections, models.Correction{
					ItemIndex:  idx,
					Field:      "price",
					OldValue:   item.Price.String(),
					NewValue:   price.String(),
					Confidence: 0.7,
					Reason:     ReasonPriceReextracted,
				})
				item.Price = price
			}
		}

		if item.Quantity < 1 {
			corrections = append(corrections, models.Correction{
				ItemIndex:  idx,
				Field:      "quantity",
				OldValue:   strconv.Itoa(item.Quantity),
				NewValue:   "1",
				Confidence: 1,
				Reason:     ReasonQuantityDefault,
			})
			item.Quantity = 1
		}

		if trimmed := textutils.TrimNoise(item.Name); trimmed != item.Name && trimmed != "" {
			corrections = append(corrections, models.Correction{
				ItemIndex:  idx,
				Field:      "name",
				OldValue:   item.Name,
				NewValue:   trimmed,
				Confidence: 0.9,
				Reason:     ReasonNameNoise,
			})
			item.Name = trimmed
		}
	}

	for _, corr := range corrections {
		c.logger.Debug("Auto-corrected item",
			logging.F(logging.FieldField, corr.Field),
			logging.F("old_value", corr.OldValue),
			logging.F("new_value", corr.NewValue),
			logging.F(logging.FieldReason, corr.Reason))
	}
	return out, corrections
}

// Apply corrects result.Items and records the corrections in the metadata.
func (c *Corrector) Apply(result models.ParseResult) models.ParseResult {
	items, corrections := c.Correct(result.Items)
	out := result.WithItems(items)
	out.Metadata.Corrections = append(out.Metadata.Corrections, corrections...)
	return out
}

// reextractPrice returns the last positive amount of the raw text, which is
// where receipts print the line total.
func reextractPrice(raw string) (decimal.Decimal, bool) {
	matches := rawAmountPattern.FindAllStringSubmatch(textutils.Fold(raw), -1)
	for i := len(matches) - 1; i >= 0; i-- {
		amount, err := currencyutils.ParseAmount(matches[i][1])
		if err == nil && amount.IsPositive() {
			return amount, true
		}
	}
	return decimal.Zero, false
}
