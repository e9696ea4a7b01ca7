package validator

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Rule names
const (
	RulePrice       = "price"
	RuleName        = "name"
	RuleQuantity    = "quantity"
	RuleConsistency = "consistency"
	RuleDuplicate   = "duplicate"
	RuleItemCount   = "item_count"
	RuleCoverage    = "price_coverage"
)

// Outcome is what one rule reports about one item. Adjustment multiplies the
// item confidence; 1 leaves it unchanged.
type Outcome struct {
	Valid       bool
	Adjustment  float64
	Issues      []models.ValidationIssue
	Suggestions []string
}

func pass() Outcome {
	return Outcome{Valid: true, Adjustment: 1}
}

// add records an issue. Error issues invalidate the item; the others only
// scale its confidence by factor.
func (o *Outcome) add(rule string, sev models.Severity, field string, factor float64, idx int, format string, args ...interface{}) {
	o.Issues = append(o.Issues, models.ValidationIssue{
		Rule:      rule,
		Severity:  sev,
		Field:     field,
		Message:   fmt.Sprintf(format, args...),
		ItemIndex: idx,
	})
	if sev == models.SeverityError {
		o.Valid = false
	}
	o.Adjustment *= factor
}

// ItemRule checks a single item. all is the full candidate list, for rules
// that compare items with each other.
type ItemRule interface {
	Name() string
	// Priority orders rules; higher runs first.
	Priority() int
	Check(idx int, item models.ExtractedItem, all []models.ExtractedItem) Outcome
}

// PriceRule requires a positive price within the plausible range of the
// item currency.
type PriceRule struct{}

func (PriceRule) Name() string  { return RulePrice }
func (PriceRule) Priority() int { return 100 }

func (PriceRule) Check(idx int, item models.ExtractedItem, _ []models.ExtractedItem) Outcome {
	out := pass()
	if !item.HasPrice() {
		out.add(RulePrice, models.SeverityError, "price", 0, idx, "price must be positive, got %s", item.Price)
		out.Suggestions = append(out.Suggestions, "re-extract the price from the raw text")
		return out
	}

	lower, upper := currencyutils.PriceBounds(item.Currency)
	switch {
	case item.Price.LessThan(lower):
		out.add(RulePrice, models.SeverityWarning, "price", 0.7, idx, "price %s is below %s", item.Price, lower)
	case item.Price.GreaterThan(upper):
		out.add(RulePrice, models.SeverityWarning, "price", 0.8, idx, "price %s is above %s", item.Price, upper)
	}
	if !item.Price.Equal(currencyutils.Round(item.Price, item.Currency)) {
		out.add(RulePrice, models.SeverityInfo, "price", 0.95, idx, "price %s has more precision than %s allows", item.Price, item.Currency)
	}
	return out
}

// MaxNameLength is the longest plausible product name.
const MaxNameLength = 60

// NameRule requires a readable product name.
type NameRule struct{}

func (NameRule) Name() string  { return RuleName }
func (NameRule) Priority() int { return 90 }

func (NameRule) Check(idx int, item models.ExtractedItem, _ []models.ExtractedItem) Outcome {
	out := pass()
	name := strings.TrimSpace(item.Name)
	switch {
	case name == "":
		out.add(RuleName, models.SeverityError, "name", 0, idx, "name is empty")
		return out
	case textutils.IsSymbolsOnly(name):
		out.add(RuleName, models.SeverityError, "name", 0, idx, "name %q has no letters or digits", name)
		return out
	case textutils.IsDigitsOnly(name):
		out.add(RuleName, models.SeverityWarning, "name", 0.5, idx, "name %q is only digits", name)
	case !textutils.HasLetter(name):
		out.add(RuleName, models.SeverityWarning, "name", 0.7, idx, "name %q has no letters", name)
	}

	if n := textutils.RuneLen(name); n < 2 {
		out.add(RuleName, models.SeverityInfo, "name", 0.9, idx, "name %q is very short", name)
	} else if n > MaxNameLength {
		out.add(RuleName, models.SeverityWarning, "name", 0.8, idx, "name is %d characters long", n)
	}
	if strings.ContainsAny(name, "\n\r") {
		out.add(RuleName, models.SeverityWarning, "name", 0.7, idx, "name spans several lines")
	}
	if textutils.TrimNoise(name) != name {
		out.add(RuleName, models.SeverityInfo, "name", 0.95, idx, "name has leading or trailing noise symbols")
		out.Suggestions = append(out.Suggestions, "strip noise symbols from the name")
	}
	return out
}

// MaxQuantity is the largest plausible quantity of one line item.
const MaxQuantity = 100

// QuantityRule requires a quantity in [1, MaxQuantity].
type QuantityRule struct{}

func (QuantityRule) Name() string  { return RuleQuantity }
func (QuantityRule) Priority() int { return 80 }

func (QuantityRule) Check(idx int, item models.ExtractedItem, _ []models.ExtractedItem) Outcome {
	out := pass()
	switch {
	case item.Quantity < 1:
		out.add(RuleQuantity, models.SeverityError, "quantity", 0, idx, "quantity must be at least 1, got %d", item.Quantity)
		out.Suggestions = append(out.Suggestions, "default the quantity to 1")
	case item.Quantity > MaxQuantity:
		out.add(RuleQuantity, models.SeverityWarning, "quantity", 0.6, idx, "quantity %d is above %d", item.Quantity, MaxQuantity)
	}
	return out
}

// ConsistencyRule checks the currency and that unit price times quantity
// agrees with the price. A discount may explain a lower price.
type ConsistencyRule struct {
	// Tolerance is the accepted relative difference.
	Tolerance float64
}

func (ConsistencyRule) Name() string  { return RuleConsistency }
func (ConsistencyRule) Priority() int { return 70 }

func (r ConsistencyRule) Check(idx int, item models.ExtractedItem, _ []models.ExtractedItem) Outcome {
	out := pass()
	if !item.Currency.IsValid() {
		out.add(RuleConsistency, models.SeverityError, "currency", 0, idx, "unsupported currency %q", item.Currency)
		return out
	}

	unit := item.Metadata.UnitPrice
	if unit == nil || !unit.IsPositive() || !item.HasPrice() {
		return out
	}
	expected := unit.Mul(decimal.NewFromInt(int64(item.Quantity)))
	if currencyutils.RelativeDifference(expected, item.Price) <= r.Tolerance {
		return out
	}
	if d := item.Metadata.Discount; d != nil {
		if currencyutils.RelativeDifference(expected.Sub(*d), item.Price) <= r.Tolerance {
			return out
		}
	}
	out.add(RuleConsistency, models.SeverityWarning, "price", 0.8, idx,
		"unit price %s x %d = %s does not match price %s", unit, item.Quantity, expected, item.Price)
	return out
}

// DuplicateRule flags an item that repeats an earlier one: same price and a
// near-identical name.
type DuplicateRule struct {
	// MinSimilarity is the name similarity from which two names are the same.
	MinSimilarity float64
}

func (DuplicateRule) Name() string  { return RuleDuplicate }
func (DuplicateRule) Priority() int { return 60 }

func (r DuplicateRule) Check(idx int, item models.ExtractedItem, all []models.ExtractedItem) Outcome {
	out := pass()
	for prev := 0; prev < idx && prev < len(all); prev++ {
		other := all[prev]
		if !other.Price.Equal(item.Price) {
			continue
		}
		if textutils.Similarity(other.Name, item.Name) >= r.MinSimilarity {
			out.add(RuleDuplicate, models.SeverityWarning, "name", 0.8, idx, "possible duplicate of item %d", prev)
			break
		}
	}
	return out
}

// DefaultRules returns the standard item rules.
func DefaultRules() []ItemRule {
	return []ItemRule{
		PriceRule{},
		NameRule{},
		QuantityRule{},
		ConsistencyRule{Tolerance: 0.05},
		DuplicateRule{MinSimilarity: 0.9},
	}
}
