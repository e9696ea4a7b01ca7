package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

func item(name string, price int64, confidence float64) models.ExtractedItem {
	return models.ExtractedItem{
		Name:       name,
		Price:      decimal.NewFromInt(price),
		Quantity:   1,
		Currency:   models.CurrencyJPY,
		Confidence: confidence,
		Category:   models.CategoryOther,
	}
}

func rules(issues []models.ValidationIssue) []string {
	var out []string
	for _, issue := range issues {
		out = append(out, issue.Rule+":"+string(issue.Severity))
	}
	return out
}

func TestValidate_ItemRules(t *testing.T) {
	withQty := func(it models.ExtractedItem, q int) models.ExtractedItem { it.Quantity = q; return it }
	withCurrency := func(it models.ExtractedItem, c models.Currency) models.ExtractedItem { it.Currency = c; return it }

	tests := []struct {
		name       string
		item       models.ExtractedItem
		wantValid  bool
		wantConf   float64
		wantIssues []string
	}{
		{"clean item", item("Milk", 198, 0.9), true, 0.9, nil},
		{"zero price", item("Milk", 0, 0.9), false, 0, []string{"price:error"}},
		{"price below bound", item("Gum", 5, 1), true, 0.7, []string{"price:warning"}},
		{"price above bound", item("Television", 250000, 1), true, 0.8, []string{"price:warning"}},
		{"empty name", item("", 100, 1), false, 0, []string{"name:error"}},
		{"symbols only name", item("***", 100, 1), false, 0, []string{"name:error"}},
		{"digits only name", item("12345", 100, 1), true, 0.5, []string{"name:warning"}},
		{"one letter name", item("X", 100, 1), true, 0.9, []string{"name:info"}},
		{"noisy name", item("Milk *", 100, 1), true, 0.95, []string{"name:info"}},
		{"zero quantity", withQty(item("Milk", 100, 1), 0), false, 0, []string{"quantity:error"}},
		{"huge quantity", withQty(item("Milk", 100, 1), 500), true, 0.6, []string{"quantity:warning"}},
		{"bad currency", withCurrency(item("Milk", 100, 1), "XXX"), false, 0, []string{"consistency:error"}},
	}
	v := New(logging.NewDiscardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := v.Validate([]models.ExtractedItem{tt.item})
			require.Len(t, report.Items, 1)
			got := report.Items[0]
			assert.Equal(t, tt.wantValid, got.Valid)
			assert.InDelta(t, tt.wantConf, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantIssues, rules(got.Issues))
		})
	}
}

func TestValidate_AdjustmentsMultiply(t *testing.T) {
	it := item("12345", 5, 1)
	it.Quantity = 500

	report := New(logging.NewDiscardLogger()).Validate([]models.ExtractedItem{it})

	// price 0.7, digits-only name 0.5, quantity 0.6
	assert.True(t, report.Items[0].Valid)
	assert.InDelta(t, 0.7*0.5*0.6, report.Items[0].Confidence, 1e-9)
}

func TestConsistencyRule(t *testing.T) {
	unit := decimal.NewFromInt(500)
	discount := decimal.NewFromInt(100)

	tests := []struct {
		name     string
		price    int64
		qty      int
		discount *decimal.Decimal
		wantOK   bool
	}{
		{"unit times quantity", 1000, 2, nil, true},
		{"within tolerance", 980, 2, nil, true},
		{"mismatch", 1500, 2, nil, false},
		{"explained by discount", 900, 2, &discount, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := item("Widget", tt.price, 1)
			it.Quantity = tt.qty
			it.Metadata.UnitPrice = &unit
			it.Metadata.Discount = tt.discount

			out := ConsistencyRule{Tolerance: 0.05}.Check(0, it, nil)
			assert.True(t, out.Valid)
			assert.Equal(t, tt.wantOK, len(out.Issues) == 0)
		})
	}
}

func TestDuplicateRule(t *testing.T) {
	items := []models.ExtractedItem{
		item("Milk", 200, 1),
		item("Bread", 150, 1),
		item("milk", 200, 1),
		item("Milk", 210, 1),
	}
	r := DuplicateRule{MinSimilarity: 0.9}

	assert.Empty(t, r.Check(0, items[0], items).Issues)
	assert.Empty(t, r.Check(1, items[1], items).Issues)
	dup := r.Check(2, items[2], items)
	require.Len(t, dup.Issues, 1)
	assert.Equal(t, "possible duplicate of item 0", dup.Issues[0].Message)
	assert.Empty(t, r.Check(3, items[3], items).Issues)
}

func TestValidate_GlobalPass(t *testing.T) {
	v := New(logging.NewDiscardLogger())

	t.Run("no items", func(t *testing.T) {
		report := v.Validate(nil)
		assert.Empty(t, report.Global)
		assert.Equal(t, 1.0, report.GlobalAdjustment)
	})

	t.Run("low price coverage", func(t *testing.T) {
		report := v.Validate([]models.ExtractedItem{item("Milk", 200, 1), item("Bread", 0, 1), item("Eggs", 0, 1)})
		require.Len(t, report.Global, 1)
		assert.Equal(t, RuleCoverage, report.Global[0].Rule)
		assert.Equal(t, -1, report.Global[0].ItemIndex)
		assert.InDelta(t, 0.9, report.Items[0].Confidence, 1e-9)
		assert.Equal(t, 1, report.ValidCount())
	})

	t.Run("too many items", func(t *testing.T) {
		items := make([]models.ExtractedItem, MaxItems+1)
		for i := range items {
			items[i] = item("Item", int64(100+i), 1)
		}
		report := v.Validate(items)
		assert.Equal(t, []string{"item_count:warning"}, rules(report.Global))
		assert.InDelta(t, 0.8, report.Items[0].Confidence, 1e-9)
	})
}

func TestApply(t *testing.T) {
	logger := logging.NewMockLogger()
	v := New(logger)
	result := models.EmptyResult().WithItems([]models.ExtractedItem{
		item("Milk", 200, 0.9),
		item("???", 100, 0.9),
		item("Bread", 5, 1),
	})

	out := v.Apply(result)

	require.Len(t, out.Items, 2)
	assert.Equal(t, "Milk", out.Items[0].Name)
	assert.Equal(t, "Bread", out.Items[1].Name)
	assert.InDelta(t, 0.7, out.Items[1].Confidence, 1e-9)
	assert.InDelta(t, (0.9+0.7)/2, out.Confidence, 1e-9)
	assert.NotEmpty(t, out.Metadata.ValidationIssues)
	assert.True(t, logger.HasEntry("DEBUG", "Dropping invalid item"))
	assert.True(t, logger.HasEntry("INFO", "Validation excluded items"))

	// the input is left untouched
	assert.Len(t, result.Items, 3)
	assert.Equal(t, 1.0, result.Items[2].Confidence)
}

func TestApply_ConfidenceStaysInRange(t *testing.T) {
	items := []models.ExtractedItem{
		item("Milk", 200, 1),
		item("12", 3, 1),
		item("Widget", 999999, 0),
	}
	out := New(nil).Apply(models.EmptyResult().WithItems(items))
	for _, it := range out.Items {
		assert.GreaterOrEqual(t, it.Confidence, 0.0)
		assert.LessOrEqual(t, it.Confidence, 1.0)
		assert.True(t, it.HasPrice())
	}
}

func TestNewWithRules_PriorityOrder(t *testing.T) {
	v := NewWithRules(nil, DuplicateRule{}, PriceRule{}, QuantityRule{})
	var names []string
	for _, r := range v.rules {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{RulePrice, RuleQuantity, RuleDuplicate}, names)
}
