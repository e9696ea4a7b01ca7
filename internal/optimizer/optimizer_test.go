package optimizer

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

func TestRescore(t *testing.T) {
	fallback := newItem("Milk", 200, 1, 0)
	fallback.SourcePattern = FallbackSource
	storeSpecific := newItem("Milk", 200, 0.8, 0)
	storeSpecific.Metadata.StoreSpecific = true
	capped := newItem("Milk", 200, 0.95, 0)
	capped.Metadata.StoreSpecific = true
	usd := newItem("Coffee", 0, 1, 0)
	usd.Price = decimal.RequireFromString("3.50")
	usd.Currency = models.CurrencyUSD

	tests := []struct {
		name string
		item models.ExtractedItem
		want float64
	}{
		{"plausible", newItem("Milk", 200, 0.9, 0), 0.9},
		{"yen price too low", newItem("Gum", 5, 1, 0), 0.6},
		{"yen price too high", newItem("Television", 200000, 1, 0), 0.5},
		{"digits only name", newItem("4901234", 200, 1, 0), 0.2},
		{"symbols only name", newItem("***", 200, 1, 0), 0.1},
		{"short name", newItem("X", 200, 1, 0), 0.5},
		{"fallback source", fallback, 0.8},
		{"store specific boost", storeSpecific, 0.88},
		{"boost capped at one", capped, 1.0},
		{"dollar price", usd, 1.0},
		{"penalties multiply", newItem("12", 3, 1, 0), 0.6 * 0.2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Rescore(tt.item), 1e-9)
		})
	}
}

func TestRank(t *testing.T) {
	items := []models.ExtractedItem{
		newItem("Bread", 150, 0.8, 4),
		newItem("Milk", 200, 0.9, 6),
		newItem("Apple", 100, 0.8, 4),
		newItem("Eggs", 298, 0.8, 1),
	}
	Rank(items)

	var names []string
	for _, it := range items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Milk", "Eggs", "Apple", "Bread"}, names)
}

func TestOptimize(t *testing.T) {
	ks := newItem("KS Milk", 598, 0.9, 2)
	ks.Metadata.StoreSpecific = true
	dup := newItem("KS  Milk", 600, 0.7, 7)
	usd := newItem("Coffee", 0, 0.8, 4)
	usd.Price = decimal.RequireFromString("3.499")
	usd.Currency = models.CurrencyUSD
	labelled := newItem("Beer-ish cleaner", 300, 0.85, 5)
	labelled.Category = models.CategoryHousehold

	o := New(nil, categorizer.NewCategorizer(nil, logging.NewDiscardLogger()), logging.NewDiscardLogger())
	out := o.Optimize(context.Background(), []models.ExtractedItem{ks, usd, dup, labelled})

	require.Len(t, out, 3)

	milk := out[0]
	assert.Equal(t, "Kirkland Signature Milk", milk.Name)
	assert.Equal(t, "598", milk.Price.String())
	assert.Equal(t, models.CategoryDairy, milk.Category)
	assert.InDelta(t, 0.99, milk.Confidence, 1e-9)

	assert.Equal(t, "Beer-ish cleaner", out[1].Name)
	assert.Equal(t, models.CategoryHousehold, out[1].Category)

	assert.Equal(t, "Coffee", out[2].Name)
	assert.Equal(t, "3.5", out[2].Price.String())
	assert.Equal(t, models.CategoryBeverage, out[2].Category)

	assert.Equal(t, "KS Milk", ks.Name)
}

func TestOptimize_WithoutCategorizer(t *testing.T) {
	o := New(nil, nil, nil)
	out := o.Optimize(context.Background(), []models.ExtractedItem{newItem("Milk", 200, 0.9, 0)})
	require.Len(t, out, 1)
	assert.Equal(t, models.CategoryOther, out[0].Category)
}

func TestApply_RecomputesResultConfidence(t *testing.T) {
	result := models.EmptyResult().WithItems([]models.ExtractedItem{
		newItem("Milk", 200, 0.9, 0),
		newItem("Gum", 5, 1, 1),
	})
	out := New(nil, nil, nil).Apply(context.Background(), result)

	require.Len(t, out.Items, 2)
	assert.InDelta(t, (0.9+0.6)/2, out.Confidence, 1e-9)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}
