package validator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

func TestCorrector_Correct(t *testing.T) {
	tests := []struct {
		name        string
		item        models.ExtractedItem
		wantName    string
		wantPrice   string
		wantQty     int
		wantReasons []string
	}{
		{
			name:      "clean item untouched",
			item:      models.ExtractedItem{Name: "Milk", Price: decimal.NewFromInt(198), Quantity: 1, RawText: "Milk ¥198"},
			wantName:  "Milk",
			wantPrice: "198",
			wantQty:   1,
		},
		{
			name:        "price re-extracted from the last amount",
			item:        models.ExtractedItem{Name: "Widget", Price: decimal.Zero, Quantity: 2, RawText: "Widget\n123456\n2個\n500\n1,000 T"},
			wantName:    "Widget",
			wantPrice:   "1000",
			wantQty:     2,
			wantReasons: []string{ReasonPriceReextracted},
		},
		{
			name:      "no amount in raw text",
			item:      models.ExtractedItem{Name: "Widget", Price: decimal.Zero, Quantity: 1, RawText: "Widget"},
			wantName:  "Widget",
			wantPrice: "0",
			wantQty:   1,
		},
		{
			name:        "quantity defaulted",
			item:        models.ExtractedItem{Name: "Milk", Price: decimal.NewFromInt(198), Quantity: 0},
			wantName:    "Milk",
			wantPrice:   "198",
			wantQty:     1,
			wantReasons: []string{ReasonQuantityDefault},
		},
		{
			name:        "noise stripped",
			item:        models.ExtractedItem{Name: "** Milk ※", Price: decimal.NewFromInt(198), Quantity: 1},
			wantName:    "Milk",
			wantPrice:   "198",
			wantQty:     1,
			wantReasons: []string{ReasonNameNoise},
		},
		{
			name:      "name made only of noise is kept",
			item:      models.ExtractedItem{Name: "***", Price: decimal.NewFromInt(198), Quantity: 1},
			wantName:  "***",
			wantPrice: "198",
			wantQty:   1,
		},
		{
			name:        "several fixes",
			item:        models.ExtractedItem{Name: "-Eggs-", Price: decimal.Zero, Quantity: -1, RawText: "-Eggs- 298円"},
			wantName:    "Eggs",
			wantPrice:   "298",
			wantQty:     1,
			wantReasons: []string{ReasonPriceReextracted, ReasonQuantityDefault, ReasonNameNoise},
		},
	}

	c := NewCorrector(logging.NewDiscardLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, corrections := c.Correct([]models.ExtractedItem{tt.item})
			require.Len(t, out, 1)
			assert.Equal(t, tt.wantName, out[0].Name)
			assert.Equal(t, tt.wantPrice, out[0].Price.String())
			assert.Equal(t, tt.wantQty, out[0].Quantity)

			var reasons []string
			for _, corr := range corrections {
				reasons = append(reasons, corr.Reason)
				assert.Equal(t, 0, corr.ItemIndex)
				assert.NotEqual(t, corr.OldValue, corr.NewValue)
			}
			assert.Equal(t, tt.wantReasons, reasons)

			again, more := c.Correct(out)
			assert.Equal(t, out, again)
			assert.Empty(t, more)
		})
	}
}

func TestCorrector_Apply(t *testing.T) {
	logger := logging.NewMockLogger()
	result := models.EmptyResult().WithItems([]models.ExtractedItem{
		{Name: "Milk*", Price: decimal.NewFromInt(198), Quantity: 1, Confidence: 0.8},
	})

	out := NewCorrector(logger).Apply(result)

	assert.Equal(t, "Milk", out.Items[0].Name)
	require.Len(t, out.Metadata.Corrections, 1)
	corr := out.Metadata.Corrections[0]
	assert.Equal(t, "name", corr.Field)
	assert.Equal(t, "Milk*", corr.OldValue)
	assert.Equal(t, "Milk", corr.NewValue)
	assert.True(t, logger.HasEntry("DEBUG", "Auto-corrected item"))
	assert.Equal(t, "Milk*", result.Items[0].Name)
}
