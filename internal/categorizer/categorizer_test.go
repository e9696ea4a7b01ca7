package categorizer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/store"
)

type failingStrategy struct{}

func (failingStrategy) Name() string { return "Failing" }

func (failingStrategy) Categorize(context.Context, Product) (string, bool, error) {
	return "", false, errors.New("unavailable")
}

func TestCategorizer_Categorize(t *testing.T) {
	mock := &store.MockCategoryStore{ProductMappings: map[string]string{"Milk": models.CategoryBeverage}}
	c := NewCategorizer(mock, logging.NewMockLogger())

	assert.Equal(t, models.CategoryBeverage, c.Categorize(context.Background(), Product{Name: "milk"}),
		"direct mappings take precedence over keywords")
	assert.Equal(t, models.CategorySnacks, c.Categorize(context.Background(), Product{Name: "Snack"}))
	assert.Equal(t, models.CategoryOther, c.Categorize(context.Background(), Product{Name: "Widget"}))
}

func TestCategorizer_Evaluate(t *testing.T) {
	c := NewCategorizer(nil, nil)

	results := c.Evaluate(context.Background(), Product{Name: "Snack"})
	assert.Equal(t, "DirectMapping:no_match, Keyword:success", results.Summary())

	results = c.Evaluate(context.Background(), Product{Name: "Widget"})
	category, found := results.GetBestResult()
	assert.False(t, found)
	assert.Equal(t, models.CategoryOther, category)
}

func TestCategorizer_StrategyErrorsAreSkipped(t *testing.T) {
	logger := logging.NewMockLogger()
	c := NewCategorizer(nil, logger)
	c.strategies = append([]CategorizationStrategy{failingStrategy{}}, c.strategies...)

	assert.Equal(t, models.CategoryDairy, c.Categorize(context.Background(), Product{Name: "Milk"}))
	assert.True(t, logger.HasEntry("WARN", "Categorization strategy failed"))

	results := c.Evaluate(context.Background(), Product{Name: "Milk"})
	assert.Len(t, results.GetErrors(), 1)
	assert.Contains(t, results.Summary(), "Failing:failed")
}

func TestCategorizer_Backfill(t *testing.T) {
	c := NewCategorizer(nil, nil)
	base := models.ExtractedItem{Name: "Milk", Price: decimal.NewFromInt(200), Quantity: 1}

	tests := []struct {
		name     string
		category string
		want     string
	}{
		{"empty category is filled", "", models.CategoryDairy},
		{"default category is filled", models.CategoryOther, models.CategoryDairy},
		{"explicit category is kept", models.CategoryBeverage, models.CategoryBeverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := base
			item.Category = tt.category
			assert.Equal(t, tt.want, c.Backfill(context.Background(), item).Category)
		})
	}
}

func TestCategorizer_LearnAndSaveMappings(t *testing.T) {
	mock := &store.MockCategoryStore{}
	c := NewCategorizer(mock, nil)

	require.NoError(t, c.SaveMappings())
	assert.Empty(t, mock.ProductMappings, "nothing is written without learned mappings")

	assert.Error(t, c.LearnMapping("Widget", "gizmos"))
	require.NoError(t, c.LearnMapping("Widget", models.CategoryHousehold))
	assert.Equal(t, models.CategoryHousehold, c.Categorize(context.Background(), Product{Name: "Widget"}))

	require.NoError(t, c.SaveMappings())
	assert.Equal(t, models.CategoryHousehold, mock.ProductMappings["widget"])

	mock.SaveProductMappingsError = errors.New("read-only")
	require.NoError(t, c.LearnMapping("Gadget", models.CategoryOther))
	assert.Error(t, c.SaveMappings())
}
