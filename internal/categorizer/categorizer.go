// Package categorizer assigns a category label from the closed category set to
// extracted receipt items using an ordered chain of strategies:
// 1. Direct product-name mapping from the categories file
// 2. Keyword matching against configured and built-in keyword tables
package categorizer

import (
	"context"
	"fmt"
	"sync"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// Categorizer runs the strategy chain and owns the learned product mappings.
type Categorizer struct {
	strategies []CategorizationStrategy
	direct     *DirectMappingStrategy
	store      CategoryStoreInterface
	logger     logging.Logger

	mu    sync.Mutex
	dirty bool
}

// NewCategorizer creates a categorizer backed by store. A nil store uses only
// the built-in keyword table.
func NewCategorizer(store CategoryStoreInterface, logger logging.Logger) *Categorizer {
	logger = logging.OrDefault(logger)
	direct := NewDirectMappingStrategy(store, logger)
	return &Categorizer{
		strategies: []CategorizationStrategy{direct, NewKeywordStrategy(store, logger)},
		direct:     direct,
		store:      store,
		logger:     logger,
	}
}

// Evaluate runs every strategy until one matches and reports each attempt.
func (c *Categorizer) Evaluate(ctx context.Context, p Product) StrategyResults {
	var results StrategyResults
	for _, strategy := range c.strategies {
		category, found, err := strategy.Categorize(ctx, p)
		results.Results = append(results.Results, StrategyResult{
			Strategy: strategy.Name(),
			Category: category,
			Found:    found,
			Error:    err,
		})
		if found && err == nil {
			break
		}
	}
	return results
}

// Categorize returns the category for p, or CategoryOther when no strategy
// matches. Strategy errors are logged and skipped.
func (c *Categorizer) Categorize(ctx context.Context, p Product) string {
	results := c.Evaluate(ctx, p)
	for _, err := range results.GetErrors() {
		c.logger.WithError(err).Warn("Categorization strategy failed")
	}
	category, _ := results.GetBestResult()
	return category
}

// Backfill returns item with a category assigned. A category other than the
// default is never overwritten.
func (c *Categorizer) Backfill(ctx context.Context, item models.ExtractedItem) models.ExtractedItem {
	if item.Category != "" && item.Category != models.CategoryOther {
		return item
	}
	item.Category = c.Categorize(ctx, Product{Name: item.Name, RawText: item.RawText})
	return item
}

// LearnMapping records an exact product name to category mapping.
func (c *Categorizer) LearnMapping(productName, category string) error {
	if !models.IsKnownCategory(category) {
		return fmt.Errorf("unknown category %q", category)
	}
	c.direct.UpdateMapping(productName, category)
	c.mu.Lock()
	c.dirty = true
	c.mu.Unlock()
	return nil
}

// SaveMappings persists learned mappings if any were added.
func (c *Categorizer) SaveMappings() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty || c.store == nil {
		return nil
	}
	if err := c.store.SaveProductMappings(c.direct.Mappings()); err != nil {
		return fmt.Errorf("failed to save product mappings: %w", err)
	}
	c.dirty = false
	c.logger.Debug("Product mappings saved")
	return nil
}
