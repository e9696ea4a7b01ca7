package categorizer

import (
	"context"
	"strings"
	"sync"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// mappingKey folds a product name for case- and width-insensitive lookup.
func mappingKey(name string) string {
	return strings.ToLower(textutils.Fold(name))
}

// DirectMappingStrategy implements categorization using exact product name
// matches from the mappings section of the categories file.
type DirectMappingStrategy struct {
	mappings map[string]string
	store    CategoryStoreInterface
	logger   logging.Logger
	mu       sync.RWMutex
}

// NewDirectMappingStrategy creates a new DirectMappingStrategy instance.
// A nil store yields an empty mapping table.
func NewDirectMappingStrategy(store CategoryStoreInterface, logger logging.Logger) *DirectMappingStrategy {
	strategy := &DirectMappingStrategy{
		mappings: make(map[string]string),
		store:    store,
		logger:   logging.OrDefault(logger),
	}
	strategy.loadMappings()
	return strategy
}

// Name returns the name of this strategy for logging and debugging.
func (s *DirectMappingStrategy) Name() string {
	return "DirectMapping"
}

// Categorize looks the product name up in the mapping table.
func (s *DirectMappingStrategy) Categorize(ctx context.Context, p Product) (string, bool, error) {
	if strings.TrimSpace(p.Name) == "" {
		return "", false, nil
	}

	s.mu.RLock()
	category, found := s.mappings[mappingKey(p.Name)]
	s.mu.RUnlock()
	if !found {
		return "", false, nil
	}

	s.logger.WithFields(
		logging.F("strategy", s.Name()),
		logging.F("product", p.Name),
		logging.F("category", category),
	).Debug("Product categorized using direct mapping")
	return category, true, nil
}

// loadMappings loads product mappings from the store. Mappings to labels
// outside the category set are skipped.
func (s *DirectMappingStrategy) loadMappings() {
	if s.store == nil {
		return
	}
	mappings, err := s.store.LoadProductMappings()
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load product mappings for DirectMappingStrategy")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, category := range mappings {
		if !models.IsKnownCategory(category) {
			s.logger.WithFields(
				logging.F("product", name),
				logging.F("category", category),
			).Warn("Ignoring product mapping to unknown category")
			continue
		}
		s.mappings[mappingKey(name)] = category
	}
	s.logger.WithField(logging.FieldCount, len(s.mappings)).Debug("Loaded product mappings for DirectMappingStrategy")
}

// ReloadMappings reloads the mappings from the store.
func (s *DirectMappingStrategy) ReloadMappings() {
	s.mu.Lock()
	s.mappings = make(map[string]string)
	s.mu.Unlock()
	s.loadMappings()
}

// UpdateMapping adds or updates a product mapping.
func (s *DirectMappingStrategy) UpdateMapping(productName, category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[mappingKey(productName)] = category
}

// Mappings returns a copy of the current mapping table.
func (s *DirectMappingStrategy) Mappings() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.mappings))
	for k, v := range s.mappings {
		out[k] = v
	}
	return out
}
