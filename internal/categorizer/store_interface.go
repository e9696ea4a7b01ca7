package categorizer

import "fjacquet/receipt-extract/internal/models"

// CategoryStoreInterface defines the interface for category data storage.
// This allows for dependency injection and easier testing.
type CategoryStoreInterface interface {
	LoadCategories() ([]models.CategoryConfig, error)
	LoadProductMappings() (map[string]string, error)
	SaveProductMappings(mappings map[string]string) error
}
