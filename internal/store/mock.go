package store

import (
	"fjacquet/receipt-extract/internal/models"
)

// MockCategoryStore is a mock implementation of CategoryStore for testing.
type MockCategoryStore struct {
	Categories      []models.CategoryConfig
	ProductMappings map[string]string

	// Error flags for testing error conditions
	LoadCategoriesError      error
	LoadProductMappingsError error
	SaveProductMappingsError error
}

// LoadCategories returns the mock categories.
func (m *MockCategoryStore) LoadCategories() ([]models.CategoryConfig, error) {
	if m.LoadCategoriesError != nil {
		return nil, m.LoadCategoriesError
	}
	return m.Categories, nil
}

// LoadProductMappings returns a copy of the mock mappings.
func (m *MockCategoryStore) LoadProductMappings() (map[string]string, error) {
	if m.LoadProductMappingsError != nil {
		return nil, m.LoadProductMappingsError
	}
	result := make(map[string]string, len(m.ProductMappings))
	for k, v := range m.ProductMappings {
		result[k] = v
	}
	return result, nil
}

// SaveProductMappings updates the mock mappings.
func (m *MockCategoryStore) SaveProductMappings(mappings map[string]string) error {
	if m.SaveProductMappingsError != nil {
		return m.SaveProductMappingsError
	}
	if m.ProductMappings == nil {
		m.ProductMappings = make(map[string]string)
	}
	for k, v := range mappings {
		m.ProductMappings[k] = v
	}
	return nil
}
