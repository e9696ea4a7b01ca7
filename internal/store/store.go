// Package store provides file persistence for the pattern catalog and the
// category configuration.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// DefaultCategoriesFile is used when no categories file is configured.
const DefaultCategoriesFile = "categories.yaml"

// CategoryStore manages loading and saving of category data
type CategoryStore struct {
	CategoriesFile string
	logger         logging.Logger
}

// NewCategoryStore creates a new store for category-related data
func NewCategoryStore(categoriesFile string, logger logging.Logger) *CategoryStore {
	return &CategoryStore{
		CategoriesFile: categoriesFile,
		logger:         logging.OrDefault(logger),
	}
}

// FindConfigFile looks for a configuration file in standard locations
func (s *CategoryStore) FindConfigFile(filename string) (string, error) {
	return findConfigFile(filename)
}

func findConfigFile(filename string) (string, error) {
	if filepath.IsAbs(filename) {
		if _, err := os.Stat(filename); err == nil {
			return filename, nil
		}
		return "", os.ErrNotExist
	}

	locations := []string{
		filename,
		filepath.Join("config", filename),
		filepath.Join("database", filename),
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location, nil
		}
	}

	// Last resort: ~/.config/receipt-extract/
	if homeDir, err := os.UserHomeDir(); err == nil {
		configPath := filepath.Join(homeDir, ".config", "receipt-extract", filename)
		if _, err := os.Stat(configPath); err == nil {
			return configPath, nil
		}
	}

	return "", os.ErrNotExist
}

func (s *CategoryStore) filename() string {
	if s.CategoriesFile == "" {
		return DefaultCategoriesFile
	}
	return s.CategoriesFile
}

// load reads the categories file. A missing file yields an empty
// configuration and an empty path.
func (s *CategoryStore) load() (models.CategoriesFile, string, error) {
	filename := s.filename()
	filePath, err := findConfigFile(filename)
	if err != nil {
		s.logger.Debug("Categories file not found, using built-in categories",
			logging.F(logging.FieldInputFile, filename))
		return models.CategoriesFile{}, "", nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.CategoriesFile{}, "", fmt.Errorf("error reading categories file: %w", err)
	}

	var file models.CategoriesFile
	if err := yaml.Unmarshal(data, &file); err == nil {
		return file, filePath, nil
	}

	// Also accept a bare list of categories without the top-level key
	var categories []models.CategoryConfig
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return models.CategoriesFile{}, "", fmt.Errorf("error parsing categories file %s: %w", filePath, err)
	}
	return models.CategoriesFile{Categories: categories}, filePath, nil
}

// LoadCategories loads the keyword categories from the YAML file. Keywords
// are lower-cased. A missing file is not an error.
func (s *CategoryStore) LoadCategories() ([]models.CategoryConfig, error) {
	file, path, err := s.load()
	if err != nil {
		return nil, err
	}

	categories := make([]models.CategoryConfig, 0, len(file.Categories))
	for _, c := range file.Categories {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		categories = append(categories, models.CategoryConfig{Name: name, Keywords: keywords})
	}

	if path != "" {
		s.logger.Debug("Loaded categories",
			logging.F(logging.FieldCount, len(categories)),
			logging.F(logging.FieldInputFile, path))
	}
	return categories, nil
}

// LoadProductMappings loads exact product name to category mappings.
func (s *CategoryStore) LoadProductMappings() (map[string]string, error) {
	file, path, err := s.load()
	if err != nil {
		return nil, err
	}
	mappings := make(map[string]string, len(file.Mappings))
	for name, category := range file.Mappings {
		mappings[name] = category
	}
	if path != "" {
		s.logger.Debug("Loaded product mappings",
			logging.F(logging.FieldCount, len(mappings)),
			logging.F(logging.FieldInputFile, path))
	}
	return mappings, nil
}

// SaveProductMappings replaces the mappings section of the categories file,
// keeping its categories.
func (s *CategoryStore) SaveProductMappings(mappings map[string]string) error {
	file, path, err := s.load()
	if err != nil {
		return err
	}

	if path == "" {
		path = s.filename()
		if !filepath.IsAbs(path) {
			path = filepath.Join("database", path)
		}
	}

	file.Mappings = mappings
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("error marshaling product mappings: %w", err)
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("error writing product mappings: %w", err)
	}

	s.logger.Debug("Saved product mappings",
		logging.F(logging.FieldCount, len(mappings)),
		logging.F(logging.FieldOutputFile, path))
	return nil
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}
