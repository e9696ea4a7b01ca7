package models

// CategoryConfig is a category label with the keywords that select it.
type CategoryConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// CategoriesFile is the on-disk layout of the category configuration: keyword
// rules evaluated in order plus exact product-name mappings.
type CategoriesFile struct {
	Categories []CategoryConfig `yaml:"categories" json:"categories"`
	Mappings   map[string]string `yaml:"mappings,omitempty" json:"mappings,omitempty"`
}
