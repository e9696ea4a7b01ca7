package categorizer

import "context"

// Product is the part of an extracted item a strategy looks at.
type Product struct {
	Name    string
	RawText string
}

// CategorizationStrategy defines a method for categorizing products.
// Each strategy implements a specific approach to categorization (direct mapping, keywords).
type CategorizationStrategy interface {
	// Categorize attempts to categorize a product using this strategy.
	// Returns the category label, whether the strategy matched,
	// and any error encountered during the process.
	Categorize(ctx context.Context, p Product) (string, bool, error)

	// Name returns the name of this strategy for logging and debugging purposes.
	Name() string
}
