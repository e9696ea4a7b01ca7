package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ItemBuilder provides a fluent API for constructing extracted items
type ItemBuilder struct {
	item ExtractedItem
	err  error
}

// NewItemBuilder creates a new ItemBuilder with default values
func NewItemBuilder() *ItemBuilder {
	return &ItemBuilder{
		item: ExtractedItem{
			Quantity: 1,
			Currency: DefaultCurrency,
			Category: CategoryOther,
			Price:    decimal.Zero,
		},
	}
}

// WithName sets the product name, trimmed of surrounding whitespace
func (b *ItemBuilder) WithName(name string) *ItemBuilder {
	if b.err != nil {
		return b
	}
	b.item.Name = strings.TrimSpace(name)
	return b
}

// WithPrice sets the price and, when given, the currency
func (b *ItemBuilder) WithPrice(price decimal.Decimal, currency Currency) *ItemBuilder {
	if b.err != nil {
		return b
	}
	if price.IsNegative() {
		b.err = fmt.Errorf("price cannot be negative: %s", price)
		return b
	}
	b.item.Price = price
	if currency != "" {
		b.item.Currency = currency
	}
	return b
}

// WithQuantity sets the quantity; values below 1 are rejected
func (b *ItemBuilder) WithQuantity(quantity int) *ItemBuilder {
	if b.err != nil {
		return b
	}
	if quantity < 1 {
		b.err = fmt.Errorf("quantity must be at least 1, got %d", quantity)
		return b
	}
	b.item.Quantity = quantity
	return b
}

// WithConfidence sets the confidence; values outside [0,1] are rejected
func (b *ItemBuilder) WithConfidence(confidence float64) *ItemBuilder {
	if b.err != nil {
		return b
	}
	if confidence < 0 || confidence > 1 {
		b.err = fmt.Errorf("confidence must be within [0,1], got %f", confidence)
		return b
	}
	b.item.Confidence = confidence
	return b
}

// WithCategory sets the category label
func (b *ItemBuilder) WithCategory(category string) *ItemBuilder {
	if b.err != nil {
		return b
	}
	if !IsKnownCategory(category) {
		b.err = fmt.Errorf("unknown category: %s", category)
		return b
	}
	b.item.Category = category
	return b
}

// FromSource sets the provenance of the item
func (b *ItemBuilder) FromSource(source string) *ItemBuilder {
	if b.err != nil {
		return b
	}
	b.item.SourcePattern = source
	return b
}

// WithLines records contributing lines and their text
func (b *ItemBuilder) WithLines(numbers []int, lines []string) *ItemBuilder {
	if b.err != nil {
		return b
	}
	b.item.LineNumbers = append([]int(nil), numbers...)
	b.item.RawText = strings.Join(lines, "\n")
	return b
}

// WithMetadata sets the item extras
func (b *ItemBuilder) WithMetadata(meta ItemMetadata) *ItemBuilder {
	if b.err != nil {
		return b
	}
	b.item.Metadata = meta
	return b
}

// Build returns the item, or the first error raised while building
func (b *ItemBuilder) Build() (ExtractedItem, error) {
	if b.err != nil {
		return ExtractedItem{}, b.err
	}
	if b.item.Name == "" {
		return ExtractedItem{}, errors.New("name cannot be empty")
	}
	return b.item.Clone(), nil
}
