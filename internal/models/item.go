package models

import (
	"math"

	"github.com/shopspring/decimal"
)

// ItemMetadata holds the optional per-item extras a rule may extract.
type ItemMetadata struct {
	TaxCode       string           `json:"tax_code,omitempty" yaml:"tax_code,omitempty"`
	ProductCode   string           `json:"product_code,omitempty" yaml:"product_code,omitempty"`
	UnitPrice     *decimal.Decimal `json:"unit_price,omitempty" yaml:"unit_price,omitempty"`
	Discount      *decimal.Decimal `json:"discount,omitempty" yaml:"discount,omitempty"`
	StoreSpecific bool             `json:"store_specific,omitempty" yaml:"store_specific,omitempty"`
}

// ExtractedItem is one candidate line item recovered from receipt text.
type ExtractedItem struct {
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	Currency      Currency        `json:"currency"`
	Confidence    float64         `json:"confidence"`
	Category      string          `json:"category"`
	SourcePattern string          `json:"source_pattern"`
	LineNumbers   []int           `json:"line_numbers"`
	RawText       string          `json:"raw_text"`
	Metadata      ItemMetadata    `json:"metadata"`
}

// HasPrice reports whether the item carries a positive price.
func (i ExtractedItem) HasPrice() bool {
	return i.Price.IsPositive()
}

// FirstLine returns the first contributing line number, or math.MaxInt when
// the item has no line provenance.
func (i ExtractedItem) FirstLine() int {
	if len(i.LineNumbers) == 0 {
		return math.MaxInt
	}
	first := i.LineNumbers[0]
	for _, n := range i.LineNumbers[1:] {
		if n < first {
			first = n
		}
	}
	return first
}

// Clone returns a deep copy of the item.
func (i ExtractedItem) Clone() ExtractedItem {
	out := i
	if i.LineNumbers != nil {
		out.LineNumbers = append([]int(nil), i.LineNumbers...)
	}
	if i.Metadata.UnitPrice != nil {
		v := *i.Metadata.UnitPrice
		out.Metadata.UnitPrice = &v
	}
	if i.Metadata.Discount != nil {
		v := *i.Metadata.Discount
		out.Metadata.Discount = &v
	}
	return out
}

// CloneItems deep-copies a slice of items. A nil slice stays nil.
func CloneItems(items []ExtractedItem) []ExtractedItem {
	if items == nil {
		return nil
	}
	out := make([]ExtractedItem, len(items))
	for idx, item := range items {
		out[idx] = item.Clone()
	}
	return out
}

// ClampConfidence bounds c to [0,1].
func ClampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// MeanConfidence returns the average item confidence, 0 for no items.
func MeanConfidence(items []ExtractedItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, item := range items {
		sum += item.Confidence
	}
	return ClampConfidence(sum / float64(len(items)))
}
