// Package docai talks to external structured-extraction collaborators: a
// document-intelligence REST service, Gemini, or a hint file supplied with
// the OCR text. Their line items are an alternative source for the hybrid
// merger, never ground truth.
package docai

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Provider names
const (
	ProviderHTTP   = "http"
	ProviderGemini = "gemini"
	ProviderStatic = "static"
)

// ExternalItem is one pre-segmented line item as the collaborator reports
// it. Amount and Quantity are the text spans it read.
type ExternalItem struct {
	Name       string  `json:"name" yaml:"name"`
	Amount     string  `json:"amount" yaml:"amount"`
	Quantity   string  `json:"quantity,omitempty" yaml:"quantity,omitempty"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

// ExternalResult is what a collaborator returned for one receipt.
type ExternalResult struct {
	Provider   string         `json:"provider,omitempty" yaml:"provider,omitempty"`
	Success    bool           `json:"success" yaml:"success"`
	Confidence float64        `json:"confidence" yaml:"confidence"`
	Items      []ExternalItem `json:"items" yaml:"items"`
}

// Extractor is an external structured-extraction collaborator.
type Extractor interface {
	// Extract returns the collaborator's reading of text. Failures are
	// *parsererror.ExternalServiceError.
	Extract(ctx context.Context, text string) (*ExternalResult, error)
	Name() string
}

var quantityPattern = regexp.MustCompile(`-?\d+`)

// ParseQuantity reads the first integer of raw; an empty span means 1.
func ParseQuantity(raw string) int {
	digits := quantityPattern.FindString(textutils.Fold(raw))
	if digits == "" {
		return 1
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 1
	}
	return n
}

// SourcePattern is the provenance recorded on items from provider.
func SourcePattern(provider string) string {
	return "external:" + provider
}

// ToItems converts the reported entities into extracted items. Entities
// without a name or a positive amount are skipped, and a quantity below 1 is
// read as 1.
func (r *ExternalResult) ToItems() []models.ExtractedItem {
	if r == nil {
		return nil
	}
	items := make([]models.ExtractedItem, 0, len(r.Items))
	for idx, e := range r.Items {
		name := strings.TrimSpace(e.Name)
		price, err := currencyutils.ParseAmount(e.Amount)
		if name == "" || err != nil || !price.IsPositive() {
			continue
		}
		qty := ParseQuantity(e.Quantity)
		if qty < 1 {
			qty = 1
		}
		currency := currencyutils.DetectCurrency(e.Amount)
		item, err := models.NewItemBuilder().
			WithName(name).
			WithPrice(currencyutils.Round(price, currency), currency).
			WithQuantity(qty).
			WithConfidence(models.ClampConfidence(e.Confidence)).
			FromSource(SourcePattern(r.Provider)).
			WithLines([]int{idx}, []string{e.Name + " " + e.Amount}).
			Build()
		if err != nil {
			continue
		}
		items = append(items, item)
	}
	return items
}
