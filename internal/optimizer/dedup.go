package optimizer

import (
	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Dedup weights and limits
const (
	NameWeight  = 0.7
	PriceWeight = 0.3
	// PriceTolerance is the relative difference under which two prices are close.
	PriceTolerance = 0.1
	// MergeThreshold is the similarity above which two items are merged.
	MergeThreshold = 0.8
)

// PriceCloseness is 1 when a and b differ by at most PriceTolerance and 0
// otherwise.
func PriceCloseness(a, b models.ExtractedItem) float64 {
	if currencyutils.RelativeDifference(a.Price, b.Price) <= PriceTolerance {
		return 1
	}
	return 0
}

// ItemSimilarity is 0.7 × name similarity + 0.3 × price closeness.
//
//	"Milk" ¥200 / "Milk" ¥205   → 0.7 + 0.3 = 1.0  (merged)
//	"Milk" ¥200 / "Milk" ¥400   → 0.7              (kept apart)
//	"Bread" ¥150 / "Milk" ¥150  → 0.7×0 + 0.3 = 0.3
func ItemSimilarity(a, b models.ExtractedItem) float64 {
	return NameWeight*textutils.Similarity(a.Name, b.Name) + PriceWeight*PriceCloseness(a, b)
}

// preferred returns the item kept when a and b merge: higher confidence,
// then the longer name, then a.
func preferred(a, b models.ExtractedItem) models.ExtractedItem {
	switch {
	case a.Confidence > b.Confidence:
		return a
	case b.Confidence > a.Confidence:
		return b
	case textutils.RuneLen(b.Name) > textutils.RuneLen(a.Name):
		return b
	}
	return a
}

// Dedup merges items whose similarity exceeds MergeThreshold until no such
// pair remains, so Dedup(Dedup(x)) equals Dedup(x). The kept item takes the
// position of the earlier one.
func Dedup(items []models.ExtractedItem) []models.ExtractedItem {
	out := models.CloneItems(items)
	for {
		i, j, found := similarPair(out)
		if !found {
			return out
		}
		out[i] = preferred(out[i], out[j])
		out = append(out[:j], out[j+1:]...)
	}
}

func similarPair(items []models.ExtractedItem) (int, int, bool) {
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			if ItemSimilarity(items[i], items[j]) > MergeThreshold {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
