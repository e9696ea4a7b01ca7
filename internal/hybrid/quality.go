package hybrid

import (
	"math"
	"strings"

	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/textutils"
)

// Quality score weights and limits
const (
	ConfidenceWeight  = 0.4
	CountWeight       = 0.3
	HighRatioWeight   = 0.2
	SuspiciousPenalty = 0.1
	// ExpectedItems is the item count from which the count term is full.
	ExpectedItems = 3
	// HighConfidence is the item confidence counted as high.
	HighConfidence = 0.8
	// MaxSuspicious caps the number of penalized suspicious patterns.
	MaxSuspicious = 3
	// MaxGarbledRatio is the share of garbled names above which the result is suspicious.
	MaxGarbledRatio = 0.3
	// MaxQuantity is the largest plausible quantity of one entity.
	MaxQuantity = 100
)

// SuspiciousPatterns counts the warning signs of a collaborator result:
// fewer than ExpectedItems items, more than 30% garbled names, any
// implausible quantity, and names spanning several lines.
func SuspiciousPatterns(r *docai.ExternalResult) int {
	count := 0
	if len(r.Items) < ExpectedItems {
		count++
	}

	garbled, badQuantity, multiLine := 0, false, false
	for _, item := range r.Items {
		if isGarbled(item.Name) {
			garbled++
		}
		if q := docai.ParseQuantity(item.Quantity); q < 1 || q > MaxQuantity {
			badQuantity = true
		}
		if strings.ContainsAny(item.Name, "\n\r") {
			multiLine = true
		}
	}
	if len(r.Items) > 0 && float64(garbled)/float64(len(r.Items)) > MaxGarbledRatio {
		count++
	}
	if badQuantity {
		count++
	}
	if multiLine {
		count++
	}
	return count
}

func isGarbled(name string) bool {
	name = strings.TrimSpace(name)
	return textutils.RuneLen(name) < 2 || !textutils.HasLetter(name) || textutils.IsSymbolsOnly(name)
}

// QualityScore rates a collaborator result in [0,1]:
//
//	0.4 × reported confidence
//	+ 0.3 × min(items/3, 1)
//	+ 0.2 × share of items with confidence ≥ 0.8
//	− 0.1 × min(suspicious patterns, 3)
//
// Two items at 0.5 confidence from a result reporting 0.5 score
// 0.2 + 0.2 + 0 − 0.1 = 0.3.
func QualityScore(r *docai.ExternalResult) float64 {
	if r == nil {
		return 0
	}
	n := len(r.Items)
	high := 0
	for _, item := range r.Items {
		if item.Confidence >= HighConfidence {
			high++
		}
	}
	highRatio := 0.0
	if n > 0 {
		highRatio = float64(high) / float64(n)
	}

	score := ConfidenceWeight*r.Confidence +
		CountWeight*math.Min(float64(n)/ExpectedItems, 1) +
		HighRatioWeight*highRatio -
		SuspiciousPenalty*math.Min(float64(SuspiciousPatterns(r)), MaxSuspicious)
	return math.Max(0, math.Min(1, score))
}
