// Package normalizer cleans up product names read by OCR: it folds full-width
// forms, repairs known glyph confusions and unifies brand and unit notation.
// Normalizing an already normalized name returns it unchanged.
package normalizer

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"

	"fjacquet/receipt-extract/internal/textutils"
)

// Rule replaces every match of Pattern with Replacement, which may refer to
// capture groups as ${1}.
type Rule struct {
	Pattern     string
	Replacement string
}

// GlyphRules repair characters OCR commonly confuses on receipts.
var GlyphRules = []Rule{
	// a bullet read after a count stands for the counter 個
	{Pattern: `(\d)\s*[●○◎•]`, Replacement: "${1}個"},
	{Pattern: `[“”„]`, Replacement: `"`},
	{Pattern: `[‘’‚]`, Replacement: `'`},
	{Pattern: `[‐‑‒–—―−]`, Replacement: "-"},
	// trailing tax and reduced-rate markers
	{Pattern: `(?:\s*[※*])+\s*$`, Replacement: ""},
}

// BrandRules unify brand abbreviations and unit notation.
var BrandRules = []Rule{
	{Pattern: `\bKS\b`, Replacement: "Kirkland Signature"},
	{Pattern: `(?i)\bkirkland(?:\s+signature)?\b`, Replacement: "Kirkland Signature"},
	{Pattern: `(?i)\bcoca[\s-]?cola\b`, Replacement: "Coca-Cola"},
	{Pattern: `コカ[・\s]?コーラ`, Replacement: "コカ・コーラ"},
	{Pattern: `(?i)\borg\b\.?`, Replacement: "Organic"},
	{Pattern: `(\d+(?:\.\d+)?)\s*(?i:kg)\b`, Replacement: "${1}kg"},
	{Pattern: `(\d+(?:\.\d+)?)\s*(?i:ml)\b`, Replacement: "${1}ml"},
	{Pattern: `(\d+(?:\.\d+)?)\s*(?i:g)\b`, Replacement: "${1}g"},
	{Pattern: `(\d+(?:\.\d+)?)\s*(?i:l)\b`, Replacement: "${1}L"},
	{Pattern: `(\d+)\s*(?i:pk|pcs|p)\b`, Replacement: "${1}pk"},
}

type substitution struct {
	re          *regexp.Regexp
	replacement string
}

// Normalizer applies the glyph and brand tables to product names.
type Normalizer struct {
	glyphs []substitution
	brands []substitution
}

// New returns a Normalizer using GlyphRules and BrandRules.
func New() *Normalizer {
	n, err := NewWithRules(GlyphRules, BrandRules)
	if err != nil {
		panic(err)
	}
	return n
}

// NewWithRules builds a Normalizer from custom tables.
func NewWithRules(glyphs, brands []Rule) (*Normalizer, error) {
	g, err := compileRules("glyph", glyphs)
	if err != nil {
		return nil, err
	}
	b, err := compileRules("brand", brands)
	if err != nil {
		return nil, err
	}
	return &Normalizer{glyphs: g, brands: b}, nil
}

func compileRules(table string, rules []Rule) ([]substitution, error) {
	out := make([]substitution, 0, len(rules))
	for idx, r := range rules {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%s rule %d: %w", table, idx, err)
		}
		out = append(out, substitution{re: re, replacement: r.Replacement})
	}
	return out, nil
}

// Name normalizes a product name.
func (n *Normalizer) Name(name string) string {
	s := textutils.CollapseSpaces(norm.NFKC.String(name))
	s = apply(n.glyphs, s)
	s = textutils.CollapseSpaces(s)
	s = apply(n.brands, s)
	return textutils.CollapseSpaces(s)
}

func apply(subs []substitution, s string) string {
	for _, sub := range subs {
		s = sub.re.ReplaceAllString(s, sub.replacement)
	}
	return s
}
