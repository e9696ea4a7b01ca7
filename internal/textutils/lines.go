// Package textutils provides text preprocessing and lexical helpers for OCR
// receipt text.
package textutils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Line is a non-blank receipt line with its zero-based position in the
// original text.
type Line struct {
	Number int
	Text   string
}

var spaceRun = regexp.MustCompile(`\s+`)

// Fold applies NFKC so full-width digits, letters and symbols become their
// ASCII forms, then collapses whitespace runs.
func Fold(s string) string {
	return CollapseSpaces(norm.NFKC.String(s))
}

// CollapseSpaces trims s and replaces internal whitespace runs with one space.
func CollapseSpaces(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// SplitLines folds every line of text and drops blank ones, keeping the
// original line numbers.
func SplitLines(text string) []Line {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	raw := strings.Split(text, "\n")
	lines := make([]Line, 0, len(raw))
	for idx, l := range raw {
		folded := Fold(l)
		if folded == "" {
			continue
		}
		lines = append(lines, Line{Number: idx, Text: folded})
	}
	return lines
}

// Texts returns the text of each line.
func Texts(lines []Line) []string {
	out := make([]string, len(lines))
	for idx, l := range lines {
		out[idx] = l.Text
	}
	return out
}

// Numbers returns the line number of each line.
func Numbers(lines []Line) []int {
	out := make([]int, len(lines))
	for idx, l := range lines {
		out[idx] = l.Number
	}
	return out
}

var summaryPattern = regexp.MustCompile(`(?i)\b(?:sub\s*total|total|tax|change|cash|visa|master|credit|balance)\b|合計|小計|お釣り?|お預り?|現金|釣銭|クレジット|点数|領収`)

var (
	// taxNoise is what a tax line carries besides its keywords.
	taxNoise = regexp.MustCompile(`[\d,.%¥$€()（）\[\]\s:：=＝\-]+`)
	// taxWords is a line made only of tax keywords once amounts are removed.
	taxWords = regexp.MustCompile(`^(?:(?:内|外|課|非課)?(?:消費)?税(?:額|率|等|込|抜)?|対象|内|外|計)+$`)
)

// IsSummaryLine reports whether a line carries a receipt total, tax, tender
// or change amount rather than a purchased item.
func IsSummaryLine(s string) bool {
	return summaryPattern.MatchString(s) || IsTaxLine(s)
}

// IsTaxLine reports whether s is a tax breakdown line such as "(内消費税 91)"
// or "税率8%対象 ¥500". A product name that merely contains 税 is not one.
func IsTaxLine(s string) bool {
	residue := taxNoise.ReplaceAllString(s, "")
	return strings.Contains(residue, "税") && taxWords.MatchString(residue)
}

var discountName = regexp.MustCompile(`(?i)^(?:値引き?|割引き?|disc(?:ount)?\b)`)

// IsDiscountName reports whether an item name is a discount keyword, which
// marks a price adjustment rather than a purchased product.
func IsDiscountName(name string) bool {
	return discountName.MatchString(strings.TrimSpace(Fold(name)))
}
