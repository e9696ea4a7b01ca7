// Package currencyutils provides amount parsing, currency detection and
// per-currency rounding for receipt prices.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/parsererror"
)

var (
	symbolPattern     = regexp.MustCompile(`[€$£¥円\s]|JPY|USD|EUR`)
	twoDecimalPattern = regexp.MustCompile(`\d+\.\d{2}(?:\D|$)`)
)

// ParseAmount parses a receipt amount such as "1,000", "¥228", "１２８円" or
// "$3.49" into a decimal. Full-width digits are folded first.
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	standardized := StandardizeAmount(amountStr)
	if standardized == "" {
		return decimal.Zero, &parsererror.ParseError{
			Parser: "amount",
			Field:  "price",
			Value:  amountStr,
			Err:    fmt.Errorf("no digits"),
		}
	}

	amount, err := decimal.NewFromString(standardized)
	if err != nil {
		return decimal.Zero, &parsererror.ParseError{Parser: "amount", Field: "price", Value: amountStr, Err: err}
	}
	return amount, nil
}

// StandardizeAmount converts receipt amount notations into a form accepted by
// decimal.NewFromString.
func StandardizeAmount(amountStr string) string {
	amountStr = norm.NFKC.String(amountStr)
	amountStr = symbolPattern.ReplaceAllString(amountStr, "")
	amountStr = strings.ReplaceAll(amountStr, "'", "")

	if strings.Contains(amountStr, ",") && strings.Contains(amountStr, ".") {
		if strings.LastIndex(amountStr, ".") < strings.LastIndex(amountStr, ",") {
			// European format (1.234,56)
			amountStr = strings.ReplaceAll(amountStr, ".", "")
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	} else if strings.Contains(amountStr, ",") {
		parts := strings.Split(amountStr, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// decimal comma (12,50)
			amountStr = strings.ReplaceAll(amountStr, ",", ".")
		} else {
			amountStr = strings.ReplaceAll(amountStr, ",", "")
		}
	}

	return amountStr
}

// DetectCurrency infers the currency of a text fragment: yen markers select
// JPY, dollar or a two-decimal literal selects USD, euro selects EUR and
// anything else defaults to JPY.
func DetectCurrency(text string) models.Currency {
	folded := norm.NFKC.String(text)
	switch {
	case strings.ContainsAny(folded, "¥円"):
		return models.CurrencyJPY
	case strings.Contains(folded, "$"):
		return models.CurrencyUSD
	case strings.Contains(folded, "€"):
		return models.CurrencyEUR
	case twoDecimalPattern.MatchString(folded):
		return models.CurrencyUSD
	}
	return models.DefaultCurrency
}

// Round rounds amount to the minor unit of currency: whole yen for JPY,
// cents otherwise.
func Round(amount decimal.Decimal, currency models.Currency) decimal.Decimal {
	return amount.Round(currency.DecimalPlaces())
}

// FormatAmount renders amount with the currency symbol and its minor-unit
// precision, e.g. "¥1000" or "$3.49".
func FormatAmount(amount decimal.Decimal, currency models.Currency) string {
	formatted := amount.StringFixed(currency.DecimalPlaces())
	switch currency {
	case models.CurrencyJPY:
		return "¥" + formatted
	case models.CurrencyUSD:
		return "$" + formatted
	case models.CurrencyEUR:
		return "€" + formatted
	case "":
		return formatted
	default:
		return string(currency) + " " + formatted
	}
}

// PriceBounds returns the plausible single-item price range for currency.
func PriceBounds(currency models.Currency) (lower, upper decimal.Decimal) {
	if currency == models.CurrencyJPY {
		return decimal.NewFromInt(10), decimal.NewFromInt(100000)
	}
	return decimal.NewFromFloat(0.1), decimal.NewFromInt(1000)
}

// IsPlausiblePrice reports whether amount lies within PriceBounds.
func IsPlausiblePrice(amount decimal.Decimal, currency models.Currency) bool {
	lower, upper := PriceBounds(currency)
	return amount.GreaterThanOrEqual(lower) && amount.LessThanOrEqual(upper)
}

// RelativeDifference returns |a-b| / max(|a|,|b|), 0 when both are zero.
func RelativeDifference(a, b decimal.Decimal) float64 {
	largest := decimal.Max(a.Abs(), b.Abs())
	if largest.IsZero() {
		return 0
	}
	diff, _ := a.Sub(b).Abs().Div(largest).Float64()
	return diff
}
