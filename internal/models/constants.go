package models

// Currency is an ISO 4217 currency code.
type Currency string

// Supported currencies
const (
	CurrencyJPY Currency = "JPY"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
)

// DefaultCurrency is assumed when a receipt carries no currency marker.
const DefaultCurrency = CurrencyJPY

// DecimalPlaces returns the number of minor-unit digits kept for the currency.
func (c Currency) DecimalPlaces() int32 {
	if c == CurrencyJPY {
		return 0
	}
	return 2
}

// IsValid reports whether c is a supported currency.
func (c Currency) IsValid() bool {
	switch c {
	case CurrencyJPY, CurrencyUSD, CurrencyEUR:
		return true
	}
	return false
}

// Categories
const (
	CategoryFood         = "food"
	CategoryBeverage     = "beverage"
	CategoryDairy        = "dairy"
	CategoryMeat         = "meat"
	CategoryProduce      = "produce"
	CategoryBakery       = "bakery"
	CategorySnacks       = "snacks"
	CategoryFrozen       = "frozen"
	CategoryAlcohol      = "alcohol"
	CategoryHousehold    = "household"
	CategoryPersonalCare = "personal_care"
	CategoryOther        = "other"
)

var categories = []string{
	CategoryFood,
	CategoryBeverage,
	CategoryDairy,
	CategoryMeat,
	CategoryProduce,
	CategoryBakery,
	CategorySnacks,
	CategoryFrozen,
	CategoryAlcohol,
	CategoryHousehold,
	CategoryPersonalCare,
	CategoryOther,
}

// Categories returns the closed set of category labels.
func Categories() []string {
	out := make([]string, len(categories))
	copy(out, categories)
	return out
}

// IsKnownCategory reports whether label belongs to the category set.
func IsKnownCategory(label string) bool {
	for _, c := range categories {
		if c == label {
			return true
		}
	}
	return false
}

// Primary extraction methods recorded in result metadata
const (
	MethodPattern  = "pattern"
	MethodExternal = "external"
	MethodMerged   = "merged"
	MethodNone     = "none"
)

// File permissions
const (
	PermissionConfigFile = 0600
	PermissionDirectory  = 0750
	PermissionReportFile = 0644
)
