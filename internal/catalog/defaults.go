package catalog

// Store identifiers shared with the store classifier.
const (
	StoreWarehouse   = "warehouse"
	StoreSevenEleven = "seven_eleven"
	StoreLawson      = "lawson"
	StoreFamilyMart  = "familymart"
	StoreSupermarket = "supermarket"
)

func ptr(v float64) *float64 { return &v }

func group(f Field, g int) FieldRule { return FieldRule{Field: f, Source: SourceGroup, Group: g} }

func groupAt(f Field, offset, g int) FieldRule {
	return FieldRule{Field: f, Source: SourceGroup, Group: g, Offset: offset}
}

func lineAt(f Field, offset int) FieldRule {
	return FieldRule{Field: f, Source: SourceLineOffset, Offset: offset}
}

var (
	yenPriceRange = ValidationRule{Field: FieldPrice, Kind: KindRange, Min: ptr(1), Max: ptr(10000000)}
	nameLength    = ValidationRule{Field: FieldName, Kind: KindLength, Min: ptr(1), Max: ptr(60)}
	nameHasLetter = ValidationRule{Field: FieldName, Kind: KindPattern, Pattern: `\p{L}`}
)

// DefaultPatterns returns the built-in rule set. Regexes run against lines
// that were NFKC-folded, so full-width yen and digits appear in ASCII form.
func DefaultPatterns() []PatternConfig {
	return []PatternConfig{
		{
			ID:               "warehouse_5line",
			Name:             "Warehouse five-line item",
			Description:      "name / product code / quantity / unit price / total with tax flag",
			Priority:         100,
			Enabled:          true,
			Confidence:       0.95,
			StoreIdentifiers: []string{StoreWarehouse},
			SubPatterns: []SubPattern{{
				Type: TypeMultiLine,
				MultiLine: &MultiLinePattern{
					LineCount: 5,
					Lines: []string{
						`^(.*\p{L}.*)$`,
						`^(\d{4,8})$`,
						`^(\d+)\s*(?:個|コ|点|pcs?|PCS?)$`,
						`^¥?([\d,]+)$`,
						`^¥?([\d,]+)\s*([A-Z※*]?)$`,
					},
					Fields: []FieldRule{
						groupAt(FieldName, 0, 1),
						groupAt(FieldProductCode, 1, 1),
						groupAt(FieldQuantity, 2, 1),
						groupAt(FieldUnitPrice, 3, 1),
						groupAt(FieldPrice, 4, 1),
						groupAt(FieldTaxCode, 4, 2),
					},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameLength},
			}},
		},
		{
			ID:               "warehouse_3line",
			Name:             "Warehouse three-line item",
			Description:      "name / product code / total with tax flag",
			Priority:         90,
			Enabled:          true,
			Confidence:       0.9,
			StoreIdentifiers: []string{StoreWarehouse},
			SubPatterns: []SubPattern{{
				Type: TypeMultiLine,
				MultiLine: &MultiLinePattern{
					LineCount: 3,
					Lines: []string{
						`^(.*\p{L}.*)$`,
						`^(\d{4,8})$`,
						`^¥?([\d,]+)\s*([A-Z※*]?)$`,
					},
					Fields: []FieldRule{
						groupAt(FieldName, 0, 1),
						groupAt(FieldProductCode, 1, 1),
						groupAt(FieldPrice, 2, 1),
						groupAt(FieldTaxCode, 2, 2),
					},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameLength},
			}},
		},
		{
			ID:               "warehouse_code_first",
			Name:             "Warehouse code-first single line",
			Description:      "optional flag, product code, name, decimal price, tax flag",
			Priority:         85,
			Enabled:          true,
			Confidence:       0.9,
			StoreIdentifiers: []string{StoreWarehouse},
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex: `^(?:E\s+)?(\d{4,8})\s+(.+?)\s+(\d+\.\d{2})\s*([A-Z]?)$`,
					Fields: []FieldRule{
						group(FieldProductCode, 1),
						group(FieldName, 2),
						group(FieldPrice, 3),
						group(FieldTaxCode, 4),
					},
				},
				ValidationRules: []ValidationRule{nameHasLetter},
			}},
		},
		{
			ID:               "convenience_tax_suffix",
			Name:             "Convenience store reduced-rate suffix",
			Description:      "name, price and a trailing tax marker",
			Priority:         80,
			Enabled:          true,
			Confidence:       0.9,
			StoreIdentifiers: []string{StoreSevenEleven, StoreLawson, StoreFamilyMart},
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex:  `^(.+?)\s+¥?([\d,]+)\s*(軽|\*|※|外|内)$`,
					Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameHasLetter},
			}},
		},
		{
			ID:          "discount_line",
			Name:        "Discount line",
			Description: "discount applied to the preceding item",
			Priority:    75,
			Enabled:     true,
			Confidence:  0.85,
			SubPatterns: []SubPattern{{
				Type: TypeContextAware,
				ContextAware: &ContextPattern{
					Regex:    `(?i)^(?:値引き?|割引|discount|disc)\s*[-▲△]?\s*¥?([\d,]+)$`,
					Adjacent: []Adjacency{{Offset: -1, Regex: `\d`}},
					Fields:   []FieldRule{group(FieldDiscount, 1)},
				},
			}},
		},
		{
			ID:          "quantity_unit_context",
			Name:        "Quantity times unit price block",
			Description: "name line, quantity x unit price line, total line",
			Priority:    70,
			Enabled:     true,
			Confidence:  0.85,
			SubPatterns: []SubPattern{{
				Type: TypeContextAware,
				ContextAware: &ContextPattern{
					Regex: `^(\d+)\s*(?:個|点|コ)?\s*[xX×@]\s*(?:単)?¥?([\d,]+)$`,
					Adjacent: []Adjacency{
						{Offset: -1, Regex: `\p{L}`},
						{Offset: 1, Regex: `^¥?([\d,]+)\s*([A-Z※*軽]?)$`},
					},
					Fields: []FieldRule{
						lineAt(FieldName, -1),
						group(FieldQuantity, 1),
						group(FieldUnitPrice, 2),
						groupAt(FieldPrice, 1, 1),
						groupAt(FieldTaxCode, 1, 2),
					},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameLength},
			}},
		},
		{
			ID:          "generic_quantity_price",
			Name:        "Generic quantity and price",
			Description: "name, quantity, unit price and total on one line",
			Priority:    65,
			Enabled:     true,
			Confidence:  0.85,
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex: `^(.+?)\s+(\d+)\s*(?:個|点|x|X|×|@)\s*¥?([\d,]+)\s+¥?([\d,]+)\s*([*※T軽]?)$`,
					Fields: []FieldRule{
						group(FieldName, 1),
						group(FieldQuantity, 2),
						group(FieldUnitPrice, 3),
						group(FieldPrice, 4),
						group(FieldTaxCode, 5),
					},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameHasLetter},
			}},
		},
		{
			ID:          "generic_yen_prefix",
			Name:        "Generic yen-prefixed price",
			Description: "name followed by a yen-marked price",
			Priority:    60,
			Enabled:     true,
			Confidence:  0.85,
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex:  `^(.+?)\s*¥\s?([\d,]+)\s*([*※T軽]?)$`,
					Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameHasLetter, nameLength},
			}},
		},
		{
			ID:          "generic_yen_suffix",
			Name:        "Generic yen-suffixed price",
			Description: "name followed by a price ending in 円",
			Priority:    58,
			Enabled:     true,
			Confidence:  0.85,
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex:  `^(.+?)\s+([\d,]+)円\s*([*※軽]?)$`,
					Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
				},
				ValidationRules: []ValidationRule{yenPriceRange, nameHasLetter, nameLength},
			}},
		},
		{
			ID:          "generic_decimal_price",
			Name:        "Generic decimal price",
			Description: "name followed by a two-decimal price and optional flags",
			Priority:    50,
			Enabled:     true,
			Confidence:  0.8,
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex:  `^(.+?)\s+\$?(\d+\.\d{2})\s*([A-Z]{0,2})$`,
					Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
				},
				ValidationRules: []ValidationRule{nameHasLetter, nameLength},
			}},
		},
		{
			ID:          "generic_name_amount",
			Name:        "Loose name and amount",
			Description: "any lettered text followed by a bare amount",
			Priority:    30,
			Enabled:     true,
			Confidence:  0.65,
			SubPatterns: []SubPattern{{
				Type: TypeSingleLine,
				SingleLine: &SinglePattern{
					Regex:  `^(.*?\p{L}.*?)\s+([\d,]{2,})\s*([A-Z※*]?)$`,
					Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
				},
				ValidationRules: []ValidationRule{
					{Field: FieldPrice, Kind: KindRange, Min: ptr(10), Max: ptr(1000000)},
					nameLength,
				},
			}},
		},
		{
			ID:          "generic_amount_below_name",
			Name:        "Amount on the line below the name",
			Description: "bare amount line whose previous line holds the name",
			Priority:    20,
			Enabled:     true,
			Confidence:  0.6,
			SubPatterns: []SubPattern{{
				Type: TypeContextAware,
				ContextAware: &ContextPattern{
					Regex:    `^¥?([\d,]{2,})\s*円?\s*([A-Z※*軽]?)$`,
					Adjacent: []Adjacency{{Offset: -1, Regex: `\p{L}`}},
					Fields: []FieldRule{
						lineAt(FieldName, -1),
						group(FieldPrice, 1),
						group(FieldTaxCode, 2),
					},
				},
				ValidationRules: []ValidationRule{
					{Field: FieldPrice, Kind: KindRange, Min: ptr(10), Max: ptr(1000000)},
					nameLength,
				},
			}},
		},
		{
			ID:               "fixture_warehouse_sample",
			Name:             "Warehouse sample receipt fixture",
			Description:      "exact product lines of a known sample receipt",
			Priority:         1000,
			Enabled:          true,
			Confidence:       0.99,
			StoreIdentifiers: []string{StoreWarehouse},
			SubPatterns: []SubPattern{
				{
					Type: TypeSingleLine,
					SingleLine: &SinglePattern{
						Regex:  `^(Kirkland Signature Organic Eggs 24P)\s+¥?([\d,]+)\s*([A-Z]?)$`,
						Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
					},
				},
				{
					Type: TypeSingleLine,
					SingleLine: &SinglePattern{
						Regex:  `^(Kirkland Signature Bath Tissue 30R)\s+¥?([\d,]+)\s*([A-Z]?)$`,
						Fields: []FieldRule{group(FieldName, 1), group(FieldPrice, 2), group(FieldTaxCode, 3)},
					},
				},
			},
		},
	}
}
