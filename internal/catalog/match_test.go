package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultRule(t *testing.T, id string) *Rule {
	t.Helper()
	for _, cfg := range DefaultPatterns() {
		if cfg.ID == id {
			rule, err := compile(cfg)
			require.NoError(t, err)
			return rule
		}
	}
	t.Fatalf("no default pattern %s", id)
	return nil
}

func TestMatchAt_WarehouseFiveLine(t *testing.T) {
	rule := defaultRule(t, "warehouse_5line")
	lines := []string{"COSTCO", "Widget", "123456", "2個", "500", "1,000 T"}

	_, ok := rule.MatchAt(lines, 1, false)
	assert.False(t, ok, "single-line pass must skip multi-line sub-patterns")

	m, ok := rule.MatchAt(lines, 1, true)
	require.True(t, ok)
	assert.Equal(t, "warehouse_5line", m.RuleID)
	assert.Equal(t, TypeMultiLine, m.Kind)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, m.Positions)
	assert.Equal(t, Captures{
		Name:        "Widget",
		Price:       "1,000",
		Quantity:    "2",
		UnitPrice:   "500",
		ProductCode: "123456",
		TaxCode:     "T",
	}, m.Captures)

	_, ok = rule.MatchAt(lines, 2, true)
	assert.False(t, ok)
}

func TestMatchAt_SingleLine(t *testing.T) {
	rule := defaultRule(t, "generic_yen_prefix")

	tests := []struct {
		line  string
		ok    bool
		name  string
		price string
		tax   string
	}{
		{"Snack ¥228", true, "Snack", "228", ""},
		{"牛乳¥198*", true, "牛乳", "198", "*"},
		{"Bread ¥1,280 T", true, "Bread", "1,280", "T"},
		{"123 ¥228", false, "", "", ""},
		{"Snack 228", false, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			m, ok := rule.MatchAt([]string{tt.line}, 0, false)
			require.Equal(t, tt.ok, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.name, m.Captures.Name)
			assert.Equal(t, tt.price, m.Captures.Price)
			assert.Equal(t, tt.tax, m.Captures.TaxCode)
			assert.Equal(t, []int{0}, m.Positions)
		})
	}
}

func TestMatchAt_ContextAware(t *testing.T) {
	rule := defaultRule(t, "quantity_unit_context")
	lines := []string{"牛乳", "2個 x 単198", "¥396 軽"}

	m, ok := rule.MatchAt(lines, 1, false)
	require.True(t, ok)
	assert.Equal(t, []int{0, 1, 2}, m.Positions)
	assert.Equal(t, "牛乳", m.Captures.Name)
	assert.Equal(t, "2", m.Captures.Quantity)
	assert.Equal(t, "198", m.Captures.UnitPrice)
	assert.Equal(t, "396", m.Captures.Price)
	assert.Equal(t, "軽", m.Captures.TaxCode)

	_, ok = rule.MatchAt(lines[1:], 0, false)
	assert.False(t, ok, "anchor without a previous name line must not match")
}

func TestMatchAt_Discount(t *testing.T) {
	rule := defaultRule(t, "discount_line")
	m, ok := rule.MatchAt([]string{"Milk ¥200", "値引 -50"}, 1, false)
	require.True(t, ok)
	assert.True(t, m.Captures.IsAdjustment())
	assert.Equal(t, "50", m.Captures.Discount)
	assert.Equal(t, []int{1}, m.Positions)
}

func TestMatchAt_LineContent(t *testing.T) {
	cfg := validSingle("content")
	cfg.SubPatterns[0].SingleLine = &SinglePattern{
		Regex:  `([\d,]+)円`,
		Fields: []FieldRule{{Field: FieldName, Source: SourceLineContent}, group(FieldPrice, 1)},
	}
	rule, err := compile(cfg)
	require.NoError(t, err)

	m, ok := rule.MatchAt([]string{"おにぎり 150円 鮭"}, 0, false)
	require.True(t, ok)
	assert.Equal(t, "おにぎり 鮭", m.Captures.Name)
	assert.Equal(t, "150", m.Captures.Price)
}

func TestMatchAt_ValidationRulesDropCandidates(t *testing.T) {
	cfg := validSingle("bounded")
	cfg.SubPatterns[0].ValidationRules = []ValidationRule{
		{Field: FieldPrice, Kind: KindRange, Min: ptr(10), Max: ptr(1000)},
		{Field: FieldName, Kind: KindLength, Max: ptr(5)},
	}
	rule, err := compile(cfg)
	require.NoError(t, err)

	_, ok := rule.MatchAt([]string{"Milk 200"}, 0, false)
	assert.True(t, ok)
	_, ok = rule.MatchAt([]string{"Milk 5"}, 0, false)
	assert.False(t, ok, "price below range")
	_, ok = rule.MatchAt([]string{"Milk 2,000"}, 0, false)
	assert.False(t, ok, "price above range")
	_, ok = rule.MatchAt([]string{"Chocolate 200"}, 0, false)
	assert.False(t, ok, "name too long")
}

func TestMatchAt_OutOfRange(t *testing.T) {
	rule := defaultRule(t, "generic_yen_prefix")
	_, ok := rule.MatchAt([]string{"Snack ¥228"}, 3, false)
	assert.False(t, ok)
	_, ok = rule.MatchAt(nil, 0, false)
	assert.False(t, ok)
}
