package catalog

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"fjacquet/receipt-extract/internal/currencyutils"
	"fjacquet/receipt-extract/internal/textutils"
)

// Captures holds the raw text of every field a rule extracted.
type Captures struct {
	Name        string
	Price       string
	Quantity    string
	UnitPrice   string
	ProductCode string
	TaxCode     string
	Discount    string
}

func (c *Captures) set(f Field, v string) {
	switch f {
	case FieldName:
		c.Name = v
	case FieldPrice:
		c.Price = v
	case FieldQuantity:
		c.Quantity = v
	case FieldUnitPrice:
		c.UnitPrice = v
	case FieldProductCode:
		c.ProductCode = v
	case FieldTaxCode:
		c.TaxCode = v
	case FieldDiscount:
		c.Discount = v
	}
}

// Get returns the captured text of f.
func (c Captures) Get(f Field) string {
	switch f {
	case FieldName:
		return c.Name
	case FieldPrice:
		return c.Price
	case FieldQuantity:
		return c.Quantity
	case FieldUnitPrice:
		return c.UnitPrice
	case FieldProductCode:
		return c.ProductCode
	case FieldTaxCode:
		return c.TaxCode
	case FieldDiscount:
		return c.Discount
	}
	return ""
}

// IsAdjustment reports whether the match only carries a discount for a
// neighbouring item.
func (c Captures) IsAdjustment() bool {
	return c.Discount != "" && c.Price == ""
}

// Match is one candidate produced by a rule at a position.
type Match struct {
	RuleID string
	Kind   SubPatternType
	// Positions are indices into the matched line slice, ascending.
	Positions []int
	Captures  Captures
}

// MatchAt tries the rule's sub-patterns at pos, in declaration order. With
// multiLine set only multi-line sub-patterns are tried, otherwise only
// single-line and context-aware ones. Candidates failing a validation rule
// are rejected.
func (r *Rule) MatchAt(lines []string, pos int, multiLine bool) (Match, bool) {
	if pos < 0 || pos >= len(lines) {
		return Match{}, false
	}
	for _, sub := range r.subs {
		if (sub.kind == TypeMultiLine) != multiLine {
			continue
		}
		if m, ok := sub.matchAt(lines, pos); ok {
			m.RuleID = r.config.ID
			return m, true
		}
	}
	return Match{}, false
}

func (s compiledSub) matchAt(lines []string, pos int) (Match, bool) {
	groups := map[int][]string{}
	var anchorSpan []int

	switch s.kind {
	case TypeMultiLine:
		if pos+s.span > len(lines) {
			return Match{}, false
		}
		for off, re := range s.lines {
			sm := re.FindStringSubmatch(lines[pos+off])
			if sm == nil {
				return Match{}, false
			}
			groups[off] = sm
		}
	case TypeSingleLine, TypeContextAware:
		loc := s.anchor.FindStringSubmatchIndex(lines[pos])
		if loc == nil {
			return Match{}, false
		}
		anchorSpan = loc[:2]
		groups[0] = submatches(lines[pos], loc)
		for _, adj := range s.adjacent {
			idx := pos + adj.offset
			if idx < 0 || idx >= len(lines) {
				return Match{}, false
			}
			sm := adj.regex.FindStringSubmatch(lines[idx])
			if sm == nil {
				return Match{}, false
			}
			groups[adj.offset] = sm
		}
	}

	m := Match{Kind: s.kind}
	used := map[int]bool{pos: true}
	if s.kind == TypeMultiLine {
		for off := 0; off < s.span; off++ {
			used[pos+off] = true
		}
	}

	for _, fr := range s.fields {
		var value string
		switch fr.Source {
		case SourceGroup:
			sm, ok := groups[fr.Offset]
			if !ok || fr.Group >= len(sm) {
				return Match{}, false
			}
			value = sm[fr.Group]
		case SourceLineOffset:
			idx := pos + fr.Offset
			if idx < 0 || idx >= len(lines) {
				return Match{}, false
			}
			value = lines[idx]
		case SourceLineContent:
			line := lines[pos]
			value = textutils.CollapseSpaces(line[:anchorSpan[0]] + " " + line[anchorSpan[1]:])
		}
		if fr.Offset != 0 {
			used[pos+fr.Offset] = true
		}
		m.Captures.set(fr.Field, strings.TrimSpace(value))
	}

	for _, check := range s.checks {
		if !check.passes(m.Captures.Get(check.rule.Field)) {
			return Match{}, false
		}
	}

	for idx := range used {
		m.Positions = append(m.Positions, idx)
	}
	sort.Ints(m.Positions)
	return m, true
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

// passes reports whether value satisfies the check. Absent optional fields
// are not checked.
func (c compiledCheck) passes(value string) bool {
	if value == "" {
		return true
	}
	switch c.rule.Kind {
	case KindRange:
		amount, err := decimal.NewFromString(currencyutils.StandardizeAmount(value))
		if err != nil {
			return false
		}
		f, _ := amount.Float64()
		return within(f, c.rule.Min, c.rule.Max)
	case KindLength:
		return within(float64(textutils.RuneLen(value)), c.rule.Min, c.rule.Max)
	case KindPattern:
		return c.pattern.MatchString(value)
	}
	return false
}

func within(v float64, lower, upper *float64) bool {
	if lower != nil && v < *lower {
		return false
	}
	if upper != nil && v > *upper {
		return false
	}
	return true
}
