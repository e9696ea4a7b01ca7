// Package catalog holds the validated set of receipt line-item extraction
// rules and the interpreter that applies them to receipt lines.
package catalog

import "encoding/json"

// SubPatternType selects the variant of a SubPattern.
type SubPatternType string

// Sub-pattern variants
const (
	TypeSingleLine   SubPatternType = "single_line"
	TypeMultiLine    SubPatternType = "multi_line"
	TypeContextAware SubPatternType = "context_aware"
)

// Field names an item attribute a rule can extract.
type Field string

// Extractable fields
const (
	FieldName        Field = "name"
	FieldPrice       Field = "price"
	FieldQuantity    Field = "quantity"
	FieldUnitPrice   Field = "unit_price"
	FieldProductCode Field = "product_code"
	FieldTaxCode     Field = "tax_code"
	FieldDiscount    Field = "discount"
)

func (f Field) valid() bool {
	switch f {
	case FieldName, FieldPrice, FieldQuantity, FieldUnitPrice, FieldProductCode, FieldTaxCode, FieldDiscount:
		return true
	}
	return false
}

// FieldSource selects where a field value is read from.
type FieldSource string

// Field sources
const (
	// SourceGroup reads regex capture group Group of the line at Offset.
	SourceGroup FieldSource = "group"
	// SourceLineOffset reads the whole text of the line at Offset.
	SourceLineOffset FieldSource = "line_offset"
	// SourceLineContent reads the anchor line with the matched span removed.
	SourceLineContent FieldSource = "line_content"
)

// FieldRule extracts one field from a match.
type FieldRule struct {
	Field  Field       `json:"field" yaml:"field"`
	Source FieldSource `json:"source" yaml:"source"`
	Group  int         `json:"group,omitempty" yaml:"group,omitempty"`
	Offset int         `json:"offset,omitempty" yaml:"offset,omitempty"`
}

// ValidationKind selects the check a ValidationRule performs.
type ValidationKind string

// Validation kinds
const (
	KindRange   ValidationKind = "range"
	KindLength  ValidationKind = "length"
	KindPattern ValidationKind = "pattern"
)

// ValidationRule constrains an extracted field. Range compares the numeric
// value, length the character count; either bound may be omitted.
type ValidationRule struct {
	Field   Field          `json:"field" yaml:"field"`
	Kind    ValidationKind `json:"kind" yaml:"kind"`
	Min     *float64       `json:"min,omitempty" yaml:"min,omitempty"`
	Max     *float64       `json:"max,omitempty" yaml:"max,omitempty"`
	Pattern string         `json:"pattern,omitempty" yaml:"pattern,omitempty"`
}

// SinglePattern matches one line.
type SinglePattern struct {
	Regex  string      `json:"regex" yaml:"regex"`
	Fields []FieldRule `json:"fields" yaml:"fields"`
}

// MultiLinePattern matches LineCount consecutive lines, one regex per line.
// An empty regex accepts any line.
type MultiLinePattern struct {
	LineCount int         `json:"line_count" yaml:"line_count"`
	Lines     []string    `json:"lines" yaml:"lines"`
	Fields    []FieldRule `json:"fields" yaml:"fields"`
}

// Adjacency requires the line at Offset from the anchor to match Regex.
type Adjacency struct {
	Offset int    `json:"offset" yaml:"offset"`
	Regex  string `json:"regex" yaml:"regex"`
}

// ContextPattern matches an anchor line whose neighbours satisfy adjacency rules.
type ContextPattern struct {
	Regex    string      `json:"regex" yaml:"regex"`
	Adjacent []Adjacency `json:"adjacent,omitempty" yaml:"adjacent,omitempty"`
	Fields   []FieldRule `json:"fields" yaml:"fields"`
}

// SubPattern is a tagged variant: exactly the payload named by Type is set.
type SubPattern struct {
	Type            SubPatternType    `json:"type" yaml:"type"`
	SingleLine      *SinglePattern    `json:"single_line,omitempty" yaml:"single_line,omitempty"`
	MultiLine       *MultiLinePattern `json:"multi_line,omitempty" yaml:"multi_line,omitempty"`
	ContextAware    *ContextPattern   `json:"context_aware,omitempty" yaml:"context_aware,omitempty"`
	ValidationRules []ValidationRule  `json:"validation_rules,omitempty" yaml:"validation_rules,omitempty"`
}

// PatternConfig is a named, prioritized rule set.
type PatternConfig struct {
	ID               string       `json:"id" yaml:"id"`
	Name             string       `json:"name" yaml:"name"`
	Description      string       `json:"description,omitempty" yaml:"description,omitempty"`
	Priority         int          `json:"priority" yaml:"priority"`
	Enabled          bool         `json:"enabled" yaml:"enabled"`
	Confidence       float64      `json:"confidence" yaml:"confidence"`
	StoreIdentifiers []string     `json:"store_identifiers,omitempty" yaml:"store_identifiers,omitempty"`
	SubPatterns      []SubPattern `json:"sub_patterns" yaml:"sub_patterns"`
}

// UnmarshalJSON decodes a pattern, treating an absent "enabled" as true.
func (p *PatternConfig) UnmarshalJSON(data []byte) error {
	type plain PatternConfig
	aux := struct {
		*plain
		Enabled *bool `json:"enabled"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Enabled = aux.Enabled == nil || *aux.Enabled
	return nil
}

// IsStoreSpecific reports whether the pattern is restricted to named stores.
func (p PatternConfig) IsStoreSpecific() bool {
	return len(p.StoreIdentifiers) > 0
}

// Clone returns a deep copy of the pattern.
func (p PatternConfig) Clone() PatternConfig {
	out := p
	out.StoreIdentifiers = append([]string(nil), p.StoreIdentifiers...)
	out.SubPatterns = make([]SubPattern, len(p.SubPatterns))
	for idx, sp := range p.SubPatterns {
		out.SubPatterns[idx] = sp.clone()
	}
	return out
}

func (sp SubPattern) clone() SubPattern {
	out := sp
	if sp.SingleLine != nil {
		v := *sp.SingleLine
		v.Fields = append([]FieldRule(nil), sp.SingleLine.Fields...)
		out.SingleLine = &v
	}
	if sp.MultiLine != nil {
		v := *sp.MultiLine
		v.Lines = append([]string(nil), sp.MultiLine.Lines...)
		v.Fields = append([]FieldRule(nil), sp.MultiLine.Fields...)
		out.MultiLine = &v
	}
	if sp.ContextAware != nil {
		v := *sp.ContextAware
		v.Adjacent = append([]Adjacency(nil), sp.ContextAware.Adjacent...)
		v.Fields = append([]FieldRule(nil), sp.ContextAware.Fields...)
		out.ContextAware = &v
	}
	if sp.ValidationRules != nil {
		out.ValidationRules = make([]ValidationRule, len(sp.ValidationRules))
		for idx, vr := range sp.ValidationRules {
			out.ValidationRules[idx] = vr.clone()
		}
	}
	return out
}

func (vr ValidationRule) clone() ValidationRule {
	out := vr
	if vr.Min != nil {
		v := *vr.Min
		out.Min = &v
	}
	if vr.Max != nil {
		v := *vr.Max
		out.Max = &v
	}
	return out
}

// fields returns the extraction rules of the active variant.
func (sp SubPattern) fields() []FieldRule {
	switch sp.Type {
	case TypeSingleLine:
		if sp.SingleLine != nil {
			return sp.SingleLine.Fields
		}
	case TypeMultiLine:
		if sp.MultiLine != nil {
			return sp.MultiLine.Fields
		}
	case TypeContextAware:
		if sp.ContextAware != nil {
			return sp.ContextAware.Fields
		}
	}
	return nil
}
