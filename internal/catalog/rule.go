package catalog

import (
	"fmt"
	"regexp"
	"strings"

	"fjacquet/receipt-extract/internal/parsererror"
)

// maxContextOffset bounds how far a context-aware rule may look from its anchor.
const maxContextOffset = 5

// Rule is a validated pattern with its regular expressions compiled. Rules
// are immutable; catalog mutations replace them.
type Rule struct {
	config PatternConfig
	subs   []compiledSub
}

type compiledSub struct {
	kind     SubPatternType
	anchor   *regexp.Regexp
	lines    []*regexp.Regexp
	adjacent []compiledAdjacency
	fields   []FieldRule
	checks   []compiledCheck
	span     int
}

type compiledAdjacency struct {
	offset int
	regex  *regexp.Regexp
}

type compiledCheck struct {
	rule    ValidationRule
	pattern *regexp.Regexp
}

// ID returns the pattern id.
func (r *Rule) ID() string { return r.config.ID }

// Priority returns the pattern priority.
func (r *Rule) Priority() int { return r.config.Priority }

// Confidence returns the base confidence of items produced by the rule.
func (r *Rule) Confidence() float64 { return r.config.Confidence }

// Enabled reports whether the rule takes part in extraction.
func (r *Rule) Enabled() bool { return r.config.Enabled }

// IsStoreSpecific reports whether the rule is restricted to named stores.
func (r *Rule) IsStoreSpecific() bool { return r.config.IsStoreSpecific() }

// AppliesToStore reports whether store is one of the rule's identifiers.
func (r *Rule) AppliesToStore(store string) bool {
	for _, id := range r.config.StoreIdentifiers {
		if strings.EqualFold(id, store) {
			return true
		}
	}
	return false
}

// HasMultiLine reports whether any sub-pattern spans several lines.
func (r *Rule) HasMultiLine() bool {
	for _, sub := range r.subs {
		if sub.kind == TypeMultiLine {
			return true
		}
	}
	return false
}

// Config returns a copy of the rule definition.
func (r *Rule) Config() PatternConfig { return r.config.Clone() }

// Validate checks a pattern definition and returns a *parsererror.ConfigError
// naming the first offending field.
func Validate(cfg PatternConfig) error {
	_, err := compile(cfg)
	return err
}

func compile(cfg PatternConfig) (*Rule, error) {
	fail := func(field, format string, args ...interface{}) error {
		return &parsererror.ConfigError{PatternID: cfg.ID, Field: field, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fail("id", "must not be empty")
	}
	if cfg.Confidence < 0 || cfg.Confidence > 1 {
		return nil, fail("confidence", "must be within [0,1], got %v", cfg.Confidence)
	}
	if len(cfg.SubPatterns) == 0 {
		return nil, fail("sub_patterns", "at least one sub-pattern is required")
	}
	for idx, id := range cfg.StoreIdentifiers {
		if strings.TrimSpace(id) == "" {
			return nil, fail(fmt.Sprintf("store_identifiers[%d]", idx), "must not be empty")
		}
	}

	rule := &Rule{config: cfg.Clone()}
	for idx, sp := range cfg.SubPatterns {
		sub, err := compileSub(sp, fmt.Sprintf("sub_patterns[%d]", idx), fail)
		if err != nil {
			return nil, err
		}
		rule.subs = append(rule.subs, sub)
	}
	return rule, nil
}

func compileSub(sp SubPattern, path string, fail func(string, string, ...interface{}) error) (compiledSub, error) {
	sub := compiledSub{kind: sp.Type, span: 1}

	set := 0
	for _, present := range []bool{sp.SingleLine != nil, sp.MultiLine != nil, sp.ContextAware != nil} {
		if present {
			set++
		}
	}

	var minOffset, maxOffset int
	switch sp.Type {
	case TypeSingleLine:
		if sp.SingleLine == nil || set != 1 {
			return sub, fail(path+".single_line", "exactly the single_line payload must be set")
		}
		re, err := regexp.Compile(sp.SingleLine.Regex)
		if err != nil || sp.SingleLine.Regex == "" {
			return sub, fail(path+".single_line.regex", "invalid regex %q", sp.SingleLine.Regex)
		}
		sub.anchor = re
	case TypeMultiLine:
		if sp.MultiLine == nil || set != 1 {
			return sub, fail(path+".multi_line", "exactly the multi_line payload must be set")
		}
		ml := sp.MultiLine
		if ml.LineCount < 2 {
			return sub, fail(path+".multi_line.line_count", "must be at least 2, got %d", ml.LineCount)
		}
		if len(ml.Lines) != ml.LineCount {
			return sub, fail(path+".multi_line.lines", "expected %d line regexes, got %d", ml.LineCount, len(ml.Lines))
		}
		for li, expr := range ml.Lines {
			re, err := regexp.Compile(expr)
			if err != nil {
				return sub, fail(fmt.Sprintf("%s.multi_line.lines[%d]", path, li), "invalid regex %q", expr)
			}
			sub.lines = append(sub.lines, re)
		}
		sub.span = ml.LineCount
		maxOffset = ml.LineCount - 1
	case TypeContextAware:
		if sp.ContextAware == nil || set != 1 {
			return sub, fail(path+".context_aware", "exactly the context_aware payload must be set")
		}
		ca := sp.ContextAware
		re, err := regexp.Compile(ca.Regex)
		if err != nil || ca.Regex == "" {
			return sub, fail(path+".context_aware.regex", "invalid regex %q", ca.Regex)
		}
		sub.anchor = re
		for ai, adj := range ca.Adjacent {
			if adj.Offset == 0 || adj.Offset < -maxContextOffset || adj.Offset > maxContextOffset {
				return sub, fail(fmt.Sprintf("%s.context_aware.adjacent[%d].offset", path, ai),
					"must be non-zero and within ±%d, got %d", maxContextOffset, adj.Offset)
			}
			adjRe, err := regexp.Compile(adj.Regex)
			if err != nil {
				return sub, fail(fmt.Sprintf("%s.context_aware.adjacent[%d].regex", path, ai), "invalid regex %q", adj.Regex)
			}
			sub.adjacent = append(sub.adjacent, compiledAdjacency{offset: adj.Offset, regex: adjRe})
		}
		minOffset, maxOffset = -maxContextOffset, maxContextOffset
	default:
		return sub, fail(path+".type", "unsupported sub-pattern type %q", sp.Type)
	}

	fields := sp.fields()
	if len(fields) == 0 {
		return sub, fail(path+".fields", "extraction rules must not be empty")
	}
	extractsAmount := false
	for fi, fr := range fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, fi)
		if !fr.Field.valid() {
			return sub, fail(fpath+".field", "unknown field %q", fr.Field)
		}
		if fr.Offset < minOffset || fr.Offset > maxOffset {
			return sub, fail(fpath+".offset", "offset %d out of range [%d,%d]", fr.Offset, minOffset, maxOffset)
		}
		switch fr.Source {
		case SourceGroup:
			re := sub.regexAt(fr.Offset)
			if re == nil {
				return sub, fail(fpath+".offset", "no regex applies at offset %d", fr.Offset)
			}
			if fr.Group < 0 || fr.Group > re.NumSubexp() {
				return sub, fail(fpath+".group", "group %d not in regex with %d groups", fr.Group, re.NumSubexp())
			}
		case SourceLineOffset:
		case SourceLineContent:
			if sp.Type == TypeMultiLine {
				return sub, fail(fpath+".source", "line_content is not available for multi_line patterns")
			}
		default:
			return sub, fail(fpath+".source", "unsupported source %q", fr.Source)
		}
		if fr.Field == FieldPrice || fr.Field == FieldDiscount {
			extractsAmount = true
		}
	}
	if !extractsAmount {
		return sub, fail(path+".fields", "must extract price or discount")
	}
	sub.fields = append([]FieldRule(nil), fields...)

	for vi, vr := range sp.ValidationRules {
		vpath := fmt.Sprintf("%s.validation_rules[%d]", path, vi)
		if !vr.Field.valid() {
			return sub, fail(vpath+".field", "unknown field %q", vr.Field)
		}
		check := compiledCheck{rule: vr.clone()}
		switch vr.Kind {
		case KindRange, KindLength:
			if vr.Min == nil && vr.Max == nil {
				return sub, fail(vpath, "%s rule needs min or max", vr.Kind)
			}
			if vr.Min != nil && vr.Max != nil && *vr.Min > *vr.Max {
				return sub, fail(vpath+".min", "min %v exceeds max %v", *vr.Min, *vr.Max)
			}
		case KindPattern:
			re, err := regexp.Compile(vr.Pattern)
			if err != nil || vr.Pattern == "" {
				return sub, fail(vpath+".pattern", "invalid regex %q", vr.Pattern)
			}
			check.pattern = re
		default:
			return sub, fail(vpath+".kind", "unsupported validation kind %q", vr.Kind)
		}
		sub.checks = append(sub.checks, check)
	}

	return sub, nil
}

// regexAt returns the regex applied to the line at offset from the anchor.
func (s compiledSub) regexAt(offset int) *regexp.Regexp {
	switch s.kind {
	case TypeMultiLine:
		if offset >= 0 && offset < len(s.lines) {
			return s.lines[offset]
		}
	case TypeSingleLine:
		if offset == 0 {
			return s.anchor
		}
	case TypeContextAware:
		if offset == 0 {
			return s.anchor
		}
		for _, adj := range s.adjacent {
			if adj.offset == offset {
				return adj.regex
			}
		}
	}
	return nil
}
