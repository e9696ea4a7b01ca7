package models

// Severity grades a validation issue.
type Severity string

// Validation severities
const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// ValidationIssue is a single finding of a validation rule.
// ItemIndex is -1 for findings about the whole result.
type ValidationIssue struct {
	Rule      string   `json:"rule" yaml:"rule"`
	Severity  Severity `json:"severity" yaml:"severity"`
	Field     string   `json:"field,omitempty" yaml:"field,omitempty"`
	Message   string   `json:"message" yaml:"message"`
	ItemIndex int      `json:"item_index" yaml:"item_index"`
}

// Correction records one change made by auto-correction.
type Correction struct {
	ItemIndex  int     `json:"item_index" yaml:"item_index"`
	Field      string  `json:"field" yaml:"field"`
	OldValue   string  `json:"old_value" yaml:"old_value"`
	NewValue   string  `json:"new_value" yaml:"new_value"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Reason     string  `json:"reason" yaml:"reason"`
}

// StageAttempt is the diagnostic record of one pipeline stage. A stage that
// did not run carries the reason in SkipReason.
type StageAttempt struct {
	Stage      string  `json:"stage" yaml:"stage"`
	Attempted  bool    `json:"attempted" yaml:"attempted"`
	ItemsFound int     `json:"items_found" yaml:"items_found"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	PatternID  string  `json:"pattern_id,omitempty" yaml:"pattern_id,omitempty"`
	DurationMS int64   `json:"duration_ms" yaml:"duration_ms"`
	SkipReason string  `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ResultMetadata describes how a ParseResult was produced.
type ResultMetadata struct {
	ProcessingTimeMS  int64             `json:"processing_time_ms" yaml:"processing_time_ms"`
	StoreType         string            `json:"store_type,omitempty" yaml:"store_type,omitempty"`
	PatternUsed       string            `json:"pattern_used" yaml:"pattern_used"`
	FallbackUsed      bool              `json:"fallback_used" yaml:"fallback_used"`
	PatternsAttempted []StageAttempt    `json:"patterns_attempted" yaml:"patterns_attempted"`
	PrimaryMethod     string            `json:"primary_method,omitempty" yaml:"primary_method,omitempty"`
	QualityScore      float64           `json:"quality_score,omitempty" yaml:"quality_score,omitempty"`
	ExternalError     string            `json:"external_error,omitempty" yaml:"external_error,omitempty"`
	RequestID         string            `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Corrections       []Correction      `json:"corrections,omitempty" yaml:"corrections,omitempty"`
	ValidationIssues  []ValidationIssue `json:"validation_issues,omitempty" yaml:"validation_issues,omitempty"`
}

// Clone returns a deep copy of the metadata. PatternsAttempted is never nil
// in the copy.
func (m ResultMetadata) Clone() ResultMetadata {
	out := m
	out.PatternsAttempted = append(make([]StageAttempt, 0, len(m.PatternsAttempted)), m.PatternsAttempted...)
	out.Corrections = append([]Correction(nil), m.Corrections...)
	out.ValidationIssues = append([]ValidationIssue(nil), m.ValidationIssues...)
	return out
}

// ParseResult is the terminal value of an extraction call. Transformations
// return modified copies and never mutate a result handed to a caller.
type ParseResult struct {
	PatternID  string          `json:"pattern_id"`
	Confidence float64         `json:"confidence"`
	Success    bool            `json:"success"`
	Items      []ExtractedItem `json:"items"`
	Metadata   ResultMetadata  `json:"metadata"`
}

// Clone returns a deep copy of the result.
func (r ParseResult) Clone() ParseResult {
	out := r
	out.Items = CloneItems(r.Items)
	out.Metadata = r.Metadata.Clone()
	return out
}

// WithItems returns a copy of r holding items, with confidence recomputed as
// the mean item confidence.
func (r ParseResult) WithItems(items []ExtractedItem) ParseResult {
	out := r.Clone()
	out.Items = CloneItems(items)
	if out.Items == nil {
		out.Items = []ExtractedItem{}
	}
	out.Confidence = MeanConfidence(out.Items)
	return out
}

// IsEmpty reports whether the result carries no items.
func (r ParseResult) IsEmpty() bool {
	return len(r.Items) == 0
}

// EmptyResult returns a successful result without items.
func EmptyResult() ParseResult {
	return ParseResult{Success: true, Items: []ExtractedItem{}}
}

// FailureResult returns the terminal failure state: no items, confidence 0.
func FailureResult(meta ResultMetadata) ParseResult {
	return ParseResult{
		Success:  false,
		Items:    []ExtractedItem{},
		Metadata: meta,
	}
}
