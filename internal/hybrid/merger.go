// Package hybrid reconciles an external structured-extraction service with
// the pattern engine: a good enough external reading is used as is, anything
// else falls back to the engine and the two item lists are merged.
package hybrid

import (
	"context"
	"time"

	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/textutils"
)

// Defaults
const (
	DefaultQualityThreshold = 0.7
	DefaultTimeout          = 30 * time.Second
	// KeepConfidence is the confidence an external item needs to take
	// precedence over engine items in a merge.
	KeepConfidence = 0.5
)

// Engine is the pattern extraction engine.
type Engine interface {
	Extract(ctx context.Context, text string) models.ParseResult
}

// Config tunes the merger.
type Config struct {
	QualityThreshold float64
	Timeout          time.Duration
}

// Merger combines an optional external collaborator with the engine.
type Merger struct {
	extractor docai.Extractor
	engine    Engine
	cfg       Config
	logger    logging.Logger
}

// NewMerger returns a merger. A nil extractor makes it a plain pass-through
// to the engine.
func NewMerger(extractor docai.Extractor, engine Engine, cfg Config, logger logging.Logger) *Merger {
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = DefaultQualityThreshold
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Merger{
		extractor: extractor,
		engine:    engine,
		cfg:       cfg,
		logger:    logging.OrDefault(logger).WithField(logging.FieldComponent, "HybridMerger"),
	}
}

// Extract returns the best result the two sources allow. It fails only when
// neither source produced an item.
func (m *Merger) Extract(ctx context.Context, text string) models.ParseResult {
	if m.extractor == nil {
		return m.engine.Extract(ctx, text)
	}

	external, extErr := m.callExternal(ctx, text)
	quality := 0.0
	var externalItems []models.ExtractedItem
	if extErr == nil && external.Success {
		quality = QualityScore(external)
		externalItems = external.ToItems()
		if quality >= m.cfg.QualityThreshold && len(externalItems) > 0 {
			m.logger.Info("Accepted external extraction",
				logging.F(logging.FieldProvider, m.extractor.Name()),
				logging.F(logging.FieldQuality, quality),
				logging.F(logging.FieldCount, len(externalItems)))
			result := models.EmptyResult().WithItems(externalItems)
			result.PatternID = docai.SourcePattern(m.extractor.Name())
			result.Metadata = models.ResultMetadata{
				PatternUsed:       result.PatternID,
				PatternsAttempted: []models.StageAttempt{},
				PrimaryMethod:     models.MethodExternal,
				QualityScore:      quality,
			}
			return result
		}
	}

	m.logger.Info("Falling back to pattern engine",
		logging.F(logging.FieldProvider, m.extractor.Name()),
		logging.F(logging.FieldQuality, quality))
	engine := m.engine.Extract(ctx, text)

	meta := engine.Metadata.Clone()
	meta.FallbackUsed = true
	meta.QualityScore = quality
	if extErr != nil {
		meta.ExternalError = extErr.Error()
	}

	switch {
	case len(externalItems) > 0 && len(engine.Items) > 0:
		result := engine.WithItems(MergeByPrice(externalItems, engine.Items))
		meta.PrimaryMethod = models.MethodMerged
		result.Metadata = meta
		result.Success = true
		return result
	case len(engine.Items) > 0:
		meta.PrimaryMethod = models.MethodPattern
		engine.Metadata = meta
		engine.Success = true
		return engine
	case len(externalItems) > 0:
		result := models.EmptyResult().WithItems(externalItems)
		result.PatternID = docai.SourcePattern(m.extractor.Name())
		meta.PatternUsed = result.PatternID
		meta.PrimaryMethod = models.MethodExternal
		result.Metadata = meta
		return result
	}

	m.logger.Warn("Both extraction sources failed")
	meta.PrimaryMethod = models.MethodNone
	return models.FailureResult(meta)
}

// callExternal calls the collaborator under the configured timeout.
func (m *Merger) callExternal(ctx context.Context, text string) (*docai.ExternalResult, error) {
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	result, err := m.extractor.Extract(ctx, text)
	if err != nil {
		m.logger.WithError(err).Warn("External extraction failed",
			logging.F(logging.FieldProvider, m.extractor.Name()),
			logging.F(logging.FieldDuration, time.Since(start).Milliseconds()))
		return nil, err
	}
	if result == nil {
		return &docai.ExternalResult{Provider: m.extractor.Name()}, nil
	}
	out := *result
	if out.Provider == "" {
		out.Provider = m.extractor.Name()
	}
	return &out, nil
}

// MergeByPrice merges the two lists keyed by price. Trusted external items
// come first, then engine items with a price not yet taken, then the
// remaining external items. A price is never kept twice.
func MergeByPrice(external, engine []models.ExtractedItem) []models.ExtractedItem {
	seen := map[string]bool{}
	var out []models.ExtractedItem
	add := func(item models.ExtractedItem) {
		key := string(item.Currency) + ":" + item.Price.String()
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, item.Clone())
	}

	var leftovers []models.ExtractedItem
	for _, item := range external {
		if trusted(item) {
			add(item)
		} else {
			leftovers = append(leftovers, item)
		}
	}
	for _, item := range engine {
		add(item)
	}
	for _, item := range leftovers {
		add(item)
	}
	return out
}

func trusted(item models.ExtractedItem) bool {
	return item.Confidence >= KeepConfidence && item.HasPrice() && textutils.HasLetter(item.Name)
}
