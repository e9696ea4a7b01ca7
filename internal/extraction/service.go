// Package extraction wires the engine into one call: receipt text in,
// ParseResult out.
package extraction

import (
	"context"
	"time"

	"github.com/google/uuid"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/classifier"
	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/hybrid"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/normalizer"
	"fjacquet/receipt-extract/internal/optimizer"
	"fjacquet/receipt-extract/internal/pipeline"
	"fjacquet/receipt-extract/internal/validator"
)

// Options tune a Service.
type Options struct {
	Pipeline    pipeline.Options
	AutoCorrect bool
	Hybrid      hybrid.Config
}

// DefaultOptions returns the standard settings.
func DefaultOptions() Options {
	return Options{
		Pipeline:    pipeline.DefaultOptions(),
		AutoCorrect: true,
		Hybrid: hybrid.Config{
			QualityThreshold: hybrid.DefaultQualityThreshold,
			Timeout:          hybrid.DefaultTimeout,
		},
	}
}

// Dependencies are the collaborators of a Service. Catalog is required; a nil
// Classifier uses the built-in store signatures, a nil Normalizer the default
// rules, a nil Categorizer skips category back-fill and a nil Extractor
// disables hybrid extraction.
type Dependencies struct {
	Catalog     *catalog.Catalog
	Classifier  *classifier.Classifier
	Normalizer  *normalizer.Normalizer
	Categorizer *categorizer.Categorizer
	Extractor   docai.Extractor
}

// Service runs the full extraction flow. It is safe for concurrent use; all
// per-receipt state lives in the call.
type Service struct {
	catalog    *catalog.Catalog
	classifier *classifier.Classifier
	pipeline   *pipeline.Pipeline
	corrector  *validator.Corrector
	validator  *validator.Validator
	optimizer  *optimizer.Optimizer
	merger     *hybrid.Merger
	opts       Options
	logger     logging.Logger

	now   func() time.Time
	newID func() string
}

// engineFunc adapts a function to hybrid.Engine.
type engineFunc func(ctx context.Context, text string) models.ParseResult

func (f engineFunc) Extract(ctx context.Context, text string) models.ParseResult {
	return f(ctx, text)
}

// NewService wires a Service from deps.
func NewService(deps Dependencies, opts Options, logger logging.Logger) *Service {
	logger = logging.OrDefault(logger)
	cls := deps.Classifier
	if cls == nil {
		cls = classifier.NewDefault(classifier.DefaultWeights())
	}
	cat := deps.Catalog
	if cat == nil {
		cat = catalog.New(logger)
	}

	s := &Service{
		catalog:    cat,
		classifier: cls,
		pipeline:   pipeline.New(pipeline.NewLogSink(logger.WithField(logging.FieldComponent, "Pipeline"))),
		corrector:  validator.NewCorrector(logger),
		validator:  validator.New(logger),
		optimizer:  optimizer.New(deps.Normalizer, deps.Categorizer, logger),
		opts:       opts,
		logger:     logger.WithField(logging.FieldComponent, "ExtractionService"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
	if deps.Extractor != nil {
		s.merger = hybrid.NewMerger(deps.Extractor, engineFunc(s.run), opts.Hybrid, logger)
	}
	return s
}

// HybridEnabled reports whether an external collaborator is configured.
func (s *Service) HybridEnabled() bool {
	return s.merger != nil
}

// Catalog returns the pattern catalog the service reads.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Classify returns the detected store id, "" for a generic receipt.
func (s *Service) Classify(text string) string {
	return s.classifier.Classify(text)
}

// Extract runs the pattern engine alone. It never fails: a receipt without
// recognizable items yields success=false with no items and confidence 0.
func (s *Service) Extract(ctx context.Context, text string) models.ParseResult {
	start := s.now()
	requestID := s.newID()
	result := s.run(ctx, text)
	return s.finish(result, requestID, start)
}

// ExtractHybrid consults the external collaborator first when one is
// configured and falls back to the engine as the merger decides. Without a
// collaborator it is Extract.
func (s *Service) ExtractHybrid(ctx context.Context, text string) models.ParseResult {
	if s.merger == nil {
		return s.Extract(ctx, text)
	}
	start := s.now()
	requestID := s.newID()
	result := s.merger.Extract(ctx, text)
	return s.finish(result, requestID, start)
}

// run is preprocess → classify → pipeline → correct → validate → optimize.
func (s *Service) run(ctx context.Context, text string) models.ParseResult {
	storeType := s.classifier.Classify(text)
	if storeType != "" {
		s.logger.Debug("Detected store", logging.F(logging.FieldStoreType, storeType))
	}

	actx := pipeline.NewAnalysisContext(text, storeType, s.opts.Pipeline, s.catalog)
	result := s.pipeline.Run(ctx, actx)

	if s.opts.AutoCorrect {
		result = s.corrector.Apply(result)
	}
	result = s.validator.Apply(result)
	result = s.optimizer.Apply(ctx, result)
	return result
}

func (s *Service) finish(result models.ParseResult, requestID string, start time.Time) models.ParseResult {
	result = result.Clone()
	result.Success = len(result.Items) > 0
	if !result.Success {
		result.Items = []models.ExtractedItem{}
		result.Confidence = 0
		result.PatternID = ""
		result.Metadata.PatternUsed = ""
	}
	result.Metadata.RequestID = requestID
	result.Metadata.ProcessingTimeMS = s.now().Sub(start).Milliseconds()

	s.logger.Info("Extraction finished",
		logging.F(logging.FieldRequestID, requestID),
		logging.F(logging.FieldCount, len(result.Items)),
		logging.F(logging.FieldConfidence, result.Confidence),
		logging.F(logging.FieldPatternID, result.PatternID),
		logging.F(logging.FieldDuration, result.Metadata.ProcessingTimeMS))
	return result
}
