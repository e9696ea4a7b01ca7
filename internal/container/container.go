// Package container provides dependency injection for the receipt-extract application.
// It centralizes the creation and wiring of all application dependencies,
// making them explicit and testable.
package container

import (
	"context"
	"fmt"

	"fjacquet/receipt-extract/internal/batch"
	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/classifier"
	"fjacquet/receipt-extract/internal/config"
	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/extraction"
	"fjacquet/receipt-extract/internal/hybrid"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/normalizer"
	"fjacquet/receipt-extract/internal/pipeline"
	"fjacquet/receipt-extract/internal/report"
	"fjacquet/receipt-extract/internal/store"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation - all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger       logging.Logger
	config       *config.Config
	store        *store.CategoryStore
	patternStore *store.PatternStore
	catalog      *catalog.Catalog
	classifier   *classifier.Classifier
	categorizer  *categorizer.Categorizer
	extractor    docai.Extractor
	service      *extraction.Service
	generator    *report.Generator
}

// Option customizes container construction.
type Option func(*options)

type options struct {
	logger    logging.Logger
	extractor docai.Extractor
}

// WithLogger uses logger instead of one built from the configuration.
func WithLogger(logger logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithExtractor sets the external collaborator, overriding the configured one.
func WithExtractor(e docai.Extractor) Option {
	return func(o *options) { o.extractor = e }
}

// NewContainer creates and wires all application dependencies.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	// Create logger first as it's needed by other components
	logger := o.logger
	if logger == nil {
		logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	cat, err := catalog.NewWithDefaults(logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load default patterns: %w", err)
	}
	patternStore := store.NewPatternStore(cfg.Catalog.File, logger)
	if err := patternStore.LoadInto(cat); err != nil {
		return nil, fmt.Errorf("failed to load pattern catalog: %w", err)
	}

	weights := classifier.DefaultWeights()
	weights.Threshold = float64(cfg.Classifier.Threshold)
	cls := classifier.NewDefault(weights)

	categoryStore := store.NewCategoryStore(cfg.Categories.File, logger)
	categ := categorizer.NewCategorizer(categoryStore, logger)

	extractor := o.extractor
	if extractor == nil && cfg.Hybrid.Enabled {
		extractor, err = newExtractor(cfg, logger)
		if err != nil {
			return nil, err
		}
	}

	service := extraction.NewService(extraction.Dependencies{
		Catalog:     cat,
		Classifier:  cls,
		Normalizer:  normalizer.New(),
		Categorizer: categ,
		Extractor:   extractor,
	}, ServiceOptions(cfg), logger)

	logger.Info("Container initialized successfully",
		logging.F("patterns_count", cat.Len()),
		logging.F("hybrid_enabled", extractor != nil))

	return &Container{
		logger:       logger,
		config:       cfg,
		store:        categoryStore,
		patternStore: patternStore,
		catalog:      cat,
		classifier:   cls,
		categorizer:  categ,
		extractor:    extractor,
		service:      service,
		generator:    report.NewGenerator(logger, delimiter(cfg)),
	}, nil
}

// ServiceOptions maps the configuration onto extraction options.
func ServiceOptions(cfg *config.Config) extraction.Options {
	opts := extraction.DefaultOptions()
	opts.Pipeline = pipeline.Options{
		ConfidenceThreshold: cfg.Extraction.ConfidenceThreshold,
		EarlyExitConfidence: cfg.Extraction.EarlyExitConfidence,
		MaxProcessingTime:   cfg.MaxProcessingTime(),
		FallbackEnabled:     cfg.Extraction.FallbackEnabled,
		HeuristicWindow:     cfg.Extraction.HeuristicWindow,
		HeuristicWeights:    pipeline.DefaultHeuristicWeights(),
	}
	opts.AutoCorrect = cfg.Extraction.AutoCorrect
	opts.Hybrid = hybrid.Config{
		QualityThreshold: cfg.Hybrid.QualityThreshold,
		Timeout:          cfg.HybridTimeout(),
	}
	return opts
}

func delimiter(cfg *config.Config) rune {
	if r := []rune(cfg.Output.CSVDelimiter); len(r) > 0 {
		return r[0]
	}
	return ','
}

func newExtractor(cfg *config.Config, logger logging.Logger) (docai.Extractor, error) {
	retry := docai.DefaultRetryConfig
	retry.MaxRetries = cfg.Hybrid.MaxRetries

	switch cfg.Hybrid.Provider {
	case docai.ProviderHTTP:
		e, err := docai.NewHTTPExtractor(docai.HTTPConfig{
			URL:               cfg.Hybrid.ServiceURL,
			APIKey:            cfg.AI.APIKey,
			Timeout:           cfg.HybridTimeout(),
			Retry:             retry,
			RequestsPerMinute: cfg.Hybrid.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create document service client: %w", err)
		}
		return e, nil
	case docai.ProviderGemini:
		e, err := docai.NewGeminiExtractor(context.Background(), docai.GeminiConfig{
			APIKey:            cfg.AI.APIKey,
			Model:             cfg.AI.Model,
			Retry:             retry,
			RequestsPerMinute: cfg.Hybrid.RequestsPerMinute,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown hybrid provider: %s", cfg.Hybrid.Provider)
	}
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetCatalog returns the pattern catalog.
func (c *Container) GetCatalog() *catalog.Catalog {
	return c.catalog
}

// GetPatternStore returns the persisted catalog document store.
func (c *Container) GetPatternStore() *store.PatternStore {
	return c.patternStore
}

// GetClassifier returns the store classifier.
func (c *Container) GetClassifier() *classifier.Classifier {
	return c.classifier
}

// GetCategorizer returns the container's categorizer instance.
func (c *Container) GetCategorizer() *categorizer.Categorizer {
	return c.categorizer
}

// GetStore returns the container's category store instance.
func (c *Container) GetStore() *store.CategoryStore {
	return c.store
}

// GetExtractor returns the external collaborator, nil when hybrid
// extraction is disabled.
func (c *Container) GetExtractor() docai.Extractor {
	return c.extractor
}

// GetService returns the extraction service.
func (c *Container) GetService() *extraction.Service {
	return c.service
}

// GetReportGenerator returns the output renderer.
func (c *Container) GetReportGenerator() *report.Generator {
	return c.generator
}

// NewBatchProcessor returns a batch processor over the extraction service,
// hybrid when a collaborator is configured.
func (c *Container) NewBatchProcessor() *batch.Processor {
	return batch.NewProcessor(batch.ExtractorFunc(c.service.ExtractHybrid), c.config.Batch.Workers, c.logger)
}

// Close performs cleanup of container resources.
func (c *Container) Close() error {
	if closer, ok := c.extractor.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("failed to close extractor: %w", err)
		}
	}
	c.logger.Info("Container closed")
	return nil
}
