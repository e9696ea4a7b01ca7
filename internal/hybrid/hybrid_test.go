package hybrid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/parsererror"
)

type fakeExtractor struct {
	result *docai.ExternalResult
	err    error
	delay  time.Duration
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) Extract(ctx context.Context, _ string) (*docai.ExternalResult, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, &parsererror.ExternalServiceError{Provider: "fake", Err: parsererror.ErrTimeout}
		}
	}
	return f.result, f.err
}

type fakeEngine struct {
	result models.ParseResult
	calls  int
}

func (f *fakeEngine) Extract(_ context.Context, _ string) models.ParseResult {
	f.calls++
	return f.result.Clone()
}

func item(t *testing.T, name string, price int64, confidence float64) models.ExtractedItem {
	t.Helper()
	it, err := models.NewItemBuilder().
		WithName(name).
		WithPrice(decimal.NewFromInt(price), models.CurrencyJPY).
		WithConfidence(confidence).
		FromSource("generic_yen_suffix").
		Build()
	require.NoError(t, err)
	return it
}

func engineResult(items ...models.ExtractedItem) models.ParseResult {
	r := models.EmptyResult().WithItems(items)
	r.PatternID = "generic_yen_suffix"
	r.Metadata.PatternUsed = "generic_yen_suffix"
	r.Success = len(items) > 0
	return r
}

func goodExternal() *docai.ExternalResult {
	return &docai.ExternalResult{
		Success:    true,
		Confidence: 0.9,
		Items: []docai.ExternalItem{
			{Name: "Milk", Amount: "198円", Quantity: "1", Confidence: 0.9},
			{Name: "Bread", Amount: "150円", Quantity: "1", Confidence: 0.9},
			{Name: "Eggs", Amount: "228円", Quantity: "2", Confidence: 0.85},
		},
	}
}

func TestQualityScore(t *testing.T) {
	tests := []struct {
		name   string
		result *docai.ExternalResult
		want   float64
	}{
		{
			name:   "nil result",
			result: nil,
			want:   0,
		},
		{
			name:   "three confident items",
			result: goodExternal(),
			want:   0.4*0.9 + 0.3 + 0.2,
		},
		{
			name: "two items at half confidence",
			result: &docai.ExternalResult{
				Success:    true,
				Confidence: 0.5,
				Items: []docai.ExternalItem{
					{Name: "Milk", Amount: "198", Quantity: "1", Confidence: 0.5},
					{Name: "Bread", Amount: "150", Quantity: "1", Confidence: 0.5},
				},
			},
			want: 0.2 + 0.2 - 0.1,
		},
		{
			name: "no items",
			result: &docai.ExternalResult{
				Success:    true,
				Confidence: 0.1,
			},
			want: 0,
		},
		{
			name: "penalties capped at three",
			result: &docai.ExternalResult{
				Success:    true,
				Confidence: 1,
				Items: []docai.ExternalItem{
					{Name: "12\n34", Amount: "198", Quantity: "0", Confidence: 1},
				},
			},
			want: 0.4 + 0.1 + 0.2 - 0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, QualityScore(tt.result), 1e-9)
		})
	}
}

func TestSuspiciousPatterns(t *testing.T) {
	three := func(items ...docai.ExternalItem) *docai.ExternalResult {
		return &docai.ExternalResult{Success: true, Items: items}
	}
	ok := docai.ExternalItem{Name: "Milk", Amount: "198", Quantity: "1"}

	tests := []struct {
		name   string
		result *docai.ExternalResult
		want   int
	}{
		{"clean", three(ok, ok, ok), 0},
		{"too few items", three(ok, ok), 1},
		{"garbled names", three(ok, docai.ExternalItem{Name: "##", Amount: "1"}, docai.ExternalItem{Name: "x", Amount: "1"}), 1},
		{"one garbled name of four", three(ok, ok, ok, docai.ExternalItem{Name: "12", Amount: "1"}), 0},
		{"quantity too large", three(ok, ok, docai.ExternalItem{Name: "Milk", Amount: "1", Quantity: "150"}), 1},
		{"quantity zero", three(ok, ok, docai.ExternalItem{Name: "Milk", Amount: "1", Quantity: "0"}), 1},
		{"multi-line name", three(ok, ok, docai.ExternalItem{Name: "Milk\nLowfat", Amount: "1"}), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SuspiciousPatterns(tt.result))
		})
	}
}

func TestMerger_NoExtractorPassesThrough(t *testing.T) {
	engine := &fakeEngine{result: engineResult(item(t, "Milk", 198, 0.9))}
	m := NewMerger(nil, engine, Config{}, logging.NewDiscardLogger())

	result := m.Extract(context.Background(), "Milk 198円")

	assert.Equal(t, 1, engine.calls)
	assert.True(t, result.Success)
	assert.False(t, result.Metadata.FallbackUsed)
	require.Len(t, result.Items, 1)
}

func TestMerger_AcceptsGoodExternalResult(t *testing.T) {
	engine := &fakeEngine{result: engineResult(item(t, "Milk", 198, 0.9))}
	logger := logging.NewMockLogger()
	m := NewMerger(&fakeExtractor{result: goodExternal()}, engine, Config{}, logger)

	result := m.Extract(context.Background(), "receipt")

	assert.Equal(t, 0, engine.calls, "engine must not run when external quality is sufficient")
	assert.True(t, result.Success)
	assert.False(t, result.Metadata.FallbackUsed)
	assert.Equal(t, models.MethodExternal, result.Metadata.PrimaryMethod)
	assert.Equal(t, "external:fake", result.PatternID)
	assert.NotNil(t, result.Metadata.PatternsAttempted)
	assert.Empty(t, result.Metadata.PatternsAttempted)
	assert.GreaterOrEqual(t, result.Metadata.QualityScore, DefaultQualityThreshold)
	require.Len(t, result.Items, 3)
	assert.Equal(t, "Milk", result.Items[0].Name)
	assert.True(t, result.Items[0].Price.Equal(decimal.NewFromInt(198)))
	assert.Equal(t, 2, result.Items[2].Quantity)
	assert.True(t, logger.HasEntry("INFO", "Accepted external extraction"))
}

func TestMerger_LowQualityFallsBackToEngine(t *testing.T) {
	external := &docai.ExternalResult{
		Success:    true,
		Confidence: 0.5,
		Items: []docai.ExternalItem{
			{Name: "Milk", Amount: "198", Quantity: "1", Confidence: 0.5},
			{Name: "Bread", Amount: "150", Quantity: "1", Confidence: 0.5},
		},
	}
	engine := &fakeEngine{result: engineResult(
		item(t, "Milk", 198, 0.9),
		item(t, "Eggs", 228, 0.9),
	)}
	m := NewMerger(&fakeExtractor{result: external}, engine, Config{}, logging.NewDiscardLogger())

	result := m.Extract(context.Background(), "receipt")

	assert.Equal(t, 1, engine.calls)
	assert.True(t, result.Success)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.Less(t, result.Metadata.QualityScore, DefaultQualityThreshold)
	assert.Equal(t, models.MethodMerged, result.Metadata.PrimaryMethod)

	var names []string
	for _, it := range result.Items {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Milk", "Bread", "Eggs"}, names)
}

func TestMerger_ExternalErrorIsNotFatal(t *testing.T) {
	engine := &fakeEngine{result: engineResult(item(t, "Milk", 198, 0.9))}
	extractor := &fakeExtractor{err: &parsererror.ExternalServiceError{Provider: "fake", Code: 503, Err: errors.New("unavailable")}}
	logger := logging.NewMockLogger()
	m := NewMerger(extractor, engine, Config{}, logger)

	result := m.Extract(context.Background(), "Milk 198円")

	assert.True(t, result.Success)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.Equal(t, models.MethodPattern, result.Metadata.PrimaryMethod)
	assert.Contains(t, result.Metadata.ExternalError, "unavailable")
	require.Len(t, result.Items, 1)
	assert.True(t, logger.HasEntry("WARN", "External extraction failed"))
}

func TestMerger_ExternalTimeout(t *testing.T) {
	engine := &fakeEngine{result: engineResult(item(t, "Milk", 198, 0.9))}
	extractor := &fakeExtractor{result: goodExternal(), delay: time.Second}
	m := NewMerger(extractor, engine, Config{Timeout: 10 * time.Millisecond}, logging.NewDiscardLogger())

	result := m.Extract(context.Background(), "Milk 198円")

	assert.Equal(t, 1, engine.calls)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Metadata.ExternalError)
}

func TestMerger_EngineEmptyUsesExternalItems(t *testing.T) {
	external := &docai.ExternalResult{
		Success:    true,
		Confidence: 0.4,
		Items: []docai.ExternalItem{
			{Name: "Milk", Amount: "198", Confidence: 0.4},
		},
	}
	engine := &fakeEngine{result: models.FailureResult(models.ResultMetadata{FallbackUsed: true})}
	m := NewMerger(&fakeExtractor{result: external}, engine, Config{}, logging.NewDiscardLogger())

	result := m.Extract(context.Background(), "receipt")

	assert.True(t, result.Success)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.Equal(t, models.MethodExternal, result.Metadata.PrimaryMethod)
	require.Len(t, result.Items, 1)
	assert.Equal(t, docai.SourcePattern("fake"), result.Items[0].SourcePattern)
}

func TestMerger_BothFail(t *testing.T) {
	engine := &fakeEngine{result: models.FailureResult(models.ResultMetadata{FallbackUsed: true})}
	extractor := &fakeExtractor{err: &parsererror.ExternalServiceError{Provider: "fake", Err: parsererror.ErrTimeout}}
	logger := logging.NewMockLogger()
	m := NewMerger(extractor, engine, Config{}, logger)

	result := m.Extract(context.Background(), "")

	assert.False(t, result.Success)
	assert.Empty(t, result.Items)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, models.MethodNone, result.Metadata.PrimaryMethod)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.True(t, logger.HasEntry("WARN", "Both extraction sources failed"))
}

func TestMergeByPrice(t *testing.T) {
	external := []models.ExtractedItem{
		item(t, "Milk", 198, 0.9),
		item(t, "??", 500, 0.9),
		item(t, "Bread", 150, 0.3),
	}
	engine := []models.ExtractedItem{
		item(t, "Milk 1L", 198, 0.95),
		item(t, "Eggs", 228, 0.9),
		item(t, "Butter", 500, 0.8),
	}

	merged := MergeByPrice(external, engine)

	var got []string
	for _, it := range merged {
		got = append(got, it.Name)
	}
	assert.Equal(t, []string{"Milk", "Eggs", "Butter", "Bread"}, got)

	prices := map[string]bool{}
	for _, it := range merged {
		key := it.Price.String()
		assert.False(t, prices[key], "price %s kept twice", key)
		prices[key] = true
	}
}
