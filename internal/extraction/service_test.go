package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/categorizer"
	"fjacquet/receipt-extract/internal/docai"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
	"fjacquet/receipt-extract/internal/parsererror"
)

type stubExtractor struct {
	result *docai.ExternalResult
	err    error
	calls  int
}

func (s *stubExtractor) Name() string { return "stub" }

func (s *stubExtractor) Extract(context.Context, string) (*docai.ExternalResult, error) {
	s.calls++
	return s.result, s.err
}

func newTestService(t *testing.T, extractor docai.Extractor) *Service {
	t.Helper()
	cat, err := catalog.NewWithDefaults(logging.NewDiscardLogger())
	require.NoError(t, err)

	svc := NewService(Dependencies{
		Catalog:     cat,
		Categorizer: categorizer.NewCategorizer(nil, logging.NewDiscardLogger()),
		Extractor:   extractor,
	}, DefaultOptions(), logging.NewDiscardLogger())
	svc.newID = func() string { return "req-1" }
	return svc
}

func assertWellFormed(t *testing.T, result models.ParseResult) {
	t.Helper()
	for _, item := range result.Items {
		assert.GreaterOrEqual(t, item.Confidence, 0.0)
		assert.LessOrEqual(t, item.Confidence, 1.0)
		assert.True(t, item.Price.IsPositive(), "item %q has non-positive price", item.Name)
		assert.GreaterOrEqual(t, item.Quantity, 1)
	}
}

func TestExtract_WarehouseReceipt(t *testing.T) {
	svc := newTestService(t, nil)

	result := svc.Extract(context.Background(), "COSTCO WHOLESALE\nWidget\n123456\n2個\n500\n1,000 T")

	require.True(t, result.Success)
	require.Len(t, result.Items, 1)
	item := result.Items[0]
	assert.Equal(t, "Widget", item.Name)
	assert.Equal(t, "1000", item.Price.String())
	assert.Equal(t, 2, item.Quantity)
	assert.GreaterOrEqual(t, item.Confidence, 0.9)

	assert.Equal(t, catalog.StoreWarehouse, result.Metadata.StoreType)
	assert.Equal(t, "warehouse_5line", result.PatternID)
	assert.Equal(t, "req-1", result.Metadata.RequestID)
	assert.False(t, result.Metadata.FallbackUsed)
	assert.NotEmpty(t, result.Metadata.PatternsAttempted)
}

func TestExtract_SingleLine(t *testing.T) {
	svc := newTestService(t, nil)

	result := svc.Extract(context.Background(), "Snack ¥228")

	require.True(t, result.Success)
	require.Len(t, result.Items, 1)
	assert.Equal(t, "Snack", result.Items[0].Name)
	assert.Equal(t, "228", result.Items[0].Price.String())
	assert.Equal(t, 1, result.Items[0].Quantity)
	assert.Empty(t, result.Metadata.StoreType)
	assertWellFormed(t, result)
}

func TestExtract_GroceryReceipt(t *testing.T) {
	svc := newTestService(t, nil)
	text := "スーパー テスト\n牛乳 ¥198\nコーヒー ¥350\n食パン ¥158\n小計 ¥706\n合計 ¥706\nお釣り ¥294"

	result := svc.Extract(context.Background(), text)

	require.True(t, result.Success)
	assert.Len(t, result.Items, 3)
	for _, item := range result.Items {
		assert.NotContains(t, []string{"706", "294"}, item.Price.String())
	}
	assertWellFormed(t, result)

	for i := 1; i < len(result.Items); i++ {
		assert.GreaterOrEqual(t, result.Items[i-1].Confidence, result.Items[i].Confidence)
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	svc := newTestService(t, nil)

	for _, text := range []string{"", "   \n\n", "合計 ¥1,000", "\xff\xfe\x00 ¥12"} {
		result := svc.Extract(context.Background(), text)
		assert.False(t, result.Success, "input %q", text)
		assert.Empty(t, result.Items)
		assert.NotNil(t, result.Items)
		assert.Zero(t, result.Confidence)
		assert.True(t, result.Metadata.FallbackUsed)
		assert.Empty(t, result.PatternID, "input %q", text)
		assert.Empty(t, result.Metadata.PatternUsed, "input %q", text)
		assert.Equal(t, "req-1", result.Metadata.RequestID)
	}
}

func TestExtract_ProcessingTime(t *testing.T) {
	svc := newTestService(t, nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	svc.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * 10 * time.Millisecond)
	}

	result := svc.Extract(context.Background(), "Snack ¥228")

	assert.Equal(t, int64(10), result.Metadata.ProcessingTimeMS)
}

func TestExtract_ConcurrentCalls(t *testing.T) {
	svc := newTestService(t, nil)
	texts := []string{"Snack ¥228", "Milk ¥198", "", "COSTCO\nWidget\n123456\n2個\n500\n1,000 T"}

	done := make(chan models.ParseResult, len(texts)*4)
	for i := 0; i < 4; i++ {
		for _, text := range texts {
			go func(text string) {
				done <- svc.Extract(context.Background(), text)
			}(text)
		}
	}
	for i := 0; i < len(texts)*4; i++ {
		assertWellFormed(t, <-done)
	}
}

func TestExtractHybrid_WithoutExtractorIsExtract(t *testing.T) {
	svc := newTestService(t, nil)
	assert.False(t, svc.HybridEnabled())

	result := svc.ExtractHybrid(context.Background(), "Snack ¥228")

	require.True(t, result.Success)
	assert.Equal(t, models.MethodPattern, result.Metadata.PrimaryMethod)
	assert.Equal(t, "req-1", result.Metadata.RequestID)
}

func TestExtractHybrid_AcceptsExternal(t *testing.T) {
	stub := &stubExtractor{result: &docai.ExternalResult{
		Success:    true,
		Confidence: 0.95,
		Items: []docai.ExternalItem{
			{Name: "Milk", Amount: "¥198", Quantity: "1", Confidence: 0.9},
			{Name: "Bread", Amount: "¥158", Quantity: "1", Confidence: 0.9},
			{Name: "Coffee", Amount: "¥350", Quantity: "1", Confidence: 0.9},
		},
	}}
	svc := newTestService(t, stub)
	require.True(t, svc.HybridEnabled())

	result := svc.ExtractHybrid(context.Background(), "unreadable")

	assert.Equal(t, 1, stub.calls)
	require.True(t, result.Success)
	assert.Len(t, result.Items, 3)
	assert.Equal(t, models.MethodExternal, result.Metadata.PrimaryMethod)
	assert.False(t, result.Metadata.FallbackUsed)
	assert.Equal(t, "req-1", result.Metadata.RequestID)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"patterns_attempted":[]`)
}

func TestExtractHybrid_LowQualityFallsBack(t *testing.T) {
	stub := &stubExtractor{result: &docai.ExternalResult{
		Success:    true,
		Confidence: 0.5,
		Items: []docai.ExternalItem{
			{Name: "Snack", Amount: "¥228", Confidence: 0.5},
			{Name: "Candy", Amount: "¥100", Confidence: 0.5},
		},
	}}
	svc := newTestService(t, stub)

	result := svc.ExtractHybrid(context.Background(), "Snack ¥228")

	require.True(t, result.Success)
	assert.True(t, result.Metadata.FallbackUsed)
	assert.Less(t, result.Metadata.QualityScore, 0.7)
	assert.Equal(t, models.MethodMerged, result.Metadata.PrimaryMethod)
	assert.Len(t, result.Items, 2)
	assertWellFormed(t, result)
}

func TestExtractHybrid_BothSourcesFail(t *testing.T) {
	stub := &stubExtractor{err: &parsererror.ExternalServiceError{Provider: "stub", Err: errors.New("down")}}
	svc := newTestService(t, stub)

	result := svc.ExtractHybrid(context.Background(), "")

	assert.False(t, result.Success)
	assert.Empty(t, result.Items)
	assert.Zero(t, result.Confidence)
	assert.Contains(t, result.Metadata.ExternalError, "down")
	assert.Equal(t, "req-1", result.Metadata.RequestID)
}
