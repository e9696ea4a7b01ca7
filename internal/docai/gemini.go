package docai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/parsererror"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const geminiPrompt = `Extract the purchased line items from this receipt text.
Ignore totals, taxes, payments and change.
Respond with JSON only, in this shape:
{"success": true, "confidence": 0.0-1.0, "items": [{"name": "...", "amount": "...", "quantity": "...", "confidence": 0.0-1.0}]}
Copy amounts as printed, including any currency symbol.

Receipt:
%s`

// GeminiConfig configures a GeminiExtractor.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Retry             RetryConfig
	RequestsPerMinute int
}

// GeminiExtractor asks a Gemini model to segment the receipt.
type GeminiExtractor struct {
	client  *genai.Client
	model   string
	retry   RetryConfig
	limiter *rate.Limiter
	logger  logging.Logger

	// generate sends one prompt and returns the text of the first candidate.
	generate func(ctx context.Context, prompt string) (string, error)
}

// NewGeminiExtractor creates the Gemini client. Close releases it.
func NewGeminiExtractor(ctx context.Context, cfg GeminiConfig, logger logging.Logger) (*GeminiExtractor, error) {
	if cfg.APIKey == "" {
		return nil, &parsererror.ExternalServiceError{
			Provider: ProviderGemini,
			Err:      fmt.Errorf("%w: GEMINI_API_KEY not set", parsererror.ErrNotConfigured),
		}
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderGemini, Err: fmt.Errorf("failed to create Gemini client: %w", err)}
	}

	e := newGeminiExtractor(cfg, logger)
	e.client = client
	model := client.GenerativeModel(e.model)
	e.generate = func(ctx context.Context, prompt string) (string, error) {
		resp, err := model.GenerateContent(ctx, genai.Text(prompt))
		if err != nil {
			return "", err
		}
		if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
			return "", errors.New("no response from Gemini API")
		}
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		return sb.String(), nil
	}
	return e, nil
}

func newGeminiExtractor(cfg GeminiConfig, logger logging.Logger) *GeminiExtractor {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiExtractor{
		model:   model,
		retry:   cfg.Retry,
		limiter: NewLimiter(cfg.RequestsPerMinute),
		logger:  logging.OrDefault(logger).WithField(logging.FieldProvider, ProviderGemini),
	}
}

// Name implements Extractor.
func (e *GeminiExtractor) Name() string { return ProviderGemini }

// Close releases the Gemini client.
func (e *GeminiExtractor) Close() error {
	if e.client == nil {
		return nil
	}
	return e.client.Close()
}

// Extract implements Extractor.
func (e *GeminiExtractor) Extract(ctx context.Context, text string) (*ExternalResult, error) {
	result, err := WithRetry(ctx, e.retry, e.limiter, func(ctx context.Context) (*ExternalResult, error) {
		response, err := e.generate(ctx, fmt.Sprintf(geminiPrompt, text))
		if err != nil {
			e.logger.WithError(err).Warn("Gemini request failed")
			return nil, &parsererror.ExternalServiceError{
				Provider:  ProviderGemini,
				Retryable: ctx.Err() == nil,
				Err:       fmt.Errorf("Gemini API error: %w", err),
			}
		}
		return parseGeminiResponse(response)
	})
	if err != nil {
		var extErr *parsererror.ExternalServiceError
		if !errors.As(err, &extErr) {
			err = &parsererror.ExternalServiceError{Provider: ProviderGemini, Err: err}
		}
		return nil, err
	}
	return result, nil
}

// parseGeminiResponse decodes the model answer, which may be wrapped in a
// markdown code fence.
func parseGeminiResponse(response string) (*ExternalResult, error) {
	text := strings.TrimSpace(response)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var result ExternalResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderGemini, Err: fmt.Errorf("decode response: %w", err)}
	}
	result.Provider = ProviderGemini
	return &result, nil
}
