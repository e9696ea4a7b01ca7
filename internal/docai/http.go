package docai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/parsererror"
)

// HTTPConfig configures an HTTPExtractor.
type HTTPConfig struct {
	// URL is the analyze endpoint; the receipt text is POSTed to it.
	URL               string
	APIKey            string
	Timeout           time.Duration
	Retry             RetryConfig
	RequestsPerMinute int
}

// HTTPExtractor calls a document-intelligence REST service.
type HTTPExtractor struct {
	url        string
	apiKey     string
	httpClient *http.Client
	retry      RetryConfig
	limiter    *rate.Limiter
	logger     logging.Logger
}

type analyzeRequest struct {
	Text string `json:"text"`
}

// NewHTTPExtractor returns an extractor for cfg.URL.
func NewHTTPExtractor(cfg HTTPConfig, logger logging.Logger) (*HTTPExtractor, error) {
	if cfg.URL == "" {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderHTTP, Err: parsererror.ErrNotConfigured}
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPExtractor{
		url:        strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		retry:      cfg.Retry,
		limiter:    NewLimiter(cfg.RequestsPerMinute),
		logger:     logging.OrDefault(logger).WithField(logging.FieldProvider, ProviderHTTP),
	}, nil
}

// Name implements Extractor.
func (e *HTTPExtractor) Name() string { return ProviderHTTP }

// Extract implements Extractor.
func (e *HTTPExtractor) Extract(ctx context.Context, text string) (*ExternalResult, error) {
	result, err := WithRetry(ctx, e.retry, e.limiter, func(ctx context.Context) (*ExternalResult, error) {
		return e.analyze(ctx, text)
	})
	if err != nil {
		var extErr *parsererror.ExternalServiceError
		if !errors.As(err, &extErr) {
			err = &parsererror.ExternalServiceError{Provider: ProviderHTTP, Err: err}
		}
		return nil, err
	}
	return result, nil
}

func (e *HTTPExtractor) analyze(ctx context.Context, text string) (*ExternalResult, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderHTTP, Err: fmt.Errorf("encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderHTTP, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		e.logger.WithError(err).Warn("Document service request failed")
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", parsererror.ErrTimeout, err)
		}
		return nil, &parsererror.ExternalServiceError{
			Provider:  ProviderHTTP,
			Retryable: ctx.Err() == nil,
			Err:       err,
		}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			e.logger.WithError(closeErr).Debug("Failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &parsererror.ExternalServiceError{
			Provider:  ProviderHTTP,
			Code:      resp.StatusCode,
			Retryable: resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
			Err:       fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(msg))),
		}
	}

	var result ExternalResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderHTTP, Err: fmt.Errorf("decode response: %w", err)}
	}
	result.Provider = ProviderHTTP
	e.logger.Debug("Document service responded",
		logging.F(logging.FieldCount, len(result.Items)),
		logging.F(logging.FieldConfidence, result.Confidence))
	return &result, nil
}
