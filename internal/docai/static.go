package docai

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"fjacquet/receipt-extract/internal/parsererror"
)

// StaticExtractor returns entities that were segmented ahead of time and
// shipped alongside the OCR text.
type StaticExtractor struct {
	Result *ExternalResult
}

// LoadStaticExtractor reads a hint file. Files ending in .json are decoded
// as JSON, everything else as YAML.
func LoadStaticExtractor(path string) (*StaticExtractor, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		return nil, fmt.Errorf("failed to read hint file %s: %w", path, err)
	}

	var result ExternalResult
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &result)
	} else {
		err = yaml.Unmarshal(data, &result)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse hint file %s: %w", path, err)
	}
	result.Provider = ProviderStatic
	return &StaticExtractor{Result: &result}, nil
}

// Name implements Extractor.
func (s *StaticExtractor) Name() string { return ProviderStatic }

// Extract implements Extractor. The text is ignored.
func (s *StaticExtractor) Extract(ctx context.Context, _ string) (*ExternalResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderStatic, Err: err}
	}
	if s.Result == nil {
		return nil, &parsererror.ExternalServiceError{Provider: ProviderStatic, Err: parsererror.ErrNotConfigured}
	}
	out := *s.Result
	out.Items = append([]ExternalItem(nil), s.Result.Items...)
	return &out, nil
}
