package parsererror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseError(t *testing.T) {
	err := &ParseError{Parser: "amount", Field: "price", Value: "1,0x0", Err: errors.New("invalid decimal")}
	assert.Equal(t, "amount: failed to parse price='1,0x0': invalid decimal", err.Error())
	assert.True(t, errors.Is(err, err.Err))
}

func TestConfigError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "confidence out of range",
			err:      &ConfigError{PatternID: "warehouse_5line", Field: "confidence", Reason: "must be within [0,1], got 1.5"},
			expected: "invalid pattern warehouse_5line: field confidence: must be within [0,1], got 1.5",
		},
		{
			name:     "missing id",
			err:      &ConfigError{Field: "id", Reason: "must not be empty"},
			expected: "invalid pattern <unnamed>: field id: must not be empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestConfigError_WrapsSentinel(t *testing.T) {
	err := fmt.Errorf("import: %w", &ConfigError{PatternID: "a", Field: "id", Reason: "duplicate", Err: ErrDuplicatePattern})

	assert.True(t, errors.Is(err, ErrDuplicatePattern))
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "id", cfgErr.Field)
}

func TestStageError(t *testing.T) {
	cause := errors.New("regex exploded")
	err := &StageError{Stage: "heuristic", Err: cause}
	assert.Equal(t, "stage heuristic failed: regex exploded", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestExternalServiceError(t *testing.T) {
	withCode := &ExternalServiceError{Provider: "http", Code: 503, Retryable: true, Err: errors.New("unavailable")}
	assert.Equal(t, "external service http failed with status 503: unavailable", withCode.Error())
	assert.True(t, IsRetryable(fmt.Errorf("call: %w", withCode)))

	timeout := &ExternalServiceError{Provider: "gemini", Err: ErrTimeout}
	assert.Equal(t, "external service gemini failed: external service timed out", timeout.Error())
	assert.False(t, IsRetryable(timeout))
	assert.ErrorIs(t, timeout, ErrTimeout)

	assert.False(t, IsRetryable(errors.New("plain")))
}

func TestValidationFailure(t *testing.T) {
	err := &ValidationFailure{Item: "???", Issues: []string{"price missing", "name is symbols only"}}
	assert.Equal(t, `item "???" failed validation: price missing; name is symbols only`, err.Error())
}
