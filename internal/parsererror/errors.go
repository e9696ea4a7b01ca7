package parsererror

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is
var (
	ErrDuplicatePattern = errors.New("duplicate pattern id")
	ErrPatternNotFound  = errors.New("pattern not found")
	ErrInvalidDocument  = errors.New("invalid catalog document")
	ErrTimeout          = errors.New("external service timed out")
	ErrNotConfigured    = errors.New("external service not configured")
)

// ParseError represents a value that could not be parsed
type ParseError struct {
	Parser string
	Field  string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse %s='%s': %v",
		e.Parser, e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConfigError represents an invalid pattern definition rejected by the catalog
type ConfigError struct {
	PatternID string
	Field     string
	Reason    string
	Err       error
}

func (e *ConfigError) Error() string {
	id := e.PatternID
	if id == "" {
		id = "<unnamed>"
	}
	return fmt.Sprintf("invalid pattern %s: field %s: %s", id, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// StageError represents a failure inside one pipeline stage
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// ExternalServiceError represents a failed or timed-out call to an external
// extraction collaborator
type ExternalServiceError struct {
	Provider  string
	Code      int
	Retryable bool
	Err       error
}

func (e *ExternalServiceError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("external service %s failed with status %d: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("external service %s failed: %v", e.Provider, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// ValidationFailure represents an item excluded by validation
type ValidationFailure struct {
	Item   string
	Issues []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("item %q failed validation: %s", e.Item, strings.Join(e.Issues, "; "))
}

// IsRetryable reports whether err is an ExternalServiceError marked retryable
func IsRetryable(err error) bool {
	var extErr *ExternalServiceError
	return errors.As(err, &extErr) && extErr.Retryable
}
