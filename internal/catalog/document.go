package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"fjacquet/receipt-extract/internal/parsererror"
)

// DocumentVersion is written into every exported document.
const DocumentVersion = "1.0"

// Document is the import/export form of the catalog.
type Document struct {
	Version    string          `json:"version" yaml:"version"`
	ExportDate time.Time       `json:"export_date" yaml:"export_date"`
	Patterns   []PatternConfig `json:"patterns" yaml:"patterns"`
}

// Format is a document serialization.
type Format string

// Document formats
const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks JSON for a .json extension and YAML otherwise.
func FormatFromPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "patterns"],
  "properties": {
    "version": {"type": "string", "minLength": 1},
    "export_date": {"type": "string"},
    "patterns": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "name": {"type": "string"},
          "description": {"type": "string"},
          "priority": {"type": "integer"},
          "enabled": {"type": "boolean"},
          "confidence": {"type": "number"},
          "store_identifiers": {"type": "array", "items": {"type": "string"}},
          "sub_patterns": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["type"],
              "properties": {
                "type": {"type": "string"},
                "single_line": {"type": "object"},
                "multi_line": {"type": "object"},
                "context_aware": {"type": "object"},
                "validation_rules": {"type": "array", "items": {"type": "object"}}
              }
            }
          }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("catalog.json", strings.NewReader(documentSchema)); err != nil {
			schemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("catalog.json")
	})
	return compiledSchema, schemaErr
}

// ParseDocument decodes a YAML or JSON catalog document. The structure is
// checked against the document schema before decoding; semantic validation
// of each pattern happens on Import.
func ParseDocument(data []byte) (*Document, error) {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", parsererror.ErrInvalidDocument, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty document", parsererror.ErrInvalidDocument)
	}

	normalized, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", parsererror.ErrInvalidDocument, err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(normalized, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", parsererror.ErrInvalidDocument, err)
	}
	if err := schema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", parsererror.ErrInvalidDocument, err)
	}

	var doc Document
	if err := json.Unmarshal(normalized, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", parsererror.ErrInvalidDocument, err)
	}
	return &doc, nil
}

// EncodeDocument serializes doc in the given format.
func EncodeDocument(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return nil, fmt.Errorf("unsupported document format: %s", format)
}
