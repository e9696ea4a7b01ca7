// Package report renders extraction results for people and downstream tools.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// Format is an output format.
type Format string

// Output formats
const (
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatCSV   Format = "csv"
	FormatTable Format = "table"
)

// Formats lists the supported output formats.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatCSV, FormatTable}
}

// ParseFormat validates a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Generator writes results in the supported formats.
type Generator struct {
	logger    logging.Logger
	delimiter rune
}

// NewGenerator returns a generator. delimiter separates CSV fields; zero
// means a comma.
func NewGenerator(logger logging.Logger, delimiter rune) *Generator {
	if delimiter == 0 {
		delimiter = ','
	}
	return &Generator{
		logger:    logging.OrDefault(logger).WithField(logging.FieldComponent, "ReportGenerator"),
		delimiter: delimiter,
	}
}

// WriteResult renders one result to w.
func (g *Generator) WriteResult(w io.Writer, result models.ParseResult, format Format) error {
	switch format {
	case FormatJSON:
		return g.writeJSON(w, result)
	case FormatYAML:
		return g.writeYAML(w, result)
	case FormatCSV:
		return g.WriteItemsCSV(w, result.Items)
	case FormatTable:
		return g.writeResultTable(w, result)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteValue renders any value as JSON or YAML. Tabular formats are not
// available for arbitrary values.
func (g *Generator) WriteValue(w io.Writer, v interface{}, format Format) error {
	switch format {
	case FormatJSON:
		return g.writeJSON(w, v)
	case FormatYAML:
		return g.writeYAML(w, v)
	default:
		return fmt.Errorf("format %s not supported for this output", format)
	}
}

func (g *Generator) writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		g.logger.WithError(err).Error("Failed to marshal JSON report")
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return nil
}

// writeYAML goes through JSON so the YAML keys follow the JSON output contract.
func (g *Generator) writeYAML(w io.Writer, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	var generic interface{}
	if err := json.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("failed to marshal YAML report: %w", err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		g.logger.WithError(err).Error("Failed to marshal YAML report")
		return fmt.Errorf("failed to marshal YAML report: %w", err)
	}
	return enc.Close()
}
