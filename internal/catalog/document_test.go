package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/receipt-extract/internal/parsererror"
)

const yamlDocument = `version: "1.0"
export_date: 2025-03-01T10:00:00Z
patterns:
  - id: bakery_line
    name: Bakery line
    priority: 40
    confidence: 0.8
    store_identifiers: [bakery]
    sub_patterns:
      - type: single_line
        single_line:
          regex: '^(.+?)\s+([\d,]+)$'
          fields:
            - {field: name, source: group, group: 1}
            - {field: price, source: group, group: 2}
        validation_rules:
          - {field: price, kind: range, min: 10}
`

func TestParseDocument_YAML(t *testing.T) {
	doc, err := ParseDocument([]byte(yamlDocument))
	require.NoError(t, err)

	assert.Equal(t, "1.0", doc.Version)
	assert.Equal(t, 2025, doc.ExportDate.Year())
	require.Len(t, doc.Patterns, 1)

	p := doc.Patterns[0]
	assert.Equal(t, "bakery_line", p.ID)
	assert.True(t, p.Enabled, "absent enabled defaults to true")
	assert.Equal(t, []string{"bakery"}, p.StoreIdentifiers)
	require.NotNil(t, p.SubPatterns[0].SingleLine)
	assert.Equal(t, `^(.+?)\s+([\d,]+)$`, p.SubPatterns[0].SingleLine.Regex)
	require.Len(t, p.SubPatterns[0].ValidationRules, 1)
	require.NotNil(t, p.SubPatterns[0].ValidationRules[0].Min)
	assert.Equal(t, 10.0, *p.SubPatterns[0].ValidationRules[0].Min)
	assert.Nil(t, p.SubPatterns[0].ValidationRules[0].Max)
	assert.NoError(t, Validate(p))
}

func TestParseDocument_JSON(t *testing.T) {
	data := []byte(`{"version":"1.0","patterns":[{"id":"x","enabled":false,"confidence":0.5,"priority":1,
		"sub_patterns":[{"type":"single_line","single_line":{"regex":"(\\d+)","fields":[{"field":"price","source":"group","group":1}]}}]}]}`)

	doc, err := ParseDocument(data)
	require.NoError(t, err)
	require.Len(t, doc.Patterns, 1)
	assert.False(t, doc.Patterns[0].Enabled)
}

func TestParseDocument_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not yaml", "version: [unclosed"},
		{"missing version", "patterns: []"},
		{"patterns not a list", "version: '1.0'\npatterns: {}"},
		{"priority not integer", "version: '1.0'\npatterns:\n  - id: a\n    priority: high\n"},
		{"sub-pattern without type", "version: '1.0'\npatterns:\n  - id: a\n    sub_patterns:\n      - single_line: {}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDocument([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, parsererror.ErrInvalidDocument)
		})
	}
}

func TestParseDocument_SemanticErrorsSurfaceOnImport(t *testing.T) {
	data := []byte("version: '1.0'\npatterns:\n  - id: over\n    confidence: 1.5\n    sub_patterns: []\n")
	doc, err := ParseDocument(data)
	require.NoError(t, err, "range checks belong to pattern validation, not the schema")

	c := New(nil)
	var cfgErr *parsererror.ConfigError
	require.ErrorAs(t, c.Import(*doc, ImportMerge), &cfgErr)
	assert.Equal(t, "confidence", cfgErr.Field)
}

func TestEncodeDocument_RoundTrip(t *testing.T) {
	c := newTestCatalog(t)
	exported := c.Export()

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := EncodeDocument(exported, format)
			require.NoError(t, err)

			parsed, err := ParseDocument(data)
			require.NoError(t, err)
			assert.Equal(t, exported.Version, parsed.Version)
			assert.True(t, exported.ExportDate.Equal(parsed.ExportDate))
			assert.Equal(t, exported.Patterns, parsed.Patterns)

			fresh := New(nil)
			require.NoError(t, fresh.Import(*parsed, ImportReplace))
			assert.Equal(t, c.Len(), fresh.Len())
		})
	}
}

func TestEncodeDocument_UnknownFormat(t *testing.T) {
	_, err := EncodeDocument(Document{}, "xml")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatJSON, FormatFromPath("patterns.JSON"))
	assert.Equal(t, FormatYAML, FormatFromPath("patterns.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("patterns"))
}
