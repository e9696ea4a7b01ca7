package store

import (
	"errors"
	"fmt"
	"os"

	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/logging"
)

// PatternStore persists the pattern catalog as a versioned document. The
// format follows the file extension: .json for JSON, YAML otherwise.
type PatternStore struct {
	File   string
	logger logging.Logger
}

// NewPatternStore creates a store for the catalog document at file.
func NewPatternStore(file string, logger logging.Logger) *PatternStore {
	return &PatternStore{File: file, logger: logging.OrDefault(logger)}
}

// LoadDocument reads and schema-checks the persisted document. It returns
// nil without error when no document has been saved yet.
func (s *PatternStore) LoadDocument() (*catalog.Document, error) {
	if s.File == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.File)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("No persisted pattern document", logging.F(logging.FieldInputFile, s.File))
			return nil, nil
		}
		return nil, fmt.Errorf("error reading pattern document: %w", err)
	}

	doc, err := catalog.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("error parsing pattern document %s: %w", s.File, err)
	}
	s.logger.Debug("Loaded pattern document",
		logging.F(logging.FieldCount, len(doc.Patterns)),
		logging.F(logging.FieldInputFile, s.File))
	return doc, nil
}

// SaveDocument writes doc, replacing any previous document atomically.
func (s *PatternStore) SaveDocument(doc catalog.Document) error {
	if s.File == "" {
		return errors.New("no pattern document file configured")
	}
	data, err := catalog.EncodeDocument(doc, catalog.FormatFromPath(s.File))
	if err != nil {
		return fmt.Errorf("error encoding pattern document: %w", err)
	}
	if err := writeFileAtomic(s.File, data); err != nil {
		return fmt.Errorf("error writing pattern document: %w", err)
	}
	s.logger.Info("Saved pattern document",
		logging.F(logging.FieldCount, len(doc.Patterns)),
		logging.F(logging.FieldOutputFile, s.File))
	return nil
}

// LoadInto applies the persisted document to c, replacing patterns with the
// same id. A missing document leaves c untouched.
func (s *PatternStore) LoadInto(c *catalog.Catalog) error {
	doc, err := s.LoadDocument()
	if err != nil || doc == nil {
		return err
	}
	return c.Import(*doc, catalog.ImportMerge)
}
