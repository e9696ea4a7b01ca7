// Package validation checks command-line inputs before any work starts.
package validation

import (
	"fmt"
	"os"
	"regexp"

	"fjacquet/receipt-extract/internal/report"
)

// IsValidPath checks if a given path exists and is a file or a directory.
func IsValidPath(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("path does not exist: %s", path)
	}
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}

	if !info.IsDir() && !info.Mode().IsRegular() {
		return fmt.Errorf("path %s is neither a file nor a directory", path)
	}

	return nil
}

// IsValidInputFile checks that path is a readable regular file.
func IsValidInputFile(path string) error {
	if err := IsValidPath(path); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error checking path %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %s is a directory, expected a file", path)
	}
	return nil
}

// IsValidOutputFormat checks if the given format is supported.
func IsValidOutputFormat(format string) error {
	if _, err := report.ParseFormat(format); err != nil {
		return fmt.Errorf("unsupported output format: %s. Supported formats are 'json', 'yaml', 'csv', 'table'", format)
	}
	return nil
}

var patternIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// IsValidPatternID checks that id is usable as a catalog pattern id:
// lower-case letters, digits, '_' and '-', starting with a letter or digit.
func IsValidPatternID(id string) error {
	if !patternIDPattern.MatchString(id) {
		return fmt.Errorf("invalid pattern id %q: use lower-case letters, digits, '_' or '-'", id)
	}
	return nil
}
