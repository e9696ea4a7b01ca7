// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/validation"
)

// Context returns the command context, or a background context when the
// command runs outside Execute.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// ReadInput returns the receipt text at path, or the command's stdin when
// path is empty or "-".
func ReadInput(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("failed to read standard input: %w", err)
		}
		return string(data), nil
	}

	if err := validation.IsValidInputFile(path); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		return "", fmt.Errorf("failed to read input file: %w", err)
	}
	return string(data), nil
}

// WriteOutput runs write against the file at path, or the command's stdout
// when path is empty.
func WriteOutput(cmd *cobra.Command, path string, log logging.Logger, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	file, err := os.Create(path) // #nosec G304 -- CLI tool requires user-provided output paths
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			log.WithError(cerr).Warn("Failed to close output file")
		}
	}()

	if err := write(file); err != nil {
		return err
	}
	log.Debug("Output written", logging.F(logging.FieldOutputFile, path))
	return nil
}
