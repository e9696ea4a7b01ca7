// Package batch handles batch processing of receipt files
package batch

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/batch"
	"fjacquet/receipt-extract/internal/container"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/report"
)

// Cmd represents the batch command
var Cmd = &cobra.Command{
	Use:   "batch [path...]",
	Short: "Batch process receipt text files",
	Long: `Batch process receipt text files and write one result per file to an output directory.

Each path may be a file or a directory; directories contribute their *.txt files.
Files are extracted concurrently (batch.workers) and a summary table is printed.
Without an output directory only the summary is produced.

Example:
  receipt-extract batch -i scans/ -o results/ --format json`,
	RunE: batchFunc,
}

func batchFunc(cmd *cobra.Command, args []string) error {
	paths := args
	if root.SharedFlags.Input != "" {
		paths = append([]string{root.SharedFlags.Input}, paths...)
	}
	if len(paths) == 0 {
		return fmt.Errorf("no input given: pass files or directories, or use --input")
	}
	outputDir := root.SharedFlags.Output

	logger := root.GetLogrusAdapter()
	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	c := root.GetContainer()
	if c == nil {
		return fmt.Errorf("container not initialized")
	}

	files, err := batch.CollectFiles(paths)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no receipt files found")
	}
	logger.Info("Found files for processing", logging.F(logging.FieldCount, len(files)))

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	results, err := c.NewBatchProcessor().ProcessFiles(common.Context(cmd), files)
	if err != nil {
		return err
	}

	rows := make([]report.SummaryRow, 0, len(results))
	for _, r := range results {
		row := report.SummaryRow{
			File:       filepath.Base(r.File),
			Items:      len(r.Result.Items),
			Confidence: r.Result.Confidence,
			PatternID:  r.Result.PatternID,
			DurationMS: r.Duration.Milliseconds(),
		}
		if r.Err != nil {
			row.Err = r.Err.Error()
		} else if outputDir != "" {
			if werr := writeResult(c, r, outputDir, format, logger); werr != nil {
				row.Err = werr.Error()
			}
		}
		rows = append(rows, row)
	}

	stats := batch.Summarize(results)
	logger.Info("Batch processing completed",
		logging.F("files", stats.Files),
		logging.F("items", stats.Items),
		logging.F("empty", stats.Empty),
		logging.F("read_errors", stats.ReadErrors))

	return c.GetReportGenerator().WriteSummary(cmd.OutOrStdout(), rows)
}

// writeResult writes one file's result next to the others in outputDir.
func writeResult(c *container.Container, r batch.FileResult, outputDir string, format report.Format, logger logging.Logger) error {
	path := batch.OutputFilename(r.File, outputDir, string(format))
	file, err := os.Create(path) // #nosec G304 -- CLI tool requires user-provided output paths
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			logger.WithError(cerr).Warn("Failed to close output file")
		}
	}()

	if err := c.GetReportGenerator().WriteResult(file, r.Result, format); err != nil {
		logger.WithError(err).Error("Failed to write result",
			logging.F(logging.FieldOutputFile, path))
		return err
	}
	logger.Debug("Created result file", logging.F(logging.FieldOutputFile, path))
	return nil
}
