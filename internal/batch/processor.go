// Package batch runs receipt extraction over many text files concurrently
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/models"
)

// DefaultWorkers is used when no positive worker count is configured.
const DefaultWorkers = 4

// Extractor turns one receipt text into a result.
type Extractor interface {
	Extract(ctx context.Context, text string) models.ParseResult
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, text string) models.ParseResult

// Extract implements Extractor.
func (f ExtractorFunc) Extract(ctx context.Context, text string) models.ParseResult {
	return f(ctx, text)
}

// FileResult is the outcome for one input file. Err is set when the file
// could not be read; extraction itself never fails.
type FileResult struct {
	File     string
	Result   models.ParseResult
	Err      error
	Duration time.Duration
}

// Stats summarizes a batch run.
type Stats struct {
	Files      int
	Items      int
	Empty      int
	ReadErrors int
}

// Processor extracts a set of files with a bounded worker pool.
type Processor struct {
	extractor Extractor
	workers   int
	logger    logging.Logger
}

// NewProcessor returns a processor running at most workers extractions at once.
func NewProcessor(extractor Extractor, workers int, logger logging.Logger) *Processor {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &Processor{
		extractor: extractor,
		workers:   workers,
		logger:    logging.OrDefault(logger).WithField(logging.FieldComponent, "BatchProcessor"),
	}
}

// ProcessFiles extracts every file and returns the results in input order.
// Unreadable files are reported in their FileResult and do not stop the run;
// only cancellation of ctx does.
func (p *Processor) ProcessFiles(ctx context.Context, files []string) ([]FileResult, error) {
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for idx, file := range files {
		idx, file := idx, file
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[idx] = p.processFile(gctx, file)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, fmt.Errorf("batch cancelled: %w", err)
	}

	stats := Summarize(results)
	p.logger.Info("Processed receipt batch",
		logging.F(logging.FieldCount, stats.Files),
		logging.F("items", stats.Items),
		logging.F("empty", stats.Empty),
		logging.F("read_errors", stats.ReadErrors))
	p.detectAndLogDuplicates(results)
	return results, nil
}

func (p *Processor) processFile(ctx context.Context, file string) FileResult {
	start := time.Now()
	data, err := os.ReadFile(file) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		p.logger.WithError(err).Warn("Failed to read receipt file",
			logging.F(logging.FieldInputFile, file))
		return FileResult{File: file, Err: fmt.Errorf("failed to read %s: %w", file, err)}
	}

	result := p.extractor.Extract(ctx, string(data))
	p.logger.Debug("Extracted receipt file",
		logging.F(logging.FieldInputFile, filepath.Base(file)),
		logging.F(logging.FieldCount, len(result.Items)),
		logging.F(logging.FieldConfidence, result.Confidence))
	return FileResult{File: file, Result: result, Duration: time.Since(start)}
}

// detectAndLogDuplicates warns about files whose extracted items are
// identical, which usually means the same receipt was scanned twice. All
// results are kept.
func (p *Processor) detectAndLogDuplicates(results []FileResult) {
	seen := make(map[string]string)
	for _, r := range results {
		if r.Err != nil || len(r.Result.Items) == 0 {
			continue
		}
		key := fingerprint(r.Result.Items)
		if first, ok := seen[key]; ok {
			p.logger.Warn("Potential duplicate receipt detected",
				logging.F(logging.FieldInputFile, r.File),
				logging.F("duplicate_of", first))
			continue
		}
		seen[key] = r.File
	}
}

func fingerprint(items []models.ExtractedItem) string {
	parts := make([]string, len(items))
	for idx, item := range items {
		parts[idx] = fmt.Sprintf("%s|%s|%s|%d", item.Name, item.Price.String(), item.Currency, item.Quantity)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\n")
}

// Summarize counts the outcome of a run.
func Summarize(results []FileResult) Stats {
	stats := Stats{Files: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			stats.ReadErrors++
		case len(r.Result.Items) == 0:
			stats.Empty++
		default:
			stats.Items += len(r.Result.Items)
		}
	}
	return stats
}

// CollectFiles expands the given paths: files are taken as is and
// directories contribute their *.txt files. The result is sorted and free of
// duplicates.
func CollectFiles(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(f string) {
		if !seen[f] {
			seen[f] = true
			files = append(files, f)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", path, err)
		}
		if !info.IsDir() {
			add(filepath.Clean(path))
			continue
		}
		matches, err := filepath.Glob(filepath.Join(path, "*.txt"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		for _, m := range matches {
			add(filepath.Clean(m))
		}
	}

	sort.Strings(files)
	return files, nil
}

// OutputFilename returns the output file name for input in outDir, with the
// extension replaced by the format name: receipt.txt → receipt.json.
func OutputFilename(input, outDir, format string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(outDir, fmt.Sprintf("%s.%s", base, format))
}
