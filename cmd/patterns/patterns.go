// Package patterns handles pattern catalog management commands
package patterns

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/cmd/common"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/catalog"
	"fjacquet/receipt-extract/internal/container"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/report"
	"fjacquet/receipt-extract/internal/validation"
)

// Replace makes import discard the existing catalog
var Replace bool

// Cmd represents the patterns command
var Cmd = &cobra.Command{
	Use:   "patterns",
	Short: "Manage the extraction pattern catalog",
	Long: `List, inspect, import and export the extraction pattern catalog.

Changes are written back to catalog.file when catalog.persist is enabled;
otherwise they only last for the current invocation.

Example:
  receipt-extract patterns list
  receipt-extract patterns export patterns.yaml
  receipt-extract patterns import custom.yaml`,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every pattern by priority",
	Args:  cobra.NoArgs,
	RunE:  listFunc,
}

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  showFunc,
}

var exportCmd = &cobra.Command{
	Use:   "export [file]",
	Short: "Export the catalog as a versioned YAML or JSON document",
	Args:  cobra.MaximumNArgs(1),
	RunE:  exportFunc,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import patterns from a document; any invalid pattern rejects the whole file",
	Args:  cobra.ExactArgs(1),
	RunE:  importFunc,
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a pattern document without changing the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  validateFunc,
}

var enableCmd = &cobra.Command{
	Use:   "enable <id>",
	Short: "Enable a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], true)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <id>",
	Short: "Disable a pattern",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setEnabled(cmd, args[0], false)
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a pattern",
	Args:  cobra.ExactArgs(1),
	RunE:  deleteFunc,
}

var duplicateCmd = &cobra.Command{
	Use:   "duplicate <id> <new-id>",
	Short: "Copy a pattern under a new id",
	Args:  cobra.ExactArgs(2),
	RunE:  duplicateFunc,
}

func init() {
	importCmd.Flags().BoolVar(&Replace, "replace", false, "Replace the whole catalog instead of merging")
	Cmd.AddCommand(listCmd, showCmd, exportCmd, importCmd, validateCmd,
		enableCmd, disableCmd, deleteCmd, duplicateCmd)
}

func appContainer() (*container.Container, error) {
	c := root.GetContainer()
	if c == nil {
		return nil, fmt.Errorf("container not initialized")
	}
	return c, nil
}

func listFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	return writePatterns(cmd, c, c.GetCatalog().List(), format)
}

func showFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	format, err := root.OutputFormat()
	if err != nil {
		return err
	}
	p, ok := c.GetCatalog().Get(args[0])
	if !ok {
		return fmt.Errorf("pattern not found: %s", args[0])
	}
	if format == report.FormatJSON || format == report.FormatYAML {
		return common.WriteOutput(cmd, root.SharedFlags.Output, root.GetLogrusAdapter(), func(w io.Writer) error {
			return c.GetReportGenerator().WriteValue(w, p, format)
		})
	}
	return writePatterns(cmd, c, []catalog.PatternConfig{p}, format)
}

func writePatterns(cmd *cobra.Command, c *container.Container, list []catalog.PatternConfig, format report.Format) error {
	gen := c.GetReportGenerator()
	return common.WriteOutput(cmd, root.SharedFlags.Output, root.GetLogrusAdapter(), func(w io.Writer) error {
		switch format {
		case report.FormatTable:
			return gen.WritePatterns(w, list)
		case report.FormatJSON, report.FormatYAML:
			return gen.WriteValue(w, list, format)
		default:
			return fmt.Errorf("patterns support json, yaml and table output")
		}
	})
}

func exportFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}

	path := root.SharedFlags.Output
	if len(args) == 1 {
		path = args[0]
	}
	format := catalog.FormatYAML
	if path != "" {
		format = catalog.FormatFromPath(path)
	} else if root.SharedFlags.Format == string(report.FormatJSON) {
		format = catalog.FormatJSON
	}

	doc := c.GetCatalog().Export()
	data, err := catalog.EncodeDocument(doc, format)
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}

	logger := root.GetLogrusAdapter()
	if err := common.WriteOutput(cmd, path, logger, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	}); err != nil {
		return err
	}
	logger.Info("Catalog exported",
		logging.F(logging.FieldCount, len(doc.Patterns)),
		logging.F(logging.FieldOutputFile, path))
	return nil
}

func readDocument(path string) (*catalog.Document, error) {
	if err := validation.IsValidInputFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) // #nosec G304 -- CLI tool requires user-provided file paths
	if err != nil {
		return nil, fmt.Errorf("failed to read pattern document: %w", err)
	}
	return catalog.ParseDocument(data)
}

func importFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}

	mode := catalog.ImportMerge
	if Replace {
		mode = catalog.ImportReplace
	}
	if err := c.GetCatalog().Import(*doc, mode); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported %d patterns, catalog holds %d\n",
		len(doc.Patterns), c.GetCatalog().Len()); err != nil {
		return err
	}
	return persist(c)
}

func validateFunc(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(args[0])
	if err != nil {
		return err
	}
	scratch := catalog.New(logging.NewDiscardLogger())
	if err := scratch.Import(*doc, catalog.ImportReplace); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d patterns valid\n", args[0], len(doc.Patterns))
	return err
}

func setEnabled(cmd *cobra.Command, id string, enabled bool) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	if err := c.GetCatalog().SetEnabled(id, enabled); err != nil {
		return err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, state); err != nil {
		return err
	}
	return persist(c)
}

func deleteFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	id := args[0]
	if err := c.GetCatalog().Delete(id); err != nil {
		return err
	}
	if isBuiltIn(id) {
		root.GetLogrusAdapter().Warn("Built-in patterns are restored on the next start; disable it to keep it off",
			logging.F(logging.FieldPatternID, id))
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s deleted\n", id); err != nil {
		return err
	}
	return persist(c)
}

func duplicateFunc(cmd *cobra.Command, args []string) error {
	c, err := appContainer()
	if err != nil {
		return err
	}
	id, newID := args[0], args[1]
	if err := validation.IsValidPatternID(newID); err != nil {
		return err
	}
	if err := c.GetCatalog().Duplicate(id, newID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s copied to %s\n", id, newID); err != nil {
		return err
	}
	return persist(c)
}

func isBuiltIn(id string) bool {
	for _, p := range catalog.DefaultPatterns() {
		if p.ID == id {
			return true
		}
	}
	return false
}

// persist writes the catalog back when persistence is configured.
func persist(c *container.Container) error {
	cfg := root.GetConfig()
	if !cfg.Catalog.Persist || cfg.Catalog.File == "" {
		root.GetLogrusAdapter().Warn("Catalog change not persisted; set catalog.persist and catalog.file to keep it")
		return nil
	}
	return c.GetPatternStore().SaveDocument(c.GetCatalog().Export())
}
