// Package root contains the root command for the application
package root

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fjacquet/receipt-extract/internal/config"
	"fjacquet/receipt-extract/internal/container"
	"fjacquet/receipt-extract/internal/logging"
	"fjacquet/receipt-extract/internal/report"
	"fjacquet/receipt-extract/internal/validation"
)

// CommonFlags represents the flags that are common to multiple commands
type CommonFlags struct {
	Input  string
	Output string
	Format string
}

var (
	// Log is the shared logger instance for commands
	Log = logrus.New()

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "receipt-extract",
		Short: "A CLI tool to extract line items from OCR receipt text.",
		Long: `receipt-extract turns the OCR text of a shop receipt into structured line items.
It detects the issuing store, applies a prioritized pattern catalog with staged
fallbacks, and can merge its result with an external document analysis service.`,
		Run: func(cmd *cobra.Command, args []string) {
			Log.Info("Welcome to receipt-extract!")
			Log.Info("Use --help to see available commands")
		},
		PersistentPreRunE: initializeApp,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if AppContainer == nil {
				return
			}
			if err := AppContainer.Close(); err != nil {
				Log.Warnf("Failed to close container: %v", err)
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// SharedFlags holds the values of the persistent flags
	SharedFlags = CommonFlags{}

	// AppConfig is the configuration loaded before any subcommand runs
	AppConfig *config.Config

	// AppContainer holds the wired application dependencies
	AppContainer *container.Container

	configFile string
	initOnce   sync.Once
)

// Init initializes the root command and all flags. Calling it again is a no-op.
func Init() {
	initOnce.Do(func() {
		pf := Cmd.PersistentFlags()
		pf.StringVarP(&SharedFlags.Input, "input", "i", "", "Input file or directory (stdin when empty)")
		pf.StringVarP(&SharedFlags.Output, "output", "o", "", "Output file or directory (stdout when empty)")
		pf.StringVarP(&SharedFlags.Format, "format", "f", "", "Output format: json, yaml, csv or table (default from config)")
		pf.StringVar(&configFile, "config", "", "Config file (default is $HOME/.receipt-extract/config.yaml)")
		pf.String("log-level", "", "Log level: trace, debug, info, warn, error")
		pf.String("log-format", "", "Log format: text or json")
		pf.String("csv-delimiter", "", "CSV field delimiter")
		pf.Bool("hybrid", false, "Combine pattern extraction with the configured document service")
	})
}

func initializeApp(cmd *cobra.Command, args []string) error {
	config.LoadEnv(logging.NewDiscardLogger())

	cfg, err := config.InitializeConfigFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlagOverrides(cmd, cfg)

	Log = config.ConfigureLoggingFromConfig(cfg)
	logger := GetLogrusAdapter()
	logging.SetLogger(logger)

	c, err := container.NewContainer(cfg, container.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	AppConfig = cfg
	AppContainer = c
	return nil
}

// applyFlagOverrides copies explicitly set flags over the loaded configuration.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level, _ = flags.GetString("log-level")
	}
	if flags.Changed("log-format") {
		cfg.Log.Format, _ = flags.GetString("log-format")
	}
	if flags.Changed("csv-delimiter") {
		cfg.Output.CSVDelimiter, _ = flags.GetString("csv-delimiter")
	}
	if flags.Changed("hybrid") {
		cfg.Hybrid.Enabled, _ = flags.GetBool("hybrid")
	}
}

// GetConfig returns the loaded configuration, or the defaults when no
// command has initialized one.
func GetConfig() *config.Config {
	if AppConfig == nil {
		return config.Default()
	}
	return AppConfig
}

// GetContainer returns the application container, nil before initialization.
func GetContainer() *container.Container {
	return AppContainer
}

// GetLogrusAdapter returns the shared logger behind the logging interface.
func GetLogrusAdapter() logging.Logger {
	return logging.NewLogrusAdapterFromLogger(Log)
}

// NewContainer builds a container from the loaded configuration with extra
// options, for commands that need a differently wired service.
func NewContainer(opts ...container.Option) (*container.Container, error) {
	all := append([]container.Option{container.WithLogger(GetLogrusAdapter())}, opts...)
	return container.NewContainer(GetConfig(), all...)
}

// OutputFormat returns the --format flag, falling back to the configured format.
func OutputFormat() (report.Format, error) {
	format := SharedFlags.Format
	if format == "" {
		format = GetConfig().Output.Format
	}
	if err := validation.IsValidOutputFormat(format); err != nil {
		return "", err
	}
	return report.ParseFormat(format)
}
