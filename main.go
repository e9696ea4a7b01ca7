package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"fjacquet/receipt-extract/cmd/batch"
	"fjacquet/receipt-extract/cmd/categorize"
	"fjacquet/receipt-extract/cmd/classify"
	"fjacquet/receipt-extract/cmd/extract"
	"fjacquet/receipt-extract/cmd/patterns"
	"fjacquet/receipt-extract/cmd/root"
	"fjacquet/receipt-extract/internal/config"
)

func init() {
	// Quiet the shared logger until the configuration is loaded
	root.Log.SetLevel(initialLogLevel())

	root.Init()

	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(classify.Cmd)
	root.Cmd.AddCommand(patterns.Cmd)
	root.Cmd.AddCommand(batch.Cmd)
	root.Cmd.AddCommand(categorize.Cmd)
}

// initialLogLevel reads RECEIPT_LOG_LEVEL, defaulting to info.
func initialLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(strings.ToLower(config.GetEnv(config.EnvPrefix+"_LOG_LEVEL", "info")))
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func main() {
	if err := root.Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
