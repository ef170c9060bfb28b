package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// setupLog configures the global logger from the logging section of
// the configuration. The returned closer flushes the log file, if one
// is in use.
func setupLog() (func() error, error) {
	switch viper.GetString("logging.level") {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	log.SetReportTimestamp(true)

	if logFile := viper.GetString("logging.file"); logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		log.SetOutput(f)
		return f.Close, nil
	}

	log.SetOutput(os.Stderr)
	return func() error { return nil }, nil
}
