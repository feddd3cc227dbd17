package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/coreflow/coreflow/internal/logger"
)

func buildLogger(debug bool, format logger.Format, quiet bool) *slog.Logger {
	return buildLoggerWithFile(debug, format, quiet, nil)
}

func buildLoggerWithFile(debug bool, format logger.Format, quiet bool, f *os.File) *slog.Logger {
	var opts []logger.Option
	if debug {
		opts = append(opts, logger.WithDebug())
	}
	if format != "" {
		opts = append(opts, logger.WithFormat(format))
	}
	if quiet {
		opts = append(opts, logger.WithQuiet())
	}
	if f != nil {
		opts = append(opts, logger.WithLogFile(f))
	}
	return logger.New(opts...)
}

// logFileSettings holds the inputs needed to place a workflow's log file
// on disk in a predictable, collision-free location.
type logFileSettings struct {
	Prefix       string
	LogDir       string
	WorkflowName string
	ExecutionID  string
}

// openLogFile creates and opens a log file based on the provided settings.
func openLogFile(cfg logFileSettings) (*os.File, error) {
	if err := validateSettings(cfg); err != nil {
		return nil, fmt.Errorf("invalid log settings: %w", err)
	}
	if err := os.MkdirAll(cfg.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", cfg.LogDir, err)
	}
	filename := buildLogFilename(cfg)
	return createLogFile(filepath.Join(cfg.LogDir, filename))
}

func validateSettings(cfg logFileSettings) error {
	if cfg.WorkflowName == "" {
		return fmt.Errorf("workflow name cannot be empty")
	}
	if cfg.LogDir == "" {
		return fmt.Errorf("log directory must be specified")
	}
	return nil
}

func buildLogFilename(cfg logFileSettings) string {
	timestamp := time.Now().Format("20060102.150405")
	execID := cfg.ExecutionID
	if len(execID) > 8 {
		execID = execID[:8]
	}
	return fmt.Sprintf("%s%s.%s.%s.log", cfg.Prefix, safeName(cfg.WorkflowName), timestamp, execID)
}

func createLogFile(path string) (*os.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create/open log file %s: %w", path, err)
	}
	return file, nil
}

// safeName replaces path separators so a workflow name can be used as a
// filesystem path component.
func safeName(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case '/', '\\', ' ':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}
