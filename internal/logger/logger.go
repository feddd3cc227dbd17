// Package logger builds the structured slog.Logger used across coreflow,
// fanning output out to the console and (optionally) a log file.
package logger

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Format selects the console encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

type config struct {
	debug   bool
	quiet   bool
	format  Format
	logFile *os.File
}

// Option configures the logger returned by New, following the
// functional-options shape used throughout coreflow's command layer.
type Option func(*config)

func WithDebug() Option          { return func(c *config) { c.debug = true } }
func WithQuiet() Option          { return func(c *config) { c.quiet = true } }
func WithFormat(f Format) Option { return func(c *config) { c.format = f } }
func WithLogFile(f *os.File) Option {
	return func(c *config) { c.logFile = f }
}

// New builds a *slog.Logger. With no log file, output goes to stderr
// alone (or is discarded entirely when WithQuiet is set); with a log
// file, output fans out to both via slog-multi.
func New(opts ...Option) *slog.Logger {
	cfg := config{format: FormatPretty}
	for _, opt := range opts {
		opt(&cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	var console io.Writer = os.Stderr
	if cfg.quiet {
		console = io.Discard
	}

	var handlers []slog.Handler
	handlers = append(handlers, newHandler(console, cfg.format, handlerOpts))
	if cfg.logFile != nil {
		handlers = append(handlers, newHandler(cfg.logFile, FormatJSON, handlerOpts))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

func newHandler(w io.Writer, format Format, opts *slog.HandlerOptions) slog.Handler {
	if format == FormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
