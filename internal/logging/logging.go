// Package logging configures zerolog for the pluginkit CLI and gives each
// plugin its own dated log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AppName names the default log directory under the XDG state home.
const AppName = "pluginkit"

// Options controls logger construction. Zero values are usable.
type Options struct {
	// Verbosity maps to a level: 0 warn, 1 info, 2 debug, 3+ trace.
	Verbosity int
	// Dir holds log files; defaults to $XDG_STATE_HOME/pluginkit.
	Dir string
	// Console receives human-readable output; defaults to stderr for
	// Setup and to nothing for ForPlugin.
	Console io.Writer
	// NoFile disables the log file.
	NoFile bool
	Now    func() time.Time
}

func (o Options) dir() string {
	if o.Dir != "" {
		return o.Dir
	}
	return DefaultDir()
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// DefaultDir returns $XDG_STATE_HOME/pluginkit.
func DefaultDir() string {
	return filepath.Join(xdg.StateHome, AppName)
}

// Level maps a -v count to a zerolog level.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// Setup builds the process logger, installs it as the zerolog global and
// returns it with a close function for the log file. Failure to open the
// file is logged and falls back to console only.
func Setup(opts Options) (zerolog.Logger, func() error) {
	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{consoleWriter(out)}

	closeFn := func() error { return nil }
	var fileErr error
	logFile := filepath.Join(opts.dir(), AppName+".log")
	if !opts.NoFile {
		f, err := openLogFile(logFile)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
			closeFn = f.Close
		}
	}

	ctx := zerolog.New(io.MultiWriter(writers...)).Level(Level(opts.Verbosity)).With().Timestamp()
	if opts.Verbosity >= 2 {
		ctx = ctx.Caller()
	}
	logger := ctx.Logger()
	log.Logger = logger

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("path", logFile).Msg("failed to create log file, logging to console only")
	}
	logger.Debug().Int("verbosity", opts.Verbosity).Str("logFile", logFile).Msg("logger initialized")
	return logger, closeFn
}

// ForPlugin returns a logger tagged with plugin=<handle> that appends JSON
// lines to <dir>/<handle>-YYYY-MM-DD.log.
func ForPlugin(handle string, opts Options) (zerolog.Logger, io.Closer, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" || strings.ContainsAny(handle, `/\`) {
		return zerolog.Nop(), nil, fmt.Errorf("invalid plugin handle %q", handle)
	}
	var writers []io.Writer
	if opts.Console != nil {
		writers = append(writers, consoleWriter(opts.Console))
	}
	var closer io.Closer = nopCloser{}
	if !opts.NoFile {
		f, err := openLogFile(PluginLogPath(handle, opts))
		if err != nil {
			return zerolog.Nop(), nil, err
		}
		writers = append(writers, f)
		closer = f
	}
	if len(writers) == 0 {
		return zerolog.Nop(), closer, nil
	}
	logger := zerolog.New(io.MultiWriter(writers...)).
		Level(Level(opts.Verbosity)).
		With().Timestamp().Str("plugin", handle).Logger()
	return logger, closer, nil
}

// PluginLogPath returns the dated log file for handle.
func PluginLogPath(handle string, opts Options) string {
	return filepath.Join(opts.dir(), fmt.Sprintf("%s-%s.log", handle, opts.now().Format("2006-01-02")))
}

// Component returns the global logger with a component field.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

// OperationStart logs the start of operation and returns a func logging
// its completion with the elapsed time.
func OperationStart(logger zerolog.Logger, operation string) func() {
	start := time.Now()
	logger.Debug().Str("operation", operation).Msg("operation started")
	return func() {
		logger.Debug().Str("operation", operation).Dur("duration", time.Since(start)).Msg("operation completed")
	}
}

func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    !isTerminal(out),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
