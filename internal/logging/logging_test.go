package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		want      zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"negative clamps to warn", -1, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 5, zerolog.TraceLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Level(tt.verbosity); got != tt.want {
				t.Fatalf("Level(%d) = %v, want %v", tt.verbosity, got, tt.want)
			}
		})
	}
}

func TestSetupWritesConsoleAndFile(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	dir := t.TempDir()
	var console bytes.Buffer
	logger, closeFn := Setup(Options{Verbosity: 1, Dir: dir, Console: &console})
	logger.Info().Str("k", "v").Msg("hello")
	logger.Debug().Msg("hidden")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if !strings.Contains(console.String(), "hello") {
		t.Fatalf("console missing message: %q", console.String())
	}
	if strings.Contains(console.String(), "\x1b[") {
		t.Fatalf("console output should not be colored for non-tty writer")
	}
	data, err := os.ReadFile(filepath.Join(dir, "pluginkit.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) || strings.Contains(string(data), "hidden") {
		t.Fatalf("unexpected log file content: %s", data)
	}
	if log.Logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("global logger level = %v", log.Logger.GetLevel())
	}
}

func TestSetupFallsBackToConsole(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	var console bytes.Buffer
	_, closeFn := Setup(Options{Dir: filepath.Join(blocker, "sub"), Console: &console})
	_ = closeFn()
	if !strings.Contains(console.String(), "failed to create log file") {
		t.Fatalf("expected fallback warning, got %q", console.String())
	}
}

func TestForPlugin(t *testing.T) {
	dir := t.TempDir()
	now := func() time.Time { return time.Date(2024, 3, 7, 12, 0, 0, 0, time.UTC) }
	logger, closer, err := ForPlugin("seo", Options{Verbosity: 2, Dir: dir, Now: now})
	if err != nil {
		t.Fatalf("ForPlugin: %v", err)
	}
	logger.Debug().Msg("indexed")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(dir, "seo-2024-03-07.log")
	if got := PluginLogPath("seo", Options{Dir: dir, Now: now}); got != path {
		t.Fatalf("PluginLogPath = %s, want %s", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read plugin log: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode entry: %v", err)
	}
	if entry["plugin"] != "seo" || entry["message"] != "indexed" || entry["level"] != "debug" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestForPluginRejectsBadHandle(t *testing.T) {
	for _, handle := range []string{"", "  ", "../etc", `a\b`} {
		if _, _, err := ForPlugin(handle, Options{Dir: t.TempDir()}); err == nil {
			t.Fatalf("expected error for %q", handle)
		}
	}
}

func TestForPluginWithoutFile(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := ForPlugin("seo", Options{NoFile: true, Console: &console})
	if err != nil {
		t.Fatalf("ForPlugin: %v", err)
	}
	logger.Warn().Msg("careful")
	_ = closer.Close()
	if !strings.Contains(console.String(), "careful") || !strings.Contains(console.String(), "plugin=seo") {
		t.Fatalf("console = %q", console.String())
	}
}

func TestDefaultDir(t *testing.T) {
	if !strings.HasSuffix(DefaultDir(), filepath.Join("", AppName)) {
		t.Fatalf("DefaultDir = %s", DefaultDir())
	}
}

func TestComponentUsesGlobalLogger(t *testing.T) {
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })

	var buf bytes.Buffer
	log.Logger = zerolog.New(&buf)
	logger := Component("geoip")
	logger.Info().Msg("lookup")
	if !strings.Contains(buf.String(), `"component":"geoip"`) {
		t.Fatalf("expected component field, got %q", buf.String())
	}
}

func TestOperationStart(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	done := OperationStart(logger, "pluginkit export")
	done()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected start and completion lines, got %q", buf.String())
	}
	var end map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &end); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if end["operation"] != "pluginkit export" || end["message"] != "operation completed" {
		t.Fatalf("unexpected completion entry %v", end)
	}
	if _, ok := end["duration"]; !ok {
		t.Fatalf("expected duration field in %v", end)
	}

	buf.Reset()
	OperationStart(logger.Level(zerolog.WarnLevel), "quiet")()
	if buf.Len() != 0 {
		t.Fatalf("debug lines should be filtered at warn, got %q", buf.String())
	}
}
