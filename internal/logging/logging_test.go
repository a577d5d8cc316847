package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLogFileWriteAndDefaults(t *testing.T) {
	dir := t.TempDir()
	file, err := OpenLogFile(dir, "", 0)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}
	defer file.Close()

	if _, err := file.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	path := filepath.Join(dir, defaultPrefix+"-"+time.Now().Format(dayLayout)+".log")
	if file.Path() != path {
		t.Fatalf("expected path %q, got %q", path, file.Path())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log content missing")
	}
}

func TestLogFileSwitchesDayAndPrunes(t *testing.T) {
	dir := t.TempDir()
	day := time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC)
	clock := func() time.Time { return day }

	stale := filepath.Join(dir, "test-20240305.log")
	kept := filepath.Join(dir, "test-20240309.log")
	other := filepath.Join(dir, "other-20200101.log")
	for _, path := range []string{stale, kept, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}

	file, err := openLogFile(dir, "test", 2, clock)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	defer file.Close()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale log to be removed, got %v", err)
	}
	for _, path := range []string{kept, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}

	if _, err := file.Write([]byte("late\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	day = day.Add(2 * time.Minute)
	if _, err := file.Write([]byte("early\n")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if file.Path() != filepath.Join(dir, "test-20240311.log") {
		t.Fatalf("expected switch to the new day, got %q", file.Path())
	}
	data, err := os.ReadFile(filepath.Join(dir, "test-20240310.log"))
	if err != nil || string(data) != "late\n" {
		t.Fatalf("unexpected previous day content %q %v", data, err)
	}
}

func TestLogFileCloseTwice(t *testing.T) {
	file, err := OpenLogFile(t.TempDir(), "", 0)
	if err != nil {
		t.Fatalf("OpenLogFile: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()
	logger, file, err := NewLogger(dir, slog.LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger == nil || file == nil {
		t.Fatalf("expected logger and file")
	}
	_ = file.Close()
}

func TestNewLoggerWithOptionsJSON(t *testing.T) {
	t.Setenv(envLogLevel, "")
	t.Setenv(envLogFormat, "")
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var out bytes.Buffer
	logger, writer, err := NewLoggerWithOptions(Options{
		Dir:    t.TempDir(),
		Level:  "warn",
		Format: "json",
		Stdout: &out,
	})
	if err != nil {
		t.Fatalf("NewLoggerWithOptions: %v", err)
	}
	defer writer.Close()

	logger.Info("hidden")
	logger.Warn("shown", "ticker", "AAPL")
	if strings.Contains(out.String(), "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out.String())
	}
	if !strings.Contains(out.String(), `"ticker":"AAPL"`) || !strings.Contains(out.String(), `"service":"portfolio"`) {
		t.Fatalf("expected json output, got %s", out.String())
	}
}

func TestEnvOverridesLevel(t *testing.T) {
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "")
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var out bytes.Buffer
	logger, writer, err := NewLoggerWithOptions(Options{Dir: t.TempDir(), Level: "error", Stdout: &out})
	if err != nil {
		t.Fatalf("NewLoggerWithOptions: %v", err)
	}
	defer writer.Close()
	logger.Debug("details")
	if !strings.Contains(out.String(), "level=DEBUG") {
		t.Fatalf("expected env level to win, got %q", out.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"8", slog.Level(8)},
		{"loud", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, slog.LevelInfo); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
