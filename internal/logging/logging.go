// Package logging builds the process slog.Logger. Records go to stdout and
// to one file per day under the data directory's logs folder.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPrefix    = "portfolio"
	defaultRetention = 7
	dayLayout        = "20060102"
)

const (
	envLogLevel  = "PORTFOLIO_LOG_LEVEL"
	envLogFormat = "PORTFOLIO_LOG_FORMAT"
)

// LogFile appends to <prefix>-YYYYMMDD.log, switching files when the day
// changes and deleting files older than the retention window.
type LogFile struct {
	dir       string
	prefix    string
	retention int
	now       func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

// OpenLogFile opens today's file in dir. A zero retention keeps a week.
func OpenLogFile(dir, prefix string, retentionDays int) (*LogFile, error) {
	return openLogFile(dir, prefix, retentionDays, time.Now)
}

func openLogFile(dir, prefix string, retentionDays int, now func() time.Time) (*LogFile, error) {
	if retentionDays <= 0 {
		retentionDays = defaultRetention
	}
	if prefix == "" {
		prefix = defaultPrefix
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f := &LogFile{dir: dir, prefix: prefix, retention: retentionDays, now: now}
	if err := f.switchTo(now()); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *LogFile) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.switchTo(f.now()); err != nil {
		return 0, err
	}
	return f.file.Write(p)
}

func (f *LogFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}

// Path returns the file currently written to.
func (f *LogFile) Path() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pathFor(f.day)
}

func (f *LogFile) pathFor(day string) string {
	return filepath.Join(f.dir, f.prefix+"-"+day+".log")
}

// switchTo must be called with mu held.
func (f *LogFile) switchTo(t time.Time) error {
	day := t.Format(dayLayout)
	if f.file != nil && day == f.day {
		return nil
	}
	next, err := os.OpenFile(f.pathFor(day), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if f.file != nil {
		_ = f.file.Close()
	}
	f.file, f.day = next, day
	f.prune(t)
	return nil
}

func (f *LogFile) prune(t time.Time) {
	matches, err := filepath.Glob(filepath.Join(f.dir, f.prefix+"-*.log"))
	if err != nil {
		return
	}
	cutoff := t.AddDate(0, 0, -f.retention)
	for _, path := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), f.prefix+"-"), ".log")
		day, err := time.Parse(dayLayout, stamp)
		if err != nil || !day.Before(cutoff) {
			continue
		}
		_ = os.Remove(path)
	}
}

// Options configures NewLoggerWithOptions. Empty fields fall back to the
// PORTFOLIO_LOG_* environment and then to text output at info level.
type Options struct {
	Dir           string
	Level         string
	Format        string
	RetentionDays int
	Stdout        io.Writer
}

// NewLogger creates a text logger at level writing to stdout and a daily file.
func NewLogger(logDir string, level slog.Level) (*slog.Logger, *LogFile, error) {
	return NewLoggerWithOptions(Options{Dir: logDir, Level: level.String()})
}

// NewLoggerWithOptions creates the process logger and installs it as the
// slog default. The environment overrides the configured level and format.
func NewLoggerWithOptions(opts Options) (*slog.Logger, *LogFile, error) {
	file, err := OpenLogFile(opts.Dir, defaultPrefix, opts.RetentionDays)
	if err != nil {
		return nil, nil, err
	}
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	level := ParseLevel(os.Getenv(envLogLevel), ParseLevel(opts.Level, slog.LevelInfo))
	format := opts.Format
	if env := strings.TrimSpace(os.Getenv(envLogFormat)); env != "" {
		format = env
	}

	logger := slog.New(newHandler(io.MultiWriter(stdout, file), level, format)).With("service", defaultPrefix)
	slog.SetDefault(logger)
	return logger, file, nil
}

// ParseLevel maps a level name or number to a slog.Level.
func ParseLevel(value string, fallback slog.Level) slog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "":
		return fallback
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(value); err == nil {
		return slog.Level(n)
	}
	return fallback
}

func newHandler(w io.Writer, level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
