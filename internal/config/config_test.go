package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGetDataDirPrecedence(t *testing.T) {
	defer SetRuntimeDataDir("")
	pinnedDir := t.TempDir()
	envDir := filepath.Join(t.TempDir(), "data")

	tests := []struct {
		name string
		pin  string
		env  string
		want string
	}{
		{name: "pin wins over env", pin: pinnedDir, env: envDir, want: pinnedDir},
		{name: "env when unpinned", env: envDir, want: envDir},
		{name: "pin is trimmed", pin: "  " + pinnedDir + " ", want: pinnedDir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetRuntimeDataDir(tt.pin)
			t.Setenv(envDataDir, tt.env)
			got, err := GetDataDir()
			if err != nil {
				t.Fatalf("GetDataDir: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
			if info, err := os.Stat(got); err != nil || !info.IsDir() {
				t.Fatalf("expected %q to be created: %v", got, err)
			}
		})
	}
}

func TestGetDBPathAndLogDir(t *testing.T) {
	defer SetRuntimeDataDir("")
	dataDir := t.TempDir()
	SetRuntimeDataDir(dataDir)
	t.Setenv(envDBPath, "")

	dbPath, err := GetDBPath()
	if err != nil {
		t.Fatalf("GetDBPath: %v", err)
	}
	if dbPath != filepath.Join(dataDir, "portfolio.db") {
		t.Fatalf("unexpected default db path %q", dbPath)
	}
	logDir, err := GetLogDir()
	if err != nil {
		t.Fatalf("GetLogDir: %v", err)
	}
	if logDir != filepath.Join(dataDir, "logs") {
		t.Fatalf("unexpected log dir %q", logDir)
	}

	override := filepath.Join(t.TempDir(), "db.sqlite")
	t.Setenv(envDBPath, override)
	if dbPath, err = GetDBPath(); err != nil || dbPath != override {
		t.Fatalf("expected env db path %q, got %q (%v)", override, dbPath, err)
	}
}

func TestPlatformDataDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	t.Setenv("APPDATA", filepath.Join(home, "AppData"))

	tests := []struct {
		goos string
		want string
	}{
		{goos: "darwin", want: filepath.Join(home, "Library", "Application Support", "PortfolioTracker")},
		{goos: "windows", want: filepath.Join(home, "AppData", "PortfolioTracker")},
	}
	for _, tt := range tests {
		got, err := platformDataDir(tt.goos)
		if err != nil {
			t.Fatalf("platformDataDir(%s): %v", tt.goos, err)
		}
		if got != tt.want {
			t.Fatalf("platformDataDir(%s) = %q, want %q", tt.goos, got, tt.want)
		}
	}

	got, err := platformDataDir("linux")
	if err != nil {
		t.Fatalf("platformDataDir(linux): %v", err)
	}
	if !strings.HasSuffix(got, "portfolio-tracker") {
		t.Fatalf("unexpected linux dir %q", got)
	}
}
