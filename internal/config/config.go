// Package config resolves where the tracker keeps its files and loads the
// process settings.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

const (
	envDataDir = "PORTFOLIO_DATA_DIR"
	envDBPath  = "PORTFOLIO_DB_PATH"

	defaultDBName = "portfolio.db"
	logDirName    = "logs"
)

var (
	pinMu     sync.RWMutex
	pinnedDir string
)

// SetRuntimeDataDir pins the data directory, taking precedence over the
// environment. An empty dir clears the pin.
func SetRuntimeDataDir(dir string) {
	pinMu.Lock()
	defer pinMu.Unlock()
	pinnedDir = strings.TrimSpace(dir)
}

func pinned() string {
	pinMu.RLock()
	defer pinMu.RUnlock()
	return pinnedDir
}

// platformDataDir is the per-user application directory:
// ~/Library/Application Support/PortfolioTracker on macOS,
// %APPDATA%\PortfolioTracker on Windows and $XDG_CONFIG_HOME/portfolio-tracker
// elsewhere.
func platformDataDir(goos string) (string, error) {
	home, homeErr := os.UserHomeDir()
	switch goos {
	case "darwin":
		if homeErr != nil {
			return "", homeErr
		}
		return filepath.Join(home, "Library", "Application Support", "PortfolioTracker"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "PortfolioTracker"), nil
		}
		if homeErr != nil {
			return "", homeErr
		}
		return filepath.Join(home, "PortfolioTracker"), nil
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "portfolio-tracker"), nil
	}
	if homeErr != nil {
		return "", errors.Join(errors.New("no home or config directory"), homeErr)
	}
	return filepath.Join(home, ".config", "portfolio-tracker"), nil
}

// GetDataDir resolves the data directory: runtime pin, then
// PORTFOLIO_DATA_DIR, then the platform directory. The directory is created.
func GetDataDir() (string, error) {
	dir := pinned()
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envDataDir))
	}
	if dir == "" {
		platform, err := platformDataDir(runtime.GOOS)
		if err != nil {
			return "", err
		}
		dir = platform
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}

// GetDBPath returns PORTFOLIO_DB_PATH or portfolio.db in the data directory.
func GetDBPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(envDBPath)); p != "" {
		return p, nil
	}
	return underDataDir(defaultDBName)
}

// GetLogDir returns the logs directory under the data directory.
func GetLogDir() (string, error) {
	return underDataDir(logDirName)
}

func underDataDir(name string) (string, error) {
	dir, err := GetDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
