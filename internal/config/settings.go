package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Settings is the server configuration.
type Settings struct {
	Server  ServerSettings  `toml:"server"`
	Market  MarketSettings  `toml:"market"`
	Account AccountSettings `toml:"account"`
	Logging LoggingSettings `toml:"logging"`
	Session SessionSettings `toml:"session"`
}

type ServerSettings struct {
	Host   string `toml:"host"`
	Port   int    `toml:"port"`
	WebDir string `toml:"web_dir"`
}

// MarketSettings tunes the Yahoo gateway. Empty URLs use the public hosts.
type MarketSettings struct {
	ChartURL      string   `toml:"chart_url"`
	SummaryURL    string   `toml:"summary_url"`
	HTTPTimeout   Duration `toml:"http_timeout"`
	PriceCacheTTL Duration `toml:"price_cache_ttl"`
	FailThreshold int      `toml:"fail_threshold"`
	FailWindow    Duration `toml:"fail_window"`
	Cooldown      Duration `toml:"cooldown"`
}

// AccountSettings selects where accounts and saved portfolios live.
type AccountSettings struct {
	Backend           string `toml:"backend"`
	FirebaseAPIKey    string `toml:"firebase_api_key"`
	FirebaseProjectID string `toml:"firebase_project_id"`
	IdentityURL       string `toml:"identity_url"`
	FirestoreURL      string `toml:"firestore_url"`
}

type LoggingSettings struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type SessionSettings struct {
	IdleTimeout   Duration `toml:"idle_timeout"`
	SweepSchedule string   `toml:"sweep_schedule"`
}

// Duration reads Go duration strings such as "30s" from TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	return &Settings{
		Server: ServerSettings{Host: "127.0.0.1", Port: 8000},
		Market: MarketSettings{
			HTTPTimeout:   Duration{10 * time.Second},
			PriceCacheTTL: Duration{30 * time.Second},
			FailThreshold: 3,
			FailWindow:    Duration{5 * time.Minute},
			Cooldown:      Duration{2 * time.Minute},
		},
		Logging: LoggingSettings{Level: "info", Format: "text"},
		Session: SessionSettings{
			IdleTimeout:   Duration{12 * time.Hour},
			SweepSchedule: "@every 5m",
		},
	}
}

// LoadSettings loads configuration with priority: defaults -> TOML file ->
// .env -> PORTFOLIO_* environment. A missing file at path is an error; an
// empty path skips the file. A missing .env is ignored.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if path = strings.TrimSpace(path); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, settings); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := applyEnvOverrides(settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyEnvOverrides applies PORTFOLIO_* environment variable overrides.
func applyEnvOverrides(s *Settings) error {
	setString("PORTFOLIO_HOST", &s.Server.Host)
	setString("PORTFOLIO_WEB_DIR", &s.Server.WebDir)
	setString("PORTFOLIO_YAHOO_CHART_URL", &s.Market.ChartURL)
	setString("PORTFOLIO_YAHOO_SUMMARY_URL", &s.Market.SummaryURL)
	setString("PORTFOLIO_ACCOUNT_BACKEND", &s.Account.Backend)
	setString("PORTFOLIO_FIREBASE_API_KEY", &s.Account.FirebaseAPIKey)
	setString("PORTFOLIO_FIREBASE_PROJECT_ID", &s.Account.FirebaseProjectID)
	setString("PORTFOLIO_IDENTITY_URL", &s.Account.IdentityURL)
	setString("PORTFOLIO_FIRESTORE_URL", &s.Account.FirestoreURL)
	setString("PORTFOLIO_LOG_LEVEL", &s.Logging.Level)
	setString("PORTFOLIO_LOG_FORMAT", &s.Logging.Format)
	setString("PORTFOLIO_SESSION_SWEEP", &s.Session.SweepSchedule)

	if v := strings.TrimSpace(os.Getenv("PORTFOLIO_PORT")); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 {
			return fmt.Errorf("invalid PORTFOLIO_PORT %q", v)
		}
		s.Server.Port = port
	}
	durations := map[string]*Duration{
		"PORTFOLIO_HTTP_TIMEOUT":         &s.Market.HTTPTimeout,
		"PORTFOLIO_PRICE_CACHE_TTL":      &s.Market.PriceCacheTTL,
		"PORTFOLIO_SESSION_IDLE_TIMEOUT": &s.Session.IdleTimeout,
	}
	for key, target := range durations {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			continue
		}
		if err := target.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, v, err)
		}
	}
	return nil
}

func setString(key string, target *string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*target = v
	}
}

// ApplyFlagOverrides applies command-line flag overrides.
func (s *Settings) ApplyFlagOverrides(host string, port int, webDir string) {
	if host != "" {
		s.Server.Host = host
	}
	if port > 0 {
		s.Server.Port = port
	}
	if webDir != "" {
		s.Server.WebDir = webDir
	}
}

// AccountBackend returns the configured backend. With none set, a Firebase
// project selects "firebase" and anything else falls back to "local".
func (s *Settings) AccountBackend() string {
	if b := strings.ToLower(strings.TrimSpace(s.Account.Backend)); b != "" {
		return b
	}
	if s.Account.FirebaseProjectID != "" && s.Account.FirebaseAPIKey != "" {
		return "firebase"
	}
	return "local"
}

// Addr is the listen address.
func (s *Settings) Addr() string {
	return fmt.Sprintf("%s:%d", s.Server.Host, s.Server.Port)
}
