package portfolio

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Account backends.
const (
	BackendLocal    = "local"
	BackendFirebase = "firebase"
)

// Options controls Core initialization.
type Options struct {
	DBPath             string
	Logger             *slog.Logger
	PriceCacheTTL      time.Duration
	PriceFailThreshold int
	PriceFailWindow    time.Duration
	PriceCooldown      time.Duration
	HTTPTimeout        time.Duration
	YahooChartURL      string
	YahooSummaryURL    string
	HTTPClient         HTTPDoer // Optional: shared by every outbound client

	AccountBackend    string
	FirebaseAPIKey    string
	FirebaseProjectID string
	IdentityURL       string
	FirestoreURL      string

	SessionIdleTimeout time.Duration

	// Optional overrides, mainly for tests.
	Market   MarketData
	Store    AccountStore
	Identity IdentityProvider
}

// Core wires the ledger operations to market data, persistence, identity
// and the session store.
type Core struct {
	db       *sql.DB
	logger   *slog.Logger
	market   MarketData
	store    AccountStore
	identity IdentityProvider
	sessions *SessionStore
	backend  string
	dbPath   string
}

// Open initializes a Core using the provided database path.
func Open(dbPath string) (*Core, error) {
	return OpenWithOptions(Options{DBPath: dbPath})
}

// OpenWithOptions initializes a Core using the provided options.
func OpenWithOptions(opts Options) (*Core, error) {
	if opts.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	cleanPath := filepath.Clean(opts.DBPath)
	if err := os.MkdirAll(filepath.Dir(cleanPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// SQLite performs best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logger.Warn("pragma busy_timeout failed", "err", err)
	}

	if err := initDatabase(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}

	c := &Core{
		db:       db,
		logger:   logger,
		sessions: NewSessionStore(opts.SessionIdleTimeout),
		dbPath:   cleanPath,
	}

	c.market = opts.Market
	if c.market == nil {
		c.market = NewYahoo(YahooOptions{
			Logger:        logger,
			ChartBaseURL:  opts.YahooChartURL,
			SummaryURL:    opts.YahooSummaryURL,
			PriceCacheTTL: opts.PriceCacheTTL,
			FailThreshold: opts.PriceFailThreshold,
			FailWindow:    opts.PriceFailWindow,
			Cooldown:      opts.PriceCooldown,
			HTTPTimeout:   opts.HTTPTimeout,
			HTTPClient:    opts.HTTPClient,
		})
	}

	if err := c.initAccounts(opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("core ready", "db", cleanPath, "account_backend", c.backend)
	return c, nil
}

func (c *Core) initAccounts(opts Options) error {
	c.backend = strings.ToLower(defaultString(opts.AccountBackend, BackendLocal))
	switch c.backend {
	case BackendLocal:
		c.store = NewLocalStore(c.db, c.logger)
		c.identity = NewLocalIdentity(c.db, c.logger)
	case BackendFirebase:
		store, err := NewFirestoreStore(FirestoreOptions{
			BaseURL:     opts.FirestoreURL,
			ProjectID:   opts.FirebaseProjectID,
			APIKey:      opts.FirebaseAPIKey,
			Logger:      c.logger,
			HTTPTimeout: opts.HTTPTimeout,
			HTTPClient:  opts.HTTPClient,
		})
		if err != nil {
			return err
		}
		identity, err := NewFirebaseIdentity(FirebaseOptions{
			BaseURL:     opts.IdentityURL,
			APIKey:      opts.FirebaseAPIKey,
			Logger:      c.logger,
			HTTPTimeout: opts.HTTPTimeout,
			HTTPClient:  opts.HTTPClient,
		})
		if err != nil {
			return err
		}
		c.store = store
		c.identity = identity
	default:
		return NewError(ErrCodeInvalidInput, fmt.Sprintf("unknown account backend %q", opts.AccountBackend))
	}
	if opts.Store != nil {
		c.store = opts.Store
	}
	if opts.Identity != nil {
		c.identity = opts.Identity
	}
	return nil
}

// Close releases database resources.
func (c *Core) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DBPath returns the underlying database path.
func (c *Core) DBPath() string {
	return c.dbPath
}

// Logger returns the core's logger, or the slog default on a nil Core.
func (c *Core) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Market returns the market data gateway.
func (c *Core) Market() MarketData {
	return c.market
}

// Sessions returns the live session store.
func (c *Core) Sessions() *SessionStore {
	return c.sessions
}

// AccountBackend names the configured persistence backend.
func (c *Core) AccountBackend() string {
	return c.backend
}

func defaultDuration(v time.Duration, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultInt(v int, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func defaultString(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
