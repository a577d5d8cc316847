package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
)

// LocalStore keeps ledgers in the sqlite database next to the server.
type LocalStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLocalStore wraps an initialized database handle.
func NewLocalStore(db *sql.DB, logger *slog.Logger) *LocalStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalStore{db: db, logger: logger}
}

// Save upserts the account's ledger.
func (s *LocalStore) Save(ctx context.Context, accountID string, holdings []Holding) error {
	key := AccountKey(accountID)
	if key == "" {
		return WrapError(ErrCodePersistence, "save failed", ErrNotSignedIn)
	}
	payload, err := EncodeHoldings(holdings)
	if err != nil {
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO portfolios (account_key, holdings, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(account_key) DO UPDATE SET holdings = excluded.holdings, updated_at = CURRENT_TIMESTAMP
	`, key, payload)
	if err != nil {
		s.logger.Warn("local save failed", "account", key, "err", err)
		return WrapError(ErrCodePersistence, "save failed", err)
	}
	s.logger.Info("portfolio saved", "account", key, "holdings", len(holdings))
	return nil
}

// Load returns the saved ledger, or nil, nil when there is none.
func (s *LocalStore) Load(ctx context.Context, accountID string) ([]Holding, error) {
	key := AccountKey(accountID)
	if key == "" {
		return nil, WrapError(ErrCodePersistence, "load failed", ErrNotSignedIn)
	}
	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT holdings FROM portfolios WHERE account_key = ?", key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("local load failed", "account", key, "err", err)
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	holdings, err := DecodeHoldings(payload)
	if err != nil {
		return nil, WrapError(ErrCodePersistence, "load failed", err)
	}
	return holdings, nil
}
