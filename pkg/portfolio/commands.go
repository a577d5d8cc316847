package portfolio

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Command is a discrete user action applied to a session.
type Command interface {
	apply(ctx context.Context, c *Core, s *SessionState) (Notice, error)
}

// AddHolding prices the ticker and adds or merges the purchase.
type AddHolding struct {
	Ticker   string
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
}

// RemoveHolding drops a ticker from the ledger.
type RemoveHolding struct {
	Ticker string
}

// SelectTab switches the active view.
type SelectTab struct {
	Tab string
}

// SelectTicker opens the company view for a held ticker.
type SelectTicker struct {
	Ticker string
}

// SelectPeriod changes the company view's history window.
type SelectPeriod struct {
	Period string
}

// ClearPortfolio empties the ledger.
type ClearPortfolio struct{}

// RefreshPrices re-quotes every holding.
type RefreshPrices struct{}

// SignOut detaches the identity. The ledger stays.
type SignOut struct{}

// Dispatch applies cmd to the session under its lock. The returned notice is
// always suitable for display, including when err is non-nil.
func (c *Core) Dispatch(ctx context.Context, s *SessionState, cmd Command) (Notice, error) {
	s.Lock()
	defer s.Unlock()
	notice, err := cmd.apply(ctx, c, s)
	if err != nil {
		c.logger.Info("command rejected", "session", s.ID, "command", fmt.Sprintf("%T", cmd), "err", err)
	}
	return notice, err
}

func (cmd AddHolding) apply(ctx context.Context, c *Core, s *SessionState) (Notice, error) {
	ticker := NormalizeTicker(cmd.Ticker)
	if err := ValidateEntry(ticker, cmd.Quantity, cmd.BuyPrice); err != nil {
		return errorNotice(err), err
	}
	price, err := c.market.CurrentPrice(ctx, ticker)
	if err != nil {
		ferr := WrapError(ErrCodeFetch, fmt.Sprintf("Error fetching data for %s.", ticker), err)
		return errorNotice(ferr), ferr
	}
	if price == nil {
		ferr := NewError(ErrCodeFetch, fmt.Sprintf("Could not fetch data for %s.", ticker))
		return errorNotice(ferr), ferr
	}
	name := c.market.CompanyName(ctx, ticker)

	_, existed := s.Ledger.Get(ticker)
	h, err := s.Ledger.AddOrMerge(ticker, cmd.Quantity, cmd.BuyPrice, decimal.NewFromFloat(*price), name)
	if err != nil {
		return errorNotice(err), err
	}
	qty, buy := AmountOf(cmd.Quantity), AmountOf(cmd.BuyPrice)
	c.recordOperation(ctx, s, OpAdd, h.Ticker, "", &qty, &buy)
	if existed {
		return success(fmt.Sprintf("%s updated!", h.Ticker)), nil
	}
	return success(fmt.Sprintf("%s added to your portfolio!", h.Ticker)), nil
}

func (cmd RemoveHolding) apply(ctx context.Context, c *Core, s *SessionState) (Notice, error) {
	ticker := NormalizeTicker(cmd.Ticker)
	if !s.Ledger.Remove(ticker) {
		return info(fmt.Sprintf("%s is not in your portfolio.", ticker)), nil
	}
	if s.View.ViewTicker == ticker {
		s.View.ViewTicker = ""
		if s.View.ActiveTab == TabCompany {
			s.View.ActiveTab = TabOverview
		}
	}
	c.recordOperation(ctx, s, OpRemove, ticker, "", nil, nil)
	return success(fmt.Sprintf("Removed %s from portfolio.", ticker)), nil
}

func (cmd SelectTab) apply(_ context.Context, _ *Core, s *SessionState) (Notice, error) {
	tab, err := ParseTab(cmd.Tab)
	if err != nil {
		return errorNotice(err), err
	}
	s.View.ActiveTab = tab
	switch tab {
	case TabCompany:
		if _, ok := s.Ledger.Get(s.View.ViewTicker); !ok {
			s.View.ViewTicker = ""
			if tickers := s.Ledger.Tickers(); len(tickers) > 0 {
				s.View.ViewTicker = tickers[0]
			}
		}
		if s.View.ViewTicker == "" {
			return info("No holdings available."), nil
		}
	case TabOverview:
		s.View.ViewTicker = ""
	}
	return Notice{}, nil
}

func (cmd SelectTicker) apply(_ context.Context, _ *Core, s *SessionState) (Notice, error) {
	ticker := NormalizeTicker(cmd.Ticker)
	if _, ok := s.Ledger.Get(ticker); !ok {
		err := NewError(ErrCodeNotFound, fmt.Sprintf("%s is not in your portfolio.", ticker))
		return errorNotice(err), err
	}
	s.View.ViewTicker = ticker
	s.View.ActiveTab = TabCompany
	return Notice{}, nil
}

func (cmd SelectPeriod) apply(_ context.Context, _ *Core, s *SessionState) (Notice, error) {
	period, err := ParsePeriod(cmd.Period)
	if err != nil {
		return errorNotice(err), err
	}
	s.View.HistoryPeriod = period
	return Notice{}, nil
}

func (ClearPortfolio) apply(ctx context.Context, c *Core, s *SessionState) (Notice, error) {
	n := s.Ledger.Len()
	s.Ledger.Clear()
	s.View.ViewTicker = ""
	if s.View.ActiveTab == TabCompany {
		s.View.ActiveTab = TabOverview
	}
	c.recordOperation(ctx, s, OpClear, "", fmt.Sprintf("%d holdings", n), nil, nil)
	return success("Portfolio cleared."), nil
}

func (RefreshPrices) apply(ctx context.Context, c *Core, s *SessionState) (Notice, error) {
	failed := s.Ledger.RefreshPrices(ctx, c.market)
	c.recordOperation(ctx, s, OpRefresh, "", fmt.Sprintf("%d refreshed, %d failed", s.Ledger.Len()-len(failed), len(failed)), nil, nil)
	if len(failed) > 0 {
		return warning(fmt.Sprintf("Could not refresh prices for %s.", strings.Join(failed, ", "))), nil
	}
	return success("Prices refreshed."), nil
}

func (SignOut) apply(ctx context.Context, c *Core, s *SessionState) (Notice, error) {
	if !s.SignedIn() {
		return info("Not signed in."), nil
	}
	c.recordOperation(ctx, s, OpSignOut, "", "", nil, nil)
	s.Auth = nil
	return success("Logged out."), nil
}

// ImportCSV parses an import file and bulk-adds it to the session ledger.
// A malformed file is rejected whole; otherwise per-record outcomes are
// returned with a summary notice.
func (c *Core) ImportCSV(ctx context.Context, s *SessionState, r io.Reader) (ImportResult, Notice, error) {
	records, err := ParseImportCSV(r)
	if err != nil {
		return ImportResult{}, errorNotice(err), err
	}
	s.Lock()
	defer s.Unlock()

	result := s.Ledger.BulkImport(ctx, c.market, records)
	imported, skipped := len(result.Imported()), len(result.Skipped())
	c.recordOperation(ctx, s, OpImport, "", fmt.Sprintf("%d imported, %d skipped", imported, skipped), nil, nil)
	c.logger.Info("bulk import", "session", s.ID, "imported", imported, "skipped", skipped)

	switch {
	case imported == 0 && skipped > 0:
		return result, warning(fmt.Sprintf("No holdings imported; %d skipped.", skipped)), nil
	case skipped > 0:
		return result, warning(fmt.Sprintf("Imported %d holdings; %d skipped.", imported, skipped)), nil
	case imported == 0:
		return result, info("The file contained no holdings."), nil
	}
	return result, success(fmt.Sprintf("Imported %d holdings.", imported)), nil
}

// ExportCSV writes the session ledger in export format.
func (c *Core) ExportCSV(s *SessionState, w io.Writer) error {
	s.Lock()
	holdings := s.Ledger.Holdings()
	s.Unlock()
	return WriteExportCSV(w, holdings)
}

// Overview derives the overview from the session ledger.
func (c *Core) Overview(s *SessionState) Overview {
	s.Lock()
	defer s.Unlock()
	return BuildOverview(s.Ledger)
}

// Analytics derives chart series from the session ledger.
func (c *Core) Analytics(s *SessionState) Analytics {
	s.Lock()
	defer s.Unlock()
	return BuildAnalytics(s.Ledger)
}

// Dividends estimates dividend income for the session ledger.
func (c *Core) Dividends(ctx context.Context, s *SessionState) DividendReport {
	s.Lock()
	defer s.Unlock()
	return BuildDividends(ctx, c.market, s.Ledger)
}

// CompanyDetail renders the company view for ticker, or for the session's
// selected ticker when ticker is empty. An empty period uses the session's.
func (c *Core) CompanyDetail(ctx context.Context, s *SessionState, ticker, period string) (CompanyDetail, error) {
	s.Lock()
	defer s.Unlock()
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		ticker = s.View.ViewTicker
	}
	h, ok := s.Ledger.Get(ticker)
	if !ok {
		return CompanyDetail{}, NewError(ErrCodeNotFound, "No holdings available.")
	}
	p := s.View.HistoryPeriod
	if period != "" {
		parsed, err := ParsePeriod(period)
		if err != nil {
			return CompanyDetail{}, err
		}
		p = parsed
	}
	return BuildCompanyDetail(ctx, c.market, h, p), nil
}

// Snapshot is a consistent read of a session for rendering.
type Snapshot struct {
	SessionID string       `json:"sessionId"`
	View      ViewState    `json:"view"`
	SignedIn  bool         `json:"signedIn"`
	Account   *AuthSession `json:"account,omitempty"`
	Holdings  int          `json:"holdings"`
}

// Snapshot reads the session's view and identity.
func (c *Core) Snapshot(s *SessionState) Snapshot {
	s.Lock()
	defer s.Unlock()
	snap := Snapshot{
		SessionID: s.ID,
		View:      s.View,
		SignedIn:  s.SignedIn(),
		Holdings:  s.Ledger.Len(),
	}
	if s.Auth != nil {
		account := *s.Auth
		snap.Account = &account
	}
	return snap
}
