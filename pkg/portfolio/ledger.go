package portfolio

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quoter supplies the two lookups the ledger needs when pricing a ticker.
// CurrentPrice returns nil, nil when no source has a price.
type Quoter interface {
	CurrentPrice(ctx context.Context, ticker string) (*float64, error)
	CompanyName(ctx context.Context, ticker string) string
}

// Ledger is the ordered, ticker-unique collection of holdings for one
// session. It is not safe for concurrent use; sessions serialize access.
type Ledger struct {
	holdings []Holding
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// AddOrMerge appends a holding for a new ticker or folds the purchase into
// the existing one. Invalid input leaves the ledger untouched.
func (l *Ledger) AddOrMerge(ticker string, quantity, buyPrice, currentPrice decimal.Decimal, companyName string) (Holding, error) {
	ticker = NormalizeTicker(ticker)
	if err := ValidateEntry(ticker, quantity, buyPrice); err != nil {
		return Holding{}, err
	}

	if idx := l.indexOf(ticker); idx >= 0 {
		l.holdings[idx].merge(quantity, buyPrice, currentPrice, companyName)
		return l.holdings[idx], nil
	}
	h := newHolding(ticker, companyName, quantity, buyPrice, currentPrice)
	l.holdings = append(l.holdings, h)
	return h, nil
}

// ValidateEntry checks a purchase before any lookup or mutation.
func ValidateEntry(ticker string, quantity, buyPrice decimal.Decimal) error {
	if NormalizeTicker(ticker) == "" {
		return validationError(ErrEmptyTicker)
	}
	if !quantity.IsPositive() {
		return validationError(ErrNonPositiveQuantity)
	}
	if !buyPrice.IsPositive() {
		return validationError(ErrNonPositivePrice)
	}
	return nil
}

// Remove deletes the holding for ticker and reports whether one existed.
func (l *Ledger) Remove(ticker string) bool {
	idx := l.indexOf(NormalizeTicker(ticker))
	if idx < 0 {
		return false
	}
	l.holdings = append(l.holdings[:idx], l.holdings[idx+1:]...)
	return true
}

// Get returns the holding for ticker.
func (l *Ledger) Get(ticker string) (Holding, bool) {
	idx := l.indexOf(NormalizeTicker(ticker))
	if idx < 0 {
		return Holding{}, false
	}
	return l.holdings[idx], true
}

// Holdings returns a copy in insertion order.
func (l *Ledger) Holdings() []Holding {
	out := make([]Holding, len(l.holdings))
	copy(out, l.holdings)
	return out
}

func (l *Ledger) Tickers() []string {
	out := make([]string, len(l.holdings))
	for i, h := range l.holdings {
		out[i] = h.Ticker
	}
	return out
}

func (l *Ledger) Len() int {
	return len(l.holdings)
}

func (l *Ledger) Clear() {
	l.holdings = nil
}

// Replace swaps the ledger contents for holdings, merging duplicate tickers.
// Rows that fail validation are dropped and counted in the returned value.
func (l *Ledger) Replace(holdings []Holding) int {
	next := &Ledger{}
	dropped := 0
	for _, h := range holdings {
		if _, err := next.AddOrMerge(h.Ticker, h.Quantity, h.BuyPrice, h.CurrentPrice, h.CompanyName); err != nil {
			dropped++
		}
	}
	l.holdings = next.holdings
	return dropped
}

func (l *Ledger) indexOf(ticker string) int {
	for i := range l.holdings {
		if l.holdings[i].Ticker == ticker {
			return i
		}
	}
	return -1
}

// Summary aggregates the ledger.
type Summary struct {
	TotalMarketValue decimal.Decimal
	TotalCostBasis   decimal.Decimal
	TotalGainLoss    decimal.Decimal
	OverallReturnPct decimal.Decimal
}

// Summary sums market value and cost basis over every holding.
func (l *Ledger) Summary() Summary {
	var s Summary
	for _, h := range l.holdings {
		s.TotalMarketValue = s.TotalMarketValue.Add(h.MarketValue)
		s.TotalCostBasis = s.TotalCostBasis.Add(h.CostBasis)
	}
	s.TotalGainLoss = s.TotalMarketValue.Sub(s.TotalCostBasis)
	s.OverallReturnPct = percentOf(s.TotalGainLoss, s.TotalCostBasis)
	return s
}

// SkipReason explains why an import record was not added.
type SkipReason string

const (
	SkipNoPrice    SkipReason = "no_price"
	SkipFetchError SkipReason = "fetch_error"
	SkipInvalid    SkipReason = "invalid"
)

// ImportRecord is one parsed row of an import file.
type ImportRecord struct {
	Ticker   string
	Quantity decimal.Decimal
	BuyPrice decimal.Decimal
}

// ImportOutcome is the typed result for a single record: either Holding is
// set, or Reason is.
type ImportOutcome struct {
	Ticker  string
	Holding *Holding
	Reason  SkipReason
	Err     error
}

// SkippedRecord is a record that was not imported.
type SkippedRecord struct {
	Ticker string
	Reason SkipReason
}

// ImportResult collects per-record outcomes in input order.
type ImportResult struct {
	Outcomes []ImportOutcome
}

// Imported returns the holdings produced by successful records.
func (r ImportResult) Imported() []Holding {
	var out []Holding
	for _, o := range r.Outcomes {
		if o.Holding != nil {
			out = append(out, *o.Holding)
		}
	}
	return out
}

// Skipped returns tickers that were not imported, with reasons.
func (r ImportResult) Skipped() []SkippedRecord {
	var out []SkippedRecord
	for _, o := range r.Outcomes {
		if o.Holding == nil {
			out = append(out, SkippedRecord{Ticker: o.Ticker, Reason: o.Reason})
		}
	}
	return out
}

// BulkImport prices every record and adds it through AddOrMerge. Failures
// are reported per record and never stop the batch.
func (l *Ledger) BulkImport(ctx context.Context, quoter Quoter, records []ImportRecord) ImportResult {
	result := ImportResult{Outcomes: make([]ImportOutcome, 0, len(records))}
	for _, rec := range records {
		ticker := NormalizeTicker(rec.Ticker)
		outcome := ImportOutcome{Ticker: ticker}
		if ticker == "" {
			outcome.Reason = SkipInvalid
			outcome.Err = validationError(ErrEmptyTicker)
			result.Outcomes = append(result.Outcomes, outcome)
			continue
		}

		price, err := quoter.CurrentPrice(ctx, ticker)
		switch {
		case err != nil:
			outcome.Reason = SkipFetchError
			outcome.Err = WrapError(ErrCodeFetch, "price lookup failed", err)
		case price == nil:
			outcome.Reason = SkipNoPrice
		default:
			name := quoter.CompanyName(ctx, ticker)
			h, addErr := l.AddOrMerge(ticker, rec.Quantity, rec.BuyPrice, decimal.NewFromFloat(*price), name)
			if addErr != nil {
				outcome.Reason = SkipInvalid
				outcome.Err = addErr
			} else {
				outcome.Holding = &h
			}
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}
	return result
}

// RefreshPrices re-quotes every holding. Holdings whose lookup fails keep
// their previous price; the failed tickers are returned.
func (l *Ledger) RefreshPrices(ctx context.Context, quoter Quoter) []string {
	var failed []string
	for i := range l.holdings {
		price, err := quoter.CurrentPrice(ctx, l.holdings[i].Ticker)
		if err != nil || price == nil {
			failed = append(failed, l.holdings[i].Ticker)
			continue
		}
		l.holdings[i].reprice(decimal.NewFromFloat(*price))
	}
	return failed
}
