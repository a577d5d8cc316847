package portfolio

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrNoData indicates a source answered but had nothing for the ticker.
var ErrNoData = errors.New("no market data available")

// MarketData is everything the dashboard asks of a quote provider.
type MarketData interface {
	Quoter
	Fundamentals(ctx context.Context, ticker string) (Fundamentals, error)
	History(ctx context.Context, ticker string, period Period) ([]PricePoint, error)
}

// Period is a price-history window.
type Period string

const (
	Period1Month  Period = "1mo"
	Period3Months Period = "3mo"
	Period6Months Period = "6mo"
	Period1Year   Period = "1y"
	Period2Years  Period = "2y"
	Period5Years  Period = "5y"
	PeriodMax     Period = "max"

	DefaultPeriod = Period6Months
)

// Periods lists the accepted windows in display order.
var Periods = []Period{Period1Month, Period3Months, Period6Months, Period1Year, Period2Years, Period5Years, PeriodMax}

// ParsePeriod accepts one of Periods; an empty string yields DefaultPeriod.
func ParsePeriod(s string) (Period, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultPeriod, nil
	}
	for _, p := range Periods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", validationError(ErrInvalidPeriod)
}

// PricePoint is one daily close.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Fundamentals holds company facts. Nil pointers and empty strings mean the
// provider did not report the field.
type Fundamentals struct {
	Ticker           string   `json:"ticker"`
	ShortName        string   `json:"shortName,omitempty"`
	Currency         string   `json:"currency,omitempty"`
	MarketCap        *float64 `json:"marketCap,omitempty"`
	TrailingPE       *float64 `json:"trailingPE,omitempty"`
	TrailingEPS      *float64 `json:"trailingEps,omitempty"`
	DividendYield    *float64 `json:"dividendYield,omitempty"`
	DividendRate     *float64 `json:"dividendRate,omitempty"`
	FiftyTwoWeekHigh *float64 `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow  *float64 `json:"fiftyTwoWeekLow,omitempty"`
	Sector           string   `json:"sector,omitempty"`
	Industry         string   `json:"industry,omitempty"`
}

// YieldOrZero returns the dividend yield as a fraction, 0 when unknown.
func (f Fundamentals) YieldOrZero() float64 {
	if f.DividendYield == nil {
		return 0
	}
	return *f.DividendYield
}

// RateOrZero returns the annual dividend per share, 0 when unknown.
func (f Fundamentals) RateOrZero() float64 {
	if f.DividendRate == nil {
		return 0
	}
	return *f.DividendRate
}
