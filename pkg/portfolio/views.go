package portfolio

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// HoldingRow is one overview table row.
type HoldingRow struct {
	Link          string `json:"link"`
	Ticker        string `json:"ticker"`
	Company       string `json:"company"`
	Quantity      Amount `json:"quantity"`
	BuyPrice      Amount `json:"buyPrice"`
	CurrentPrice  Amount `json:"currentPrice"`
	MarketValue   Amount `json:"marketValue"`
	CostBasis     Amount `json:"costBasis"`
	GainLoss      Amount `json:"gainLoss"`
	PercentReturn Amount `json:"percentReturn"`

	Display map[string]string `json:"display"`
}

// SummaryView is Summary with display strings.
type SummaryView struct {
	TotalMarketValue Amount `json:"totalMarketValue"`
	TotalCostBasis   Amount `json:"totalCostBasis"`
	TotalGainLoss    Amount `json:"totalGainLoss"`
	OverallReturnPct Amount `json:"overallReturnPct"`

	Display map[string]string `json:"display"`
}

// Overview is the dashboard table plus totals.
type Overview struct {
	Holdings []HoldingRow `json:"holdings"`
	Summary  SummaryView  `json:"summary"`
}

// NewHoldingRow converts a holding for display.
func NewHoldingRow(h Holding) HoldingRow {
	return HoldingRow{
		Link:          QuoteURL(h.Ticker),
		Ticker:        h.Ticker,
		Company:       h.CompanyName,
		Quantity:      AmountOf(h.Quantity),
		BuyPrice:      AmountOf(h.BuyPrice),
		CurrentPrice:  AmountOf(h.CurrentPrice),
		MarketValue:   AmountOf(h.MarketValue),
		CostBasis:     AmountOf(h.CostBasis),
		GainLoss:      AmountOf(h.GainLoss),
		PercentReturn: AmountOf(h.PercentReturn),
		Display: map[string]string{
			"Buy Price":     FormatMoney(h.BuyPrice, DefaultCurrency),
			"Current Price": FormatMoney(h.CurrentPrice, DefaultCurrency),
			"Market Value":  FormatMoney(h.MarketValue, DefaultCurrency),
			"Gain/Loss":     FormatMoney(h.GainLoss, DefaultCurrency),
			"% Return":      FormatSignedPercent(h.PercentReturn),
		},
	}
}

// NewSummaryView converts a Summary for display.
func NewSummaryView(s Summary) SummaryView {
	return SummaryView{
		TotalMarketValue: AmountOf(s.TotalMarketValue),
		TotalCostBasis:   AmountOf(s.TotalCostBasis),
		TotalGainLoss:    AmountOf(s.TotalGainLoss),
		OverallReturnPct: AmountOf(round2(s.OverallReturnPct)),
		Display: map[string]string{
			"Total Market Value": FormatMoney(s.TotalMarketValue, DefaultCurrency),
			"Total Cost Basis":   FormatMoney(s.TotalCostBasis, DefaultCurrency),
			"Total Gain/Loss":    FormatMoney(s.TotalGainLoss, DefaultCurrency),
			"Overall Return":     FormatSignedPercent(round2(s.OverallReturnPct)),
		},
	}
}

// BuildOverview derives the overview from the current ledger contents.
func BuildOverview(l *Ledger) Overview {
	holdings := l.Holdings()
	rows := make([]HoldingRow, 0, len(holdings))
	for _, h := range holdings {
		rows = append(rows, NewHoldingRow(h))
	}
	return Overview{Holdings: rows, Summary: NewSummaryView(l.Summary())}
}

// ReturnBar is one bar of the return-by-holding chart.
type ReturnBar struct {
	Ticker        string `json:"ticker"`
	PercentReturn Amount `json:"percentReturn"`
}

// AllocationSlice is one slice of the allocation chart.
type AllocationSlice struct {
	Ticker      string `json:"ticker"`
	MarketValue Amount `json:"marketValue"`
	SharePct    Amount `json:"sharePct"`
}

// Analytics holds chart series for the analytics tab.
type Analytics struct {
	Returns    []ReturnBar       `json:"returns"`
	Allocation []AllocationSlice `json:"allocation"`
}

// BuildAnalytics sorts returns high to low and computes each holding's
// share of total market value. Holdings worth nothing are left out of the
// allocation.
func BuildAnalytics(l *Ledger) Analytics {
	holdings := l.Holdings()
	a := Analytics{
		Returns:    make([]ReturnBar, 0, len(holdings)),
		Allocation: []AllocationSlice{},
	}
	total := decimal.Zero
	for _, h := range holdings {
		a.Returns = append(a.Returns, ReturnBar{Ticker: h.Ticker, PercentReturn: AmountOf(h.PercentReturn)})
		if h.MarketValue.IsPositive() {
			total = total.Add(h.MarketValue)
		}
	}
	sort.SliceStable(a.Returns, func(i, j int) bool {
		return a.Returns[i].PercentReturn.GreaterThan(a.Returns[j].PercentReturn.Decimal)
	})
	for _, h := range holdings {
		if !h.MarketValue.IsPositive() {
			continue
		}
		a.Allocation = append(a.Allocation, AllocationSlice{
			Ticker:      h.Ticker,
			MarketValue: AmountOf(h.MarketValue),
			SharePct:    AmountOf(round2(percentOf(h.MarketValue, total))),
		})
	}
	return a
}

// FundamentalsSource looks up company facts.
type FundamentalsSource interface {
	Fundamentals(ctx context.Context, ticker string) (Fundamentals, error)
}

// DividendRow is one holding's dividend estimate.
type DividendRow struct {
	Ticker           string `json:"ticker"`
	Company          string `json:"company"`
	Quantity         Amount `json:"quantity"`
	YieldPct         Amount `json:"yieldPct"`
	DividendPerShare Amount `json:"dividendPerShare"`
	AnnualIncome     Amount `json:"annualIncome"`
}

// DividendReport is the dividends tab.
type DividendReport struct {
	Rows              []DividendRow     `json:"rows"`
	TotalAnnualIncome Amount            `json:"totalAnnualIncome"`
	AverageYieldPct   Amount            `json:"averageYieldPct"`
	Display           map[string]string `json:"display"`
}

// BuildDividends estimates annual dividend income. Holdings whose
// fundamentals cannot be fetched are skipped.
func BuildDividends(ctx context.Context, src FundamentalsSource, l *Ledger) DividendReport {
	report := DividendReport{Rows: []DividendRow{}}
	yieldSum := decimal.Zero
	for _, h := range l.Holdings() {
		f, err := src.Fundamentals(ctx, h.Ticker)
		if err != nil {
			continue
		}
		yield := round2(decimal.NewFromFloat(f.YieldOrZero()).Mul(hundred))
		rate := decimal.NewFromFloat(f.RateOrZero())
		row := DividendRow{
			Ticker:           h.Ticker,
			Company:          h.CompanyName,
			Quantity:         AmountOf(h.Quantity),
			YieldPct:         AmountOf(yield),
			DividendPerShare: AmountOf(round2(rate)),
			AnnualIncome:     AmountOf(round2(rate.Mul(h.Quantity))),
		}
		report.Rows = append(report.Rows, row)
		report.TotalAnnualIncome = AmountOf(report.TotalAnnualIncome.Add(row.AnnualIncome.Decimal))
		yieldSum = yieldSum.Add(yield)
	}
	if n := len(report.Rows); n > 0 {
		report.AverageYieldPct = AmountOf(round2(yieldSum.Div(decimal.NewFromInt(int64(n)))))
	}
	report.Display = map[string]string{
		"Total Annual Dividend Income": FormatMoney(report.TotalAnnualIncome.Decimal, DefaultCurrency),
		"Average Dividend Yield":       FormatPercent(report.AverageYieldPct.Decimal),
	}
	return report
}

// CompanyDetail is the company tab for one holding.
type CompanyDetail struct {
	Holding      HoldingRow        `json:"holding"`
	Fundamentals map[string]string `json:"fundamentals"`
	Period       Period            `json:"period"`
	History      []PricePoint      `json:"history"`
	HistoryError string            `json:"historyError,omitempty"`
}

// FundamentalsDisplay renders every field, substituting "N/A" for missing
// values and 0.00% for a missing yield.
func FundamentalsDisplay(f Fundamentals) map[string]string {
	currency := textOrNA(f.Currency)
	if currency == naText {
		currency = DefaultCurrency
	}
	return map[string]string{
		"Market Cap":     formatOptionalMoney(f.MarketCap, currency),
		"PE Ratio (TTM)": formatOptionalNumber(f.TrailingPE),
		"EPS (TTM)":      formatOptionalNumber(f.TrailingEPS),
		"Dividend Yield": FormatPercent(decimal.NewFromFloat(f.YieldOrZero()).Mul(hundred)),
		"52W High":       formatOptionalMoney(f.FiftyTwoWeekHigh, currency),
		"52W Low":        formatOptionalMoney(f.FiftyTwoWeekLow, currency),
		"Sector":         textOrNA(f.Sector),
		"Industry":       textOrNA(f.Industry),
	}
}

// BuildCompanyDetail assembles the company tab. A fundamentals failure
// renders as all "N/A"; a history failure is reported in HistoryError.
func BuildCompanyDetail(ctx context.Context, md MarketData, h Holding, period Period) CompanyDetail {
	f, err := md.Fundamentals(ctx, h.Ticker)
	if err != nil {
		f = Fundamentals{Ticker: h.Ticker}
	}
	detail := CompanyDetail{
		Holding:      NewHoldingRow(h),
		Fundamentals: FundamentalsDisplay(f),
		Period:       period,
		History:      []PricePoint{},
	}
	points, err := md.History(ctx, h.Ticker, period)
	if err != nil {
		detail.HistoryError = UserMessage(err)
		return detail
	}
	detail.History = points
	return detail
}
