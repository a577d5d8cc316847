package portfolio

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Holding is one ticker's aggregated position. Derived fields are recomputed
// from quantity, total cost and current price whenever any of them change.
type Holding struct {
	Ticker        string
	CompanyName   string
	Quantity      decimal.Decimal
	BuyPrice      decimal.Decimal
	CurrentPrice  decimal.Decimal
	MarketValue   decimal.Decimal
	CostBasis     decimal.Decimal
	GainLoss      decimal.Decimal
	PercentReturn decimal.Decimal

	// totalCost is the unrounded sum of quantity*price over every purchase.
	totalCost decimal.Decimal
}

func newHolding(ticker, companyName string, quantity, buyPrice, currentPrice decimal.Decimal) Holding {
	h := Holding{
		Ticker:       ticker,
		CompanyName:  companyNameOrDefault(companyName),
		Quantity:     quantity,
		CurrentPrice: currentPrice,
		totalCost:    buyPrice.Mul(quantity),
	}
	h.recompute()
	return h
}

// merge folds another purchase into the position and refreshes the quote.
func (h *Holding) merge(quantity, buyPrice, currentPrice decimal.Decimal, companyName string) {
	h.Quantity = h.Quantity.Add(quantity)
	h.totalCost = h.totalCost.Add(buyPrice.Mul(quantity))
	h.CurrentPrice = currentPrice
	h.CompanyName = companyNameOrDefault(companyName)
	h.recompute()
}

func (h *Holding) reprice(currentPrice decimal.Decimal) {
	h.CurrentPrice = currentPrice
	h.recompute()
}

func (h *Holding) recompute() {
	if h.Quantity.IsPositive() {
		h.BuyPrice = h.totalCost.Div(h.Quantity)
	} else {
		h.BuyPrice = decimal.Zero
	}
	h.MarketValue = round2(h.CurrentPrice.Mul(h.Quantity))
	h.CostBasis = round2(h.totalCost)
	h.GainLoss = round2(h.MarketValue.Sub(h.CostBasis))
	h.PercentReturn = round2(percentOf(h.GainLoss, h.CostBasis))
}

// TotalCost returns the unrounded amount invested in the position.
func (h Holding) TotalCost() decimal.Decimal {
	return h.totalCost
}

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// QuoteURL is the public quote page for a ticker.
func QuoteURL(ticker string) string {
	return "https://finance.yahoo.com/quote/" + NormalizeTicker(ticker)
}

func companyNameOrDefault(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return naText
	}
	return name
}
