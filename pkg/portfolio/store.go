package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AccountStore persists a ledger snapshot per account. Load returns nil, nil
// when the account has never been saved.
type AccountStore interface {
	Save(ctx context.Context, accountID string, holdings []Holding) error
	Load(ctx context.Context, accountID string) ([]Holding, error)
}

// AccountKey sanitizes an account id for use as a document key.
func AccountKey(accountID string) string {
	return strings.ReplaceAll(strings.TrimSpace(accountID), ".", "_")
}

// holdingRecord is the stored shape of a holding. Keys match the export
// columns so older saved documents stay readable.
type holdingRecord struct {
	Company       string `json:"Company"`
	Ticker        string `json:"Ticker"`
	Quantity      Amount `json:"Quantity"`
	BuyPrice      Amount `json:"Buy Price"`
	CurrentPrice  Amount `json:"Current Price"`
	MarketValue   Amount `json:"Market Value"`
	GainLoss      Amount `json:"Gain/Loss"`
	PercentReturn Amount `json:"% Return"`
}

// EncodeHoldings serializes holdings to the stored JSON string.
func EncodeHoldings(holdings []Holding) (string, error) {
	records := make([]holdingRecord, 0, len(holdings))
	for _, h := range holdings {
		records = append(records, holdingRecord{
			Company:       h.CompanyName,
			Ticker:        h.Ticker,
			Quantity:      AmountOf(h.Quantity),
			BuyPrice:      AmountOf(h.BuyPrice),
			CurrentPrice:  AmountOf(h.CurrentPrice),
			MarketValue:   AmountOf(h.MarketValue),
			GainLoss:      AmountOf(h.GainLoss),
			PercentReturn: AmountOf(h.PercentReturn),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode holdings: %w", err)
	}
	return string(data), nil
}

// DecodeHoldings parses a stored JSON string. Derived fields are recomputed
// from quantity, buy price and current price rather than trusted.
func DecodeHoldings(payload string) ([]Holding, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" || payload == "null" {
		return nil, nil
	}
	var records []holdingRecord
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		return nil, fmt.Errorf("decode holdings: %w", err)
	}
	holdings := make([]Holding, 0, len(records))
	for _, r := range records {
		holdings = append(holdings, newHolding(
			NormalizeTicker(r.Ticker),
			r.Company,
			r.Quantity.Decimal,
			r.BuyPrice.Decimal,
			r.CurrentPrice.Decimal,
		))
	}
	return holdings, nil
}

type idTokenKey struct{}

// WithIDToken attaches the signed-in user's token for stores that forward it.
func WithIDToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, idTokenKey{}, token)
}

func idTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(idTokenKey{}).(string)
	return token
}
