package api

import (
	"github.com/shopspring/decimal"

	"portfoliotracker/pkg/portfolio"
)

type addHoldingPayload struct {
	Ticker   string          `json:"ticker"`
	Quantity decimal.Decimal `json:"quantity"`
	BuyPrice decimal.Decimal `json:"buy_price"`
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tabPayload struct {
	Tab string `json:"tab"`
}

type tickerPayload struct {
	Ticker string `json:"ticker"`
}

type periodPayload struct {
	Period string `json:"period"`
}

type skippedRow struct {
	Ticker string               `json:"ticker"`
	Reason portfolio.SkipReason `json:"reason"`
}

type importResponse struct {
	Imported []portfolio.HoldingRow `json:"imported"`
	Skipped  []skippedRow           `json:"skipped"`
	Overview portfolio.Overview     `json:"overview"`
}

type stateResponse struct {
	Session  portfolio.Snapshot `json:"session"`
	Overview portfolio.Overview `json:"overview"`
}

type operationLogsResponse struct {
	Items  []portfolio.OperationLog `json:"items"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}
