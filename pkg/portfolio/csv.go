package portfolio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
)

// Import column names. Matching is case-sensitive.
const (
	colTicker   = "Ticker"
	colQuantity = "Quantity"
	colBuyPrice = "Buy Price"
)

// ExportHeader is the column layout written by WriteExportCSV.
var ExportHeader = []string{
	"Company Link",
	"Company",
	"Quantity",
	"Buy Price",
	"Current Price",
	"Market Value",
	"Gain/Loss",
	"% Return",
}

// ParseImportCSV reads an import file. Any structural or numeric problem
// rejects the whole file with a single validation error.
func ParseImportCSV(r io.Reader) ([]ImportRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, validationError(ErrMissingColumns)
		}
		return nil, validationError(fmt.Errorf("read csv header: %w", err))
	}
	idx := map[string]int{}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	for _, col := range []string{colTicker, colQuantity, colBuyPrice} {
		if _, ok := idx[col]; !ok {
			return nil, validationError(ErrMissingColumns)
		}
	}

	var records []ImportRecord
	line := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, validationError(fmt.Errorf("read csv line %d: %w", line, err))
		}
		if isBlankRow(row) {
			continue
		}
		qty, err := parseCell(row, idx[colQuantity])
		if err != nil {
			return nil, validationError(fmt.Errorf("line %d: invalid %s: %w", line, colQuantity, err))
		}
		price, err := parseCell(row, idx[colBuyPrice])
		if err != nil {
			return nil, validationError(fmt.Errorf("line %d: invalid %s: %w", line, colBuyPrice, err))
		}
		records = append(records, ImportRecord{
			Ticker:   cell(row, idx[colTicker]),
			Quantity: qty,
			BuyPrice: price,
		})
	}
	return records, nil
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseCell(row []string, i int) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(cell(row, i), ",", ""))
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// WriteExportCSV writes one row per holding in ledger order.
func WriteExportCSV(w io.Writer, holdings []Holding) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, h := range holdings {
		row := []string{
			QuoteURL(h.Ticker),
			h.CompanyName,
			h.Quantity.String(),
			h.BuyPrice.StringFixed(2),
			h.CurrentPrice.StringFixed(2),
			h.MarketValue.StringFixed(2),
			h.GainLoss.StringFixed(2),
			h.PercentReturn.StringFixed(2),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %s: %w", h.Ticker, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
