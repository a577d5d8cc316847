package portfolio

import (
	"context"
	"database/sql"
)

// Operation types recorded in the operation log.
const (
	OpAdd     = "ADD"
	OpRemove  = "REMOVE"
	OpImport  = "IMPORT"
	OpClear   = "CLEAR"
	OpRefresh = "REFRESH"
	OpSave    = "SAVE"
	OpLoad    = "LOAD"
	OpSignIn  = "SIGN_IN"
	OpSignOut = "SIGN_OUT"
)

// OperationLog is one audit record of a ledger or account action.
type OperationLog struct {
	ID        int64   `json:"id"`
	SessionID string  `json:"session_id"`
	AccountID *string `json:"account_id"`
	Operation string  `json:"operation_type"`
	Ticker    *string `json:"ticker"`
	Details   *string `json:"details"`
	Quantity  *Amount `json:"quantity"`
	Price     *Amount `json:"price"`
	CreatedAt *string `json:"created_at"`
}

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(ctx context.Context, log OperationLog) (int64, error) {
	result, err := c.db.ExecContext(ctx, `
		INSERT INTO operation_logs (session_id, account_id, operation_type, ticker, details, quantity, price)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, log.SessionID, log.AccountID, log.Operation, log.Ticker, log.Details, log.Quantity, log.Price)
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert operation log", err)
	}
	return result.LastInsertId()
}

// GetOperationLogs returns a session's most recent operation logs first.
func (c *Core) GetOperationLogs(ctx context.Context, sessionID string, limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, session_id, account_id, operation_type, ticker, details, quantity, price, created_at FROM operation_logs WHERE session_id = ? ORDER BY id DESC LIMIT ? OFFSET ?",
		sessionID, limit, offset,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query operation logs", err)
	}
	defer rows.Close()

	logs := []OperationLog{}
	for rows.Next() {
		var log OperationLog
		var accountID, ticker, details, createdAt sql.NullString
		var quantity, price sql.NullFloat64
		if err := rows.Scan(&log.ID, &log.SessionID, &accountID, &log.Operation, &ticker, &details, &quantity, &price, &createdAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan operation log", err)
		}
		if accountID.Valid {
			log.AccountID = &accountID.String
		}
		if ticker.Valid {
			log.Ticker = &ticker.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if quantity.Valid {
			a := NewAmount(quantity.Float64)
			log.Quantity = &a
		}
		if price.Valid {
			a := NewAmount(price.Float64)
			log.Price = &a
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// recordOperation logs without failing the caller; the audit trail is
// secondary to the user's action.
func (c *Core) recordOperation(ctx context.Context, s *SessionState, op, ticker, details string, quantity, price *Amount) {
	entry := OperationLog{
		SessionID: s.ID,
		Operation: op,
		Quantity:  quantity,
		Price:     price,
	}
	if s.Auth != nil {
		entry.AccountID = &s.Auth.AccountID
	}
	if ticker != "" {
		entry.Ticker = &ticker
	}
	if details != "" {
		entry.Details = &details
	}
	if _, err := c.AddOperationLog(ctx, entry); err != nil {
		c.logger.Warn("operation log write failed", "op", op, "err", err)
	}
}
