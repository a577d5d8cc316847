package portfolio

import "database/sql"

// schema is applied in order on every open. Statements must be idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS portfolios (
		account_key TEXT PRIMARY KEY,
		holdings TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		email TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		local_id TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS operation_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		account_id TEXT,
		operation_type TEXT NOT NULL,
		ticker TEXT,
		details TEXT,
		quantity REAL,
		price REAL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// addedColumns lists columns introduced after a table first shipped.
var addedColumns = []struct {
	table, column, definition string
}{
	{"operation_logs", "session_id", "TEXT NOT NULL DEFAULT ''"},
}

var indexes = []string{
	"CREATE INDEX IF NOT EXISTS idx_operation_logs_session ON operation_logs(session_id, created_at)",
}

func initDatabase(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, stmt := range schema {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	for _, c := range addedColumns {
		present, err := hasColumn(tx, c.table, c.column)
		if err != nil {
			return err
		}
		if present {
			continue
		}
		if _, err := tx.Exec("ALTER TABLE " + c.table + " ADD COLUMN " + c.column + " " + c.definition); err != nil {
			return err
		}
	}
	for _, stmt := range indexes {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func hasColumn(tx *sql.Tx, table, column string) (bool, error) {
	var n int
	err := tx.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	return n > 0, err
}
