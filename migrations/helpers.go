package migrations

import (
	"database/sql"
	"fmt"
)

type rowQuerier interface {
	QueryRow(query string, args ...any) *sql.Row
}

// columnExists checks the table definition for a column
func columnExists(db rowQuerier, table, column string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM pragma_table_info(?)
		WHERE name = ?
	`, table, column).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("error checking for %s.%s column: %w", table, column, err)
	}
	return count > 0, nil
}

// tableExists checks sqlite_master for a table
func tableExists(db rowQuerier, table string) (bool, error) {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check if table %s exists: %w", table, err)
	}
	return count > 0, nil
}
