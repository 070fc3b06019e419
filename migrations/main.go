package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

// RunMigrations executes all migrations in the correct order
func RunMigrations(db *sql.DB) error {
	log.Println("Running migrations...")

	// Create migrations table if it doesn't exist
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS migrations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	// Define migrations
	migrations := []struct {
		name string
		fn   func(*sql.DB) error
	}{
		// Add all migrations here in order
		{"create_base_schema", CreateBaseSchema},
		{"add_indexes", AddIndexes},
		{"add_user_currency_preference", AddUserCurrencyPreference},
	}

	// Run each migration if it hasn't been applied yet
	for _, migration := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM migrations WHERE name = ?", migration.name).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}

		if count > 0 {
			continue
		}

		log.Printf("Applying migration: %s", migration.name)
		if err := migration.fn(db); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.name, err)
		}

		if _, err := db.Exec("INSERT INTO migrations (name) VALUES (?)", migration.name); err != nil {
			return fmt.Errorf("failed to record migration: %w", err)
		}
	}

	log.Println("All migrations completed successfully")
	return nil
}
