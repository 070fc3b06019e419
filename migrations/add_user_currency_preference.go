package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

// AddUserCurrencyPreference adds the display currency preference to users
func AddUserCurrencyPreference(db *sql.DB) error {
	log.Println("Adding currency preference to users table...")

	exists, err := columnExists(db, "users", "currency")
	if err != nil {
		return err
	}
	if exists {
		log.Println("Currency column already exists in users table")
		return nil
	}

	_, err = db.Exec(`ALTER TABLE users ADD COLUMN currency TEXT NOT NULL DEFAULT 'EGP'`)
	if err != nil {
		return fmt.Errorf("error adding currency column: %w", err)
	}

	log.Println("Successfully added currency preference to users table")
	return nil
}
