package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"agencyops/backend/migrations"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

// Open connects to the SQLite database at path and applies the connection
// pragmas. ":memory:" is accepted; an in-memory database lives on a single
// connection, so the pool is limited to one.
func Open(path string) (*sql.DB, error) {
	// Add connection parameters to better handle concurrency
	dsn := path + "?_journal=WAL&_timeout=10000&_busy_timeout=10000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Minute * 5)

		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, err
		}
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// InitDB opens the application database into DB and migrates it
func InitDB(path string) error {
	db, err := Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database %s: %w", path, err)
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return err
	}

	log.Printf("Database ready at %s", path)
	DB = db
	return nil
}

// OpenInMemory returns a migrated in-memory database. Tests across packages
// use it to get an isolated schema.
func OpenInMemory() (*sql.DB, error) {
	db, err := Open(":memory:")
	if err != nil {
		return nil, err
	}

	if err := migrations.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
