package database

import (
	"errors"
	"log"

	"agencyops/backend/migrations"
)

// RunMigrations runs all database migrations against DB
func RunMigrations() error {
	if DB == nil {
		return errors.New("database not initialized")
	}

	log.Println("Running database migrations...")

	if err := migrations.RunMigrations(DB); err != nil {
		log.Printf("Error running migrations: %v", err)
		return err
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// SeedDevelopmentData loads the development fixtures into DB
func SeedDevelopmentData() error {
	if DB == nil {
		return errors.New("database not initialized")
	}
	return migrations.SeedTestData(DB)
}
