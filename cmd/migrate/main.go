package main

import (
	"flag"
	"fmt"
	"log"

	"agencyops/backend/config"
	"agencyops/backend/database"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	seed := flag.Bool("seed", false, "Load development fixtures after migrating")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	database.DB = db
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *seed {
		if err := database.SeedDevelopmentData(); err != nil {
			log.Fatalf("Failed to seed data: %v", err)
		}
	}

	fmt.Println("Migrations completed successfully!")
}
