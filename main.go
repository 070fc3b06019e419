package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agencyops/backend/api"
	"agencyops/backend/config"
	"agencyops/backend/database"
	"agencyops/backend/middleware"
	"agencyops/backend/services"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to a YAML config file")
	seed := flag.Bool("seed", false, "Load development fixtures even outside development")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.IsDevelopment() {
		log.Println("Running in development environment")
	}

	// Initialize database (runs migrations)
	if err := database.InitDB(cfg.Database.Path); err != nil {
		log.Fatal(err)
	}
	defer database.DB.Close()

	if cfg.IsDevelopment() || *seed {
		if err := database.SeedDevelopmentData(); err != nil {
			log.Printf("Warning: Failed to seed development data: %v", err)
		}
	}

	// Initialize Firebase Admin SDK
	log.Println("Initializing Firebase Admin SDK...")
	if err := middleware.InitializeFirebase(cfg.Firebase); err != nil {
		if !cfg.IsDevelopment() {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}
		log.Printf("Warning: Failed to initialize Firebase: %v", err)
		log.Println("Auth token verification will be disabled!")
	}

	mailer, err := services.NewMailer(cfg.Email)
	if err != nil {
		log.Fatalf("Failed to configure email: %v", err)
	}

	rates := services.NewRateClient(cfg.Rates.BaseURL,
		services.WithTTL(cfg.Rates.TTL),
		services.WithTimeout(cfg.Rates.Timeout),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services.StartScheduler(ctx, rates, cfg.Rates.TTL)

	server := api.NewServer(cfg, api.NewServices(database.DB, rates, mailer))

	srv := &http.Server{
		Handler:      server.Handler(),
		Addr:         ":" + cfg.Server.Port,
		WriteTimeout: cfg.Server.WriteTimeout,
		ReadTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Printf("Starting server on port %s...", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
}
