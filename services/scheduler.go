package services

import (
	"context"
	"log"
	"time"

	"agencyops/backend/models"
)

// StartScheduler starts the task scheduler for periodic tasks. It stops
// when ctx is cancelled.
func StartScheduler(ctx context.Context, rates RateProvider, interval time.Duration) {
	log.Println("Starting task scheduler...")

	go startRateRefresh(ctx, rates, interval)
}

// startRateRefresh keeps the default currency's rates warm so that writes
// rarely wait on the provider. Failures are logged and retried on the next
// tick.
func startRateRefresh(ctx context.Context, rates RateProvider, interval time.Duration) {
	if interval <= 0 {
		return
	}

	refreshRates(ctx, rates)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Stopping rate refresh")
			return
		case <-ticker.C:
			refreshRates(ctx, rates)
		}
	}
}

func refreshRates(ctx context.Context, rates RateProvider) {
	if _, err := rates.Rates(ctx, models.DefaultCurrency); err != nil {
		log.Printf("Scheduled rate refresh failed: %v", err)
	}
}
