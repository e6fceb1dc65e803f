package main

import (
	"context"
	"log"
	"time"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/config"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/db"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/ledger"
)

func main() {
	log.Println("Flush Ledger Cleanup Job - Starting")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	log.Printf("Retention Policy: %s", cfg.Ledger.Retention)

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cleanupService := ledger.NewCleanupService(ledger.NewRepository(database), cfg.Ledger.Retention)

	count, err := cleanupService.GetExpiredFlushesCount(ctx)
	if err != nil {
		log.Fatalf("Failed to get expired flush count: %v", err)
	}
	log.Printf("Found %d flush records older than %s", count, cleanupService.Cutoff().Format(time.RFC3339))

	if count == 0 {
		log.Println("No cleanup needed. Exiting.")
		return
	}

	deleted, err := cleanupService.CleanupExpiredFlushes(ctx)
	if err != nil {
		log.Fatalf("Cleanup failed: %v", err)
	}

	log.Printf("✓ Cleanup completed successfully: %d flush records deleted", deleted)
	log.Println("Cleanup Job - Finished")
}
