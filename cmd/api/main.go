package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/auth"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/config"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/db"
	apihttp "github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/http"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/ledger"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/messaging"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/publish"
	"github.com/WailSalutem-Health-Care/rabbitmq-binding/internal/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("rabbitmq-binding failed: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	otelCfg, err := telemetry.LoadConfig()
	if err != nil {
		return err
	}
	otel, err := telemetry.InitProvider(ctx, otelCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otel.Shutdown(shutdownCtx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		return err
	}

	opts := []messaging.Option{messaging.WithMetrics(metrics)}

	var ledgerService *ledger.Service
	if cfg.Ledger.Enabled {
		database, err := db.Connect()
		if err != nil {
			return err
		}
		defer database.Close()
		if err := db.Migrate(ctx, database); err != nil {
			return err
		}
		ledgerService = ledger.NewService(ledger.NewRepository(database))
		opts = append(opts, messaging.WithFlushObserver(ledgerService))
		log.Println("✓ Flush ledger enabled")
	}

	mqCfg := cfg.Messaging()
	provider := messaging.NewService(mqCfg, opts...)
	if err := provider.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := provider.Close(); err != nil {
			log.Printf("Error closing RabbitMQ provider: %v", err)
		}
	}()

	authCfg, err := auth.LoadConfig()
	if err != nil {
		return err
	}
	jwks, err := auth.NewJWKS(authCfg.JWKSURL, authCfg.RefreshInterval())
	if err != nil {
		return err
	}
	defer jwks.Close()

	perms, err := auth.LoadPermissions(cfg.PermissionsFile)
	if err != nil {
		return err
	}

	deps := apihttp.Dependencies{
		Batch:          publish.NewService(provider),
		Health:         provider,
		Verifier:       auth.NewVerifier(authCfg, jwks),
		Permissions:    perms,
		Metrics:        metrics,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}
	if ledgerService != nil {
		deps.Ledger = ledgerService
	}

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           apihttp.SetupRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("rabbitmq-binding listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Printf("HTTP server failed: %v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// pending messages are published before the channel goes away
	if res, err := provider.FlushPublishBatch(shutdownCtx); err != nil {
		log.Printf("[ERROR] Final flush failed: %v", err)
	} else if res.Messages > 0 {
		log.Printf("✓ Final flush published %d messages", res.Messages)
	}
	return nil
}
