package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/XSAM/otelsql"
	_ "github.com/lib/pq"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"gopkg.daemonl.com/envconf"
)

// Schema holds the flush ledger.
const Schema = `
CREATE SCHEMA IF NOT EXISTS broker;

CREATE TABLE IF NOT EXISTS broker.flush_records (
	id            UUID PRIMARY KEY,
	exchange      TEXT NOT NULL,
	message_count INTEGER NOT NULL,
	duration_ms   DOUBLE PRECISION NOT NULL,
	flushed_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS flush_records_flushed_at_idx ON broker.flush_records (flushed_at);
`

// Config is the PostgreSQL connection read from the DB_* variables
type Config struct {
	Host     string `env:"DB_HOST" default:""`
	Port     string `env:"DB_PORT" default:"5432"`
	User     string `env:"DB_USER" default:""`
	Password string `env:"DB_PASSWORD" default:""`
	Name     string `env:"DB_NAME" default:""`
	SSLMode  string `env:"DB_SSLMODE" default:"disable"`
}

// LoadConfig parses and validates the DB_* variables
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconf.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse database config: %w", err)
	}
	if cfg.Host == "" || cfg.User == "" || cfg.Password == "" || cfg.Name == "" {
		return Config{}, fmt.Errorf("DB_HOST, DB_USER, DB_PASSWORD and DB_NAME are required")
	}
	return cfg, nil
}

// DSN renders the lib/pq key/value connection string
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Connect opens the ledger database described by the environment
func Connect() (*sql.DB, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conn, err := Open(ctx, cfg.DSN(), cfg.Name)
	if err != nil {
		return nil, err
	}
	log.Println("✓ Connected to PostgreSQL database (OpenTelemetry enabled)")
	return conn, nil
}

// Open returns an otelsql-instrumented pool that has answered a ping
func Open(ctx context.Context, dsn, dbName string) (*sql.DB, error) {
	attrs := otelsql.WithAttributes(semconv.DBSystemPostgreSQL, semconv.DBName(dbName))

	conn, err := otelsql.Open("postgres", dsn, attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := otelsql.RegisterDBStatsMetrics(conn, attrs); err != nil {
		log.Printf("Warning: failed to register database stats metrics: %v", err)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(2)
	return conn, nil
}

// Migrate creates the ledger schema if it does not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("failed to migrate ledger schema: %w", err)
	}
	return nil
}
