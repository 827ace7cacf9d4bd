// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"ehealth-workers/internal/common/config"

	_ "github.com/lib/pq"
)

// PostgresClient wraps the connection to the host's database.
type PostgresClient struct {
	DB *sql.DB
	// Prefix is prepended to every host table name ("mdl_" by default).
	Prefix string
}

// NewPostgres opens the pool; it does not dial until first use or Ping.
func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db, Prefix: cfg.TablePrefix}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}

// Table returns the prefixed name of a host table.
func (c *PostgresClient) Table(name string) string {
	return c.Prefix + name
}
