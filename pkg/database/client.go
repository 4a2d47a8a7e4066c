package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// ErrNotConnected is returned by Health when no pool exists.
var ErrNotConnected = errors.New("database not connected")

// Client wraps the pooled connection used by the state and evaluator layers.
type Client struct {
	db  *sql.DB
	cfg Config
}

// Connect opens the pool, verifies connectivity, and applies any pending
// migrations.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	c := &Client{db: db, cfg: cfg}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("Database connected", "host", cfg.Host, "database", cfg.Database)
	return c, nil
}

func (c *Client) migrate() error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, c.cfg.DSN())
	if err != nil {
		return fmt.Errorf("initializing migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	slog.Info("Database migrations applied")
	return nil
}

// DB exposes the underlying pool.
func (c *Client) DB() *sql.DB { return c.db }

// Close shuts down the pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}
