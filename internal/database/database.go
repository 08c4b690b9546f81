// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/logging"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

func init() {
	sqlx.BindDriver(DriverDuckDB, sqlx.DOLLAR)
}

// DB wraps the connection pool and remembers its dialect.
type DB struct {
	conn   *sqlx.DB
	driver string
}

// Open connects using cfg and applies pending migrations.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	var (
		conn *sql.DB
		err  error
	)
	switch cfg.Driver {
	case DriverDuckDB:
		conn, err = openDuckDB(cfg)
	case DriverPostgres:
		conn, err = sql.Open(DriverPostgres, cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: sqlx.NewDb(conn, cfg.Driver), driver: cfg.Driver}
	db.configureConnectionPool(cfg.MaxOpenConns)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.conn.PingContext(pingCtx); err != nil {
		closeQuietly(db.conn)
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := db.migrate(ctx); err != nil {
		closeQuietly(db.conn)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logging.Info().Str("driver", cfg.Driver).Msg("Database ready")
	return db, nil
}

func openDuckDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	path := cfg.Path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}
	// Extensions are not needed; keep DuckDB from reaching the network.
	dsn := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		path, runtime.NumCPU())
	return sql.Open(DriverDuckDB, dsn)
}

func (db *DB) configureConnectionPool(maxOpen int) {
	if maxOpen <= 0 {
		maxOpen = runtime.NumCPU()
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(min(2, maxOpen))
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the pool for stores that issue their own queries.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Driver returns DriverDuckDB or DriverPostgres.
func (db *DB) Driver() string {
	return db.driver
}

// Ping checks the connection. Used by the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
