// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package database opens the single *sql.DB the Repository runs every
query through, regardless of which of the three dialects (§4.1)
backs a given deployment.

It replaces a pgxpool-specific connection pool with a database/sql
pool configured the same way across dialects, registering whichever
driver dialect.Dialect.DriverName names: pgx's database/sql adapter
for Postgres, go-ora for Oracle, modernc.org/sqlite for the embedded
H2-equivalent dialect. Pool tuning carries forward the same tuning
values a pgxpool-based pool used, expressed through database/sql's
driver-agnostic knobs instead.
*/
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/sijms/go-ora/v2"
	_ "modernc.org/sqlite"

	"github.com/sigma-gateway/sigma/internal/platform/constants"
	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 60 * time.Minute
	connMaxIdleTime = 10 * time.Minute
)

// Open establishes and validates the pool backing d, using dsn as the
// connection string for d's registered driver.
func Open(ctx context.Context, d dialect.Dialect, dsn string, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", d.DriverName(), err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)
	db.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultReadTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", d.DriverName(), err)
	}

	logger.Info("database connected", slog.String("driver", d.DriverName()), slog.Int("max_open_conns", maxOpenConns))
	return db, nil
}

// Ping verifies the pool is still reachable, for readiness probes.
func Ping(ctx context.Context, db *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultReadHeaderTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database: ping failed: %w", err)
	}
	return nil
}
