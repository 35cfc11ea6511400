// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package migration bootstraps the gateway's storage schema.

Sigma's document store is a single shared table per dialect
(dynamic_documents, discriminated by table_name) plus a
sequence_checkpoints table — there is no per-collection DDL, since
collections are config-driven and can appear or disappear on a config
reload without a schema change. A fixed, versioned migration file set
doesn't fit that: there is nothing to version per collection. Instead
RunUp executes the three idempotent DDL statement groups a [dialect.Dialect] already
carries (CREATE TABLE IF NOT EXISTS / CREATE INDEX IF NOT EXISTS),
directly against the pool, once at startup.
*/
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

// RunUp applies every DDL statement the active dialect needs for the
// document store, checkpoints table, and (where the dialect uses one)
// the sequence-assignment trigger. Each statement is idempotent, so
// RunUp is safe to call on every startup.
func RunUp(ctx context.Context, db *sql.DB, d dialect.Dialect, logger *slog.Logger) error {
	groups := [][]string{
		d.DDLForDocumentsTable(),
		d.DDLForSequenceTrigger(),
		d.DDLForCheckpointsTable(),
	}

	applied := 0
	for _, stmts := range groups {
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				// Oracle's CREATE TABLE/INDEX/SEQUENCE have no IF NOT EXISTS;
				// ORA-00955 means the object is already in place.
				if d.Kind() == dialect.KindOracle && strings.Contains(err.Error(), "ORA-00955") {
					continue
				}
				return fmt.Errorf("migration: statement failed: %w", err)
			}
			applied++
		}
	}

	logger.Info("migration_bootstrap_complete", slog.String("dialect", string(d.Kind())), slog.Int("statements", applied))
	return nil
}
