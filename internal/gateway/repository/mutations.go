// Copyright (c) 2026 Sigma. All rights reserved.

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sigma-gateway/sigma/internal/gateway/document"
	"github.com/sigma-gateway/sigma/internal/platform/dberr"
)

// InsertOne persists a single new document, stamping the system-managed
// fields the client never supplies directly (§4.2).
func (r *Repository) InsertOne(ctx context.Context, tx *sql.Tx, collection string, data map[string]any, auditor string) (int64, error) {
	ids, err := r.InsertMany(ctx, tx, collection, []map[string]any{data}, auditor)
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertMany persists several new documents. Callers run this inside a
// transaction so a bulk create is atomic across the whole request.
func (r *Repository) InsertMany(ctx context.Context, tx *sql.Tx, collection string, docs []map[string]any, auditor string) ([]int64, error) {
	now := time.Now().UTC()
	ids := make([]int64, 0, len(docs))

	for _, data := range docs {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("repository: marshal document for insert: %w", err)
		}

		query := fmt.Sprintf(
			`INSERT INTO %s (table_name, data, version, is_deleted, created_by, last_modified_by, created_at, last_modified_at)
			 VALUES (%s, %s, 0, %s, %s, %s, %s, %s)`,
			documentsTable,
			r.d.Placeholder(1), r.d.Placeholder(2), r.d.BoolLiteral(false),
			r.d.Placeholder(3), r.d.Placeholder(4), r.d.Placeholder(5), r.d.Placeholder(6),
		)
		args := []any{collection, string(raw), auditor, auditor, now, now}

		id, err := r.insertReturningID(ctx, tx, query, args)
		if err != nil {
			return nil, dberr.Wrap(err, "insert_many")
		}
		ids = append(ids, id)
	}

	return ids, nil
}

func (r *Repository) insertReturningID(ctx context.Context, tx *sql.Tx, query string, args []any) (int64, error) {
	if r.d.InsertReturningID() {
		var id int64
		row := tx.QueryRowContext(ctx, query+" RETURNING id", args...)
		if err := row.Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FindForUpdate loads full documents matching where (soft-delete
// scoped) within tx, giving a caller each matched row's id, version,
// and full data before deciding how to mutate it. The Write
// Orchestrator uses this for no-op detection and sub-entity array
// surgery, both of which need the pre-write document in hand.
func (r *Repository) FindForUpdate(ctx context.Context, tx *sql.Tx, collection, where string, params []any) ([]*document.Document, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE table_name = %s AND %s",
		r.columns(), documentsTable, r.d.Placeholder(1), r.d.BoolColumnEq("is_deleted", false),
	)
	args := []any{collection}
	if where != "" {
		query += " AND (" + rebindPlaceholders(where, r.d, len(args)) + ")"
		args = append(args, params...)
	}

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find_for_update")
	}
	return r.drainRows(rows)
}

// ApplyRowUpdate replaces the data column of a single row with an
// already fully-merged document, guarded by expectedVersion. It
// reports false (no error) when the version predicate matched zero
// rows — the caller's signal to surface an optimistic-lock conflict.
func (r *Repository) ApplyRowUpdate(ctx context.Context, tx *sql.Tx, id, expectedVersion int64, mergedData map[string]any, requestID, auditor string) (bool, error) {
	raw, err := json.Marshal(mergedData)
	if err != nil {
		return false, fmt.Errorf("repository: marshal merged document: %w", err)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET data = %s, version = version + 1, last_modified_at = %s,
		 last_modified_by = %s, latest_request_id = %s
		 WHERE id = %s AND version = %s`,
		documentsTable,
		r.d.Placeholder(1), r.d.Placeholder(2), r.d.Placeholder(3), r.d.Placeholder(4),
		r.d.Placeholder(5), r.d.Placeholder(6),
	)
	result, err := tx.ExecContext(ctx, query, string(raw), time.Now().UTC(), auditor, requestID, id, expectedVersion)
	if err != nil {
		return false, dberr.Wrap(err, "apply_row_update")
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}

// ApplyRowDelete soft-deletes a single row, guarded by expectedVersion,
// mirroring ApplyRowUpdate's per-row optimistic-concurrency contract.
func (r *Repository) ApplyRowDelete(ctx context.Context, tx *sql.Tx, id, expectedVersion int64, requestID, auditor string) (bool, error) {
	query := fmt.Sprintf(
		`UPDATE %s SET is_deleted = %s, version = version + 1, last_modified_at = %s,
		 last_modified_by = %s, latest_request_id = %s
		 WHERE id = %s AND version = %s`,
		documentsTable, r.d.BoolLiteral(true),
		r.d.Placeholder(1), r.d.Placeholder(2), r.d.Placeholder(3),
		r.d.Placeholder(4), r.d.Placeholder(5),
	)
	result, err := tx.ExecContext(ctx, query, time.Now().UTC(), auditor, requestID, id, expectedVersion)
	if err != nil {
		return false, dberr.Wrap(err, "apply_row_delete")
	}
	affected, _ := result.RowsAffected()
	return affected > 0, nil
}
