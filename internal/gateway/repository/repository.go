// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package repository is the single data-access layer over the
dynamic_documents table. Every operation takes a logical collection
name plus SQL fragments the Filter Pipeline already produced; nothing
here concatenates user input into SQL text — all values travel as
driver parameters.

Transactional discipline follows a one-*sql.Tx-per-write,
explicit-commit/rollback shape ported from a pgxpool-native interface
to database/sql so the same code path serves Postgres, Oracle, and
H2/SQLite behind one Dialect.
*/
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sigma-gateway/sigma/internal/gateway/document"
	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
	"github.com/sigma-gateway/sigma/internal/platform/dberr"
)

const documentsTable = "dynamic_documents"
const checkpointsTable = "sequence_checkpoints"

// Repository is the concrete, dialect-portable implementation of the
// Query Executor and Write Orchestrator's storage dependency.
type Repository struct {
	db *sql.DB
	d  dialect.Dialect
}

// New wraps an already-opened database/sql pool bound to dialect d.
func New(db *sql.DB, d dialect.Dialect) *Repository {
	return &Repository{db: db, d: d}
}

// querier is satisfied by both *sql.DB and *sql.Tx so read helpers work
// inside or outside an ambient transaction.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BeginTx opens a transaction for the Write Orchestrator's write
// pipeline (§4.9).
func (r *Repository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, dberr.Wrap(err, "begin transaction")
	}
	return tx, nil
}

func (r *Repository) columns() string {
	return "id, table_name, data, version, is_deleted, latest_request_id, created_by, last_modified_by, created_at, last_modified_at, sequence_number"
}

func (r *Repository) scanRow(rows *sql.Rows) (*document.Document, error) {
	var doc document.Document
	var rawData string

	if err := rows.Scan(
		&doc.ID, &doc.TableName, &rawData, &doc.Version, &doc.IsDeleted, &doc.LatestRequestID,
		&doc.CreatedBy, &doc.LastModifiedBy, &doc.CreatedAt, &doc.LastModifiedAt, &doc.SequenceNumber,
	); err != nil {
		return nil, dberr.Wrap(err, "scan document row")
	}
	if err := json.Unmarshal([]byte(rawData), &doc.Data); err != nil {
		return nil, fmt.Errorf("repository: decode data column for row %d: %w", doc.ID, err)
	}
	return &doc, nil
}

func (r *Repository) drainRows(rows *sql.Rows) ([]*document.Document, error) {
	defer rows.Close()
	var docs []*document.Document
	for rows.Next() {
		doc, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "iterate document rows")
	}
	return docs, nil
}

// FindAll returns every non-deleted document in collection.
func (r *Repository) FindAll(ctx context.Context, collection string) ([]*document.Document, error) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE table_name = %s AND %s",
		r.columns(), documentsTable, r.d.Placeholder(1), r.d.BoolColumnEq("is_deleted", false),
	)
	rows, err := r.db.QueryContext(ctx, query, collection)
	if err != nil {
		return nil, dberr.Wrap(err, "find_all")
	}
	return r.drainRows(rows)
}

// Find runs a filtered, paginated, soft-delete-scoped query.
func (r *Repository) Find(ctx context.Context, collection, where, orderBy string, limit, offset *int, params []any) ([]*document.Document, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE table_name = %s AND %s", r.columns(), documentsTable, r.d.Placeholder(1), r.d.BoolColumnEq("is_deleted", false))

	args := append([]any{collection}, params...)
	if where != "" {
		b.WriteString(" AND (" + rebindPlaceholders(where, r.d, 1) + ")")
	}
	if orderBy != "" {
		b.WriteString(" ORDER BY " + orderBy)
	}
	b.WriteString(r.d.PaginationClause(limit, offset))

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find")
	}
	return r.drainRows(rows)
}

// FindRaw runs a filtered query without the soft-delete filter. It
// exists only for post-delete response enrichment (§4.2), which must
// read back a row that was just marked deleted.
func (r *Repository) FindRaw(ctx context.Context, collection, where string, params []any) ([]*document.Document, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE table_name = %s", r.columns(), documentsTable, r.d.Placeholder(1))
	args := append([]any{collection}, params...)
	if where != "" {
		b.WriteString(" AND (" + rebindPlaceholders(where, r.d, 1) + ")")
	}

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find_raw")
	}
	return r.drainRows(rows)
}

// FindByIDs loads documents by primary key, ignoring soft-delete state.
func (r *Repository) FindByIDs(ctx context.Context, collection string, ids []int64) ([]*document.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, collection)
	for i, id := range ids {
		placeholders[i] = r.d.Placeholder(i + 2)
		args = append(args, id)
	}

	query := fmt.Sprintf(
		"SELECT %s FROM %s WHERE table_name = %s AND id IN (%s)",
		r.columns(), documentsTable, r.d.Placeholder(1), strings.Join(placeholders, ", "),
	)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find_by_ids")
	}
	return r.drainRows(rows)
}

// rebindPlaceholders renumbers placeholders emitted by the Filter
// Pipeline (which always starts counting at 1) to continue after
// offset already-bound leading arguments.
func rebindPlaceholders(where string, d dialect.Dialect, offset int) string {
	if offset == 0 {
		return where
	}
	// The filter pipeline's placeholders are dialect-native already;
	// Postgres/Oracle use numbered markers we can shift arithmetically,
	// H2/SQLite uses positional "?" markers that need no renumbering.
	return renumber(where, d, offset)
}
