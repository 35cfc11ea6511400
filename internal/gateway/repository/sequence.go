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

// NextPageBySequence returns the next batch of change events for
// collection with sequence_number > startSequence, ordered ascending,
// plus whether more events remain beyond this batch.
func (r *Repository) NextPageBySequence(ctx context.Context, collection string, startSequence int64, batchSize int) ([]document.ChangeEvent, int64, bool, error) {
	query := fmt.Sprintf(
		`SELECT id, data, is_deleted, sequence_number, version
		 FROM %s WHERE table_name = %s AND sequence_number > %s
		 ORDER BY sequence_number ASC`,
		documentsTable, r.d.Placeholder(1), r.d.Placeholder(2),
	)
	query += r.d.LimitClause(batchSize + 1)

	rows, err := r.db.QueryContext(ctx, query, collection, startSequence)
	if err != nil {
		return nil, startSequence, false, dberr.Wrap(err, "next_page_by_sequence")
	}
	defer rows.Close()

	var events []document.ChangeEvent
	for rows.Next() {
		var id, seq, version int64
		var raw string
		var isDeleted bool
		if err := rows.Scan(&id, &raw, &isDeleted, &seq, &version); err != nil {
			return nil, startSequence, false, dberr.Wrap(err, "next_page_by_sequence scan")
		}

		doc := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, startSequence, false, fmt.Errorf("repository: decode data column for row %d: %w", id, err)
		}

		op := document.ChangeOpUpdate
		if isDeleted {
			op = document.ChangeOpDelete
		} else if version == 0 {
			op = document.ChangeOpCreate
		}

		events = append(events, document.ChangeEvent{Op: op, Key: id, Doc: doc, Sequence: seq})
	}
	if err := rows.Err(); err != nil {
		return nil, startSequence, false, dberr.Wrap(err, "next_page_by_sequence iterate")
	}

	hasMore := false
	if len(events) > batchSize {
		events = events[:batchSize]
		hasMore = true
	}

	next := startSequence
	if len(events) > 0 {
		next = events[len(events)-1].Sequence
	}
	return events, next, hasMore, nil
}

// LoadCheckpoint returns the persisted change-feed position for
// collection, or (0, "", false, nil) if none exists yet.
func (r *Repository) LoadCheckpoint(ctx context.Context, collection string) (sequence int64, resumeToken string, found bool, err error) {
	query := fmt.Sprintf(
		"SELECT sequence, resume_token FROM %s WHERE collection = %s",
		checkpointsTable, r.d.Placeholder(1),
	)
	var token sql.NullString
	row := r.db.QueryRowContext(ctx, query, collection)
	if scanErr := row.Scan(&sequence, &token); scanErr != nil {
		if scanErr == sql.ErrNoRows {
			return 0, "", false, nil
		}
		return 0, "", false, dberr.Wrap(scanErr, "load_checkpoint")
	}
	return sequence, token.String, true, nil
}

// SaveCheckpoint upserts the change-feed position for collection.
func (r *Repository) SaveCheckpoint(ctx context.Context, collection string, sequence int64, resumeToken string) error {
	_, _, found, err := r.LoadCheckpoint(ctx, collection)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	var query string
	var args []any
	if found {
		query = fmt.Sprintf(
			"UPDATE %s SET sequence = %s, resume_token = %s, last_updated = %s WHERE collection = %s",
			checkpointsTable, r.d.Placeholder(1), r.d.Placeholder(2), r.d.Placeholder(3), r.d.Placeholder(4),
		)
		args = []any{sequence, resumeToken, now, collection}
	} else {
		query = fmt.Sprintf(
			"INSERT INTO %s (collection, sequence, resume_token, last_updated) VALUES (%s, %s, %s, %s)",
			checkpointsTable, r.d.Placeholder(1), r.d.Placeholder(2), r.d.Placeholder(3), r.d.Placeholder(4),
		)
		args = []any{collection, sequence, resumeToken, now}
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return dberr.Wrap(err, "save_checkpoint")
	}
	return nil
}
