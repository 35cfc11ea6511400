// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package document defines the core row shape Sigma persists everything
through: a single generic table, `dynamic_documents`, holding a
collection name, a schemaless JSON payload, and the audit/versioning
metadata every mutation must maintain.

Architecture:

  - Document: one row. `Data` is the user payload; every other field is
    system-managed and never settable directly by a caller.
  - SequenceCheckpoint: the resume position of a collection's change
    feed, persisted so a consumer can restart without replay.

No package below this one in the dependency graph (dialect, repository)
is allowed to assume anything about the shape of Data beyond "JSON
object". Schema and enum enrichment live above the repository boundary.
*/
package document

import "time"

// Document is a single logical row in the dynamic_documents table.
type Document struct {
	ID              int64          `json:"id"`
	TableName       string         `json:"-"`
	Data            map[string]any `json:"data"`
	Version         int64          `json:"version"`
	IsDeleted       bool           `json:"-"`
	LatestRequestID *string        `json:"-"`
	CreatedBy       *string        `json:"created_by,omitempty"`
	LastModifiedBy  *string        `json:"last_modified_by,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	LastModifiedAt  time.Time      `json:"last_modified_at"`
	SequenceNumber  int64          `json:"-"`
}

// Envelope renders a Document the way API responses expose it: the user
// payload spread with the audit columns layered on top so a client sees
// one flat JSON object, matching the source's "schemaless document plus
// system fields" response shape.
func (d *Document) Envelope() map[string]any {
	out := make(map[string]any, len(d.Data)+8)
	for k, v := range d.Data {
		out[k] = v
	}
	out["_id"] = d.ID
	out["version"] = d.Version
	if d.CreatedBy != nil {
		out["created_by"] = *d.CreatedBy
	}
	if d.LastModifiedBy != nil {
		out["last_modified_by"] = *d.LastModifiedBy
	}
	out["created_at"] = d.CreatedAt
	out["last_modified_at"] = d.LastModifiedAt
	return out
}

// ChangeOp is the kind of mutation a change-feed event represents.
type ChangeOp string

const (
	ChangeOpCreate ChangeOp = "create"
	ChangeOpUpdate ChangeOp = "update"
	ChangeOpDelete ChangeOp = "delete"
)

// ChangeEvent is one entry in a collection's sequence-ordered change
// feed, per §4.2 next_page_by_sequence.
type ChangeEvent struct {
	Op       ChangeOp       `json:"op"`
	Key      int64          `json:"key"`
	Doc      map[string]any `json:"doc,omitempty"`
	Sequence int64          `json:"sequence"`
}

// SequenceCheckpoint is a collection's saved resume position in its
// change feed. ResumeToken is retained for wire compatibility with
// consumers expecting a CDC-shaped cursor; dialects implementing the
// feed via a sequence counter (all three here) have no use for it
// themselves, per §9's note on the relational port.
type SequenceCheckpoint struct {
	Collection  string
	Sequence    int64
	ResumeToken string
	UpdatedAt   time.Time
}
