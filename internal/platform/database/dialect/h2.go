// Copyright (c) 2026 Sigma. All rights reserved.

package dialect

import (
	"fmt"
	"strings"
)

// h2Dialect targets H2's embedded mode. The Go port has no JDBC/H2
// driver; modernc.org/sqlite stands in as the pure-Go, zero-dependency
// embedded engine (same deployment role H2 plays in the JVM world:
// in-process, file or memory backed, used for local dev and tests).
// SQLite's json_extract/json_each functions line up closely enough
// with H2's JSON support to share one implementation.
type h2Dialect struct{}

func newH2Dialect() Dialect { return h2Dialect{} }

func (h2Dialect) Kind() Kind         { return KindH2 }
func (h2Dialect) DriverName() string { return "sqlite" }

func (h2Dialect) Placeholder(int) string {
	return "?"
}

func (h2Dialect) JSONExtractText(col, path string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", col, path)
}

func (h2Dialect) JSONExtract(col, path string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s')", col, path)
}

func (h2Dialect) JSONExists(col, path string) string {
	return fmt.Sprintf("json_extract(%s, '$.%s') IS NOT NULL", col, path)
}

func (h2Dialect) JSONType(col, path string) string {
	return fmt.Sprintf("json_type(%s, '$.%s')", col, path)
}

func (h2Dialect) NumericCast(expr string) string {
	return fmt.Sprintf("CAST(%s AS REAL)", expr)
}

func (h2Dialect) LikeEscape(value string) (string, string) {
	escaped := escapeLikeDefault(value)
	return escaped, `ESCAPE '\'`
}

func (h2Dialect) PaginationClause(limit, offset *int) string {
	var b strings.Builder
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *limit)
	} else if offset != nil {
		// SQLite requires a LIMIT before OFFSET; -1 means unbounded.
		b.WriteString(" LIMIT -1")
	}
	if offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *offset)
	}
	return b.String()
}

func (h2Dialect) LimitClause(n int) string {
	return fmt.Sprintf(" LIMIT %d", n)
}

func (h2Dialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d h2Dialect) BoolColumnEq(col string, b bool) string {
	return fmt.Sprintf("%s = %s", col, d.BoolLiteral(b))
}

func (h2Dialect) JSONArrayExpand(col, path, alias string) string {
	return fmt.Sprintf("json_each(%s, '$.%s') AS %s", col, path, alias)
}

func (h2Dialect) InsertReturningID() bool { return true }

func (h2Dialect) LastInsertIDQuery(string) string { return "" }

func (h2Dialect) DDLForDocumentsTable() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS dynamic_documents (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			table_name TEXT NOT NULL,
			data TEXT NOT NULL CHECK (json_valid(data)),
			version INTEGER NOT NULL DEFAULT 0,
			is_deleted INTEGER NOT NULL DEFAULT 0,
			latest_request_id TEXT,
			created_by TEXT,
			last_modified_by TEXT,
			created_at TEXT NOT NULL,
			last_modified_at TEXT NOT NULL,
			sequence_number INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dyndocs_table_deleted ON dynamic_documents (table_name, is_deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_dyndocs_table_sequence ON dynamic_documents (table_name, sequence_number)`,
		`CREATE INDEX IF NOT EXISTS idx_dyndocs_table_modified ON dynamic_documents (table_name, last_modified_at)`,
	}
}

func (h2Dialect) DDLForSequenceTrigger() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS dynamic_documents_seq (value INTEGER NOT NULL)`,
		`INSERT INTO dynamic_documents_seq (value) SELECT 0 WHERE NOT EXISTS (SELECT 1 FROM dynamic_documents_seq)`,
		`DROP TRIGGER IF EXISTS trg_dyndocs_seq_insert`,
		`CREATE TRIGGER trg_dyndocs_seq_insert AFTER INSERT ON dynamic_documents
		BEGIN
			UPDATE dynamic_documents_seq SET value = value + 1;
			UPDATE dynamic_documents SET sequence_number = (SELECT value FROM dynamic_documents_seq) WHERE id = NEW.id;
		END`,
		`DROP TRIGGER IF EXISTS trg_dyndocs_seq_update`,
		`CREATE TRIGGER trg_dyndocs_seq_update AFTER UPDATE ON dynamic_documents
		WHEN NEW.sequence_number = OLD.sequence_number
		BEGIN
			UPDATE dynamic_documents_seq SET value = value + 1;
			UPDATE dynamic_documents SET sequence_number = (SELECT value FROM dynamic_documents_seq) WHERE id = NEW.id;
		END`,
	}
}

func (h2Dialect) DDLForCheckpointsTable() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sequence_checkpoints (
			collection TEXT PRIMARY KEY,
			sequence INTEGER NOT NULL DEFAULT 0,
			resume_token TEXT,
			last_updated TEXT NOT NULL
		)`,
	}
}
