// Copyright (c) 2026 Sigma. All rights reserved.

package dialect

import (
	"fmt"
	"strings"
)

// postgresDialect targets PostgreSQL via jackc/pgx, using native JSONB
// and boolean support, json_build_object projections, window-function
// counts, and ANY($n) array predicates.
type postgresDialect struct{}

func newPostgresDialect() Dialect { return postgresDialect{} }

func (postgresDialect) Kind() Kind          { return KindPostgres }
func (postgresDialect) DriverName() string  { return "pgx" }
func (postgresDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func (postgresDialect) JSONExtractText(col, path string) string {
	return fmt.Sprintf("%s #>> '{%s}'", col, jsonPathBraces(path))
}

func (postgresDialect) JSONExtract(col, path string) string {
	return fmt.Sprintf("%s #> '{%s}'", col, jsonPathBraces(path))
}

func (postgresDialect) JSONExists(col, path string) string {
	return fmt.Sprintf("jsonb_path_exists(%s, '$.%s')", col, path)
}

func (postgresDialect) JSONType(col, path string) string {
	return fmt.Sprintf("jsonb_typeof(%s #> '{%s}')", col, jsonPathBraces(path))
}

func (postgresDialect) NumericCast(expr string) string {
	return fmt.Sprintf("(%s)::numeric", expr)
}

func (postgresDialect) LikeEscape(value string) (string, string) {
	escaped := escapeLikeDefault(value)
	return escaped, `ESCAPE '\'`
}

func (postgresDialect) PaginationClause(limit, offset *int) string {
	var b strings.Builder
	if limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *limit)
	}
	if offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *offset)
	}
	return b.String()
}

func (postgresDialect) LimitClause(n int) string {
	return fmt.Sprintf(" LIMIT %d", n)
}

func (postgresDialect) BoolLiteral(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func (d postgresDialect) BoolColumnEq(col string, b bool) string {
	return fmt.Sprintf("%s = %s", col, d.BoolLiteral(b))
}

func (postgresDialect) JSONArrayExpand(col, path, alias string) string {
	return fmt.Sprintf("jsonb_array_elements(%s #> '{%s}') AS %s", col, jsonPathBraces(path), alias)
}

func (postgresDialect) InsertReturningID() bool { return true }

func (postgresDialect) LastInsertIDQuery(string) string { return "" }

func (postgresDialect) DDLForDocumentsTable() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS dynamic_documents (
			id BIGSERIAL PRIMARY KEY,
			table_name TEXT NOT NULL,
			data JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 0,
			is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
			latest_request_id TEXT,
			created_by TEXT,
			last_modified_by TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_modified_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			sequence_number BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_dynamic_documents_table_deleted ON dynamic_documents (table_name, is_deleted)`,
		`CREATE INDEX IF NOT EXISTS idx_dynamic_documents_table_sequence ON dynamic_documents (table_name, sequence_number)`,
		`CREATE INDEX IF NOT EXISTS idx_dynamic_documents_table_modified ON dynamic_documents (table_name, last_modified_at)`,
		`CREATE INDEX IF NOT EXISTS idx_dynamic_documents_data_gin ON dynamic_documents USING GIN (data)`,
	}
}

func (postgresDialect) DDLForSequenceTrigger() []string {
	return []string{
		`CREATE SEQUENCE IF NOT EXISTS dynamic_documents_seq`,
		`CREATE OR REPLACE FUNCTION dynamic_documents_assign_sequence() RETURNS trigger AS $$
		BEGIN
			NEW.sequence_number := nextval('dynamic_documents_seq');
			RETURN NEW;
		END;
		$$ LANGUAGE plpgsql`,
		`DROP TRIGGER IF EXISTS trg_dynamic_documents_sequence ON dynamic_documents`,
		`CREATE TRIGGER trg_dynamic_documents_sequence
			BEFORE INSERT OR UPDATE ON dynamic_documents
			FOR EACH ROW EXECUTE FUNCTION dynamic_documents_assign_sequence()`,
	}
}

func (postgresDialect) DDLForCheckpointsTable() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS sequence_checkpoints (
			collection TEXT PRIMARY KEY,
			sequence BIGINT NOT NULL DEFAULT 0,
			resume_token TEXT,
			last_updated TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	}
}
