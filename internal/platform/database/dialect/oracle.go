// Copyright (c) 2026 Sigma. All rights reserved.

package dialect

import (
	"fmt"
	"strings"
)

// oracleDialect targets Oracle Database via sijms/go-ora, a pure-Go
// driver so the binary stays cgo-free. Oracle's JSON_VALUE/JSON_QUERY
// functions stand in for Postgres's #>/#>> operators; booleans are
// encoded as NUMBER(1) since Oracle has no native boolean column type
// before 23c, and pagination uses the ANSI FETCH FIRST syntax.
type oracleDialect struct{}

func newOracleDialect() Dialect { return oracleDialect{} }

func (oracleDialect) Kind() Kind         { return KindOracle }
func (oracleDialect) DriverName() string { return "oracle" }

func (oracleDialect) Placeholder(n int) string {
	return fmt.Sprintf(":%d", n)
}

func (oracleDialect) JSONExtractText(col, path string) string {
	return fmt.Sprintf("JSON_VALUE(%s, '$.%s')", col, path)
}

func (oracleDialect) JSONExtract(col, path string) string {
	return fmt.Sprintf("JSON_QUERY(%s, '$.%s')", col, path)
}

func (oracleDialect) JSONExists(col, path string) string {
	return fmt.Sprintf("JSON_EXISTS(%s, '$.%s')", col, path)
}

func (oracleDialect) JSONType(col, path string) string {
	return fmt.Sprintf("JSON_VALUE(%s, '$.%s.type()')", col, path)
}

func (oracleDialect) NumericCast(expr string) string {
	return fmt.Sprintf("TO_NUMBER(%s)", expr)
}

func (oracleDialect) LikeEscape(value string) (string, string) {
	escaped := escapeLikeDefault(value)
	return escaped, `ESCAPE '\'`
}

func (oracleDialect) PaginationClause(limit, offset *int) string {
	var b strings.Builder
	if offset != nil {
		fmt.Fprintf(&b, " OFFSET %d ROWS", *offset)
	} else {
		b.WriteString(" OFFSET 0 ROWS")
	}
	if limit != nil {
		fmt.Fprintf(&b, " FETCH NEXT %d ROWS ONLY", *limit)
	}
	return b.String()
}

func (oracleDialect) LimitClause(n int) string {
	return fmt.Sprintf(" FETCH FIRST %d ROWS ONLY", n)
}

func (oracleDialect) BoolLiteral(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (d oracleDialect) BoolColumnEq(col string, b bool) string {
	return fmt.Sprintf("%s = %s", col, d.BoolLiteral(b))
}

func (oracleDialect) JSONArrayExpand(col, path, alias string) string {
	return fmt.Sprintf(
		"JSON_TABLE(%s, '$.%s[*]' COLUMNS (value_doc VARCHAR2(4000) FORMAT JSON PATH '$')) %s",
		col, path, alias,
	)
}

func (oracleDialect) InsertReturningID() bool { return true }

func (oracleDialect) LastInsertIDQuery(string) string { return "" }

func (oracleDialect) DDLForDocumentsTable() []string {
	return []string{
		`CREATE TABLE dynamic_documents (
			id NUMBER GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			table_name VARCHAR2(255) NOT NULL,
			data CLOB NOT NULL CONSTRAINT dynamic_documents_data_json CHECK (data IS JSON),
			version NUMBER(19) DEFAULT 0 NOT NULL,
			is_deleted NUMBER(1) DEFAULT 0 NOT NULL,
			latest_request_id VARCHAR2(255),
			created_by VARCHAR2(255),
			last_modified_by VARCHAR2(255),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT SYSTIMESTAMP NOT NULL,
			last_modified_at TIMESTAMP WITH TIME ZONE DEFAULT SYSTIMESTAMP NOT NULL,
			sequence_number NUMBER(19) DEFAULT 0 NOT NULL
		)`,
		`CREATE INDEX idx_dyndocs_table_deleted ON dynamic_documents (table_name, is_deleted)`,
		`CREATE INDEX idx_dyndocs_table_sequence ON dynamic_documents (table_name, sequence_number)`,
		`CREATE INDEX idx_dyndocs_table_modified ON dynamic_documents (table_name, last_modified_at)`,
	}
}

func (oracleDialect) DDLForSequenceTrigger() []string {
	return []string{
		`CREATE SEQUENCE dynamic_documents_seq START WITH 1 INCREMENT BY 1`,
		`CREATE OR REPLACE TRIGGER trg_dynamic_documents_sequence
			BEFORE INSERT OR UPDATE ON dynamic_documents
			FOR EACH ROW
		BEGIN
			:NEW.sequence_number := dynamic_documents_seq.NEXTVAL;
		END;`,
	}
}

func (oracleDialect) DDLForCheckpointsTable() []string {
	return []string{
		`CREATE TABLE sequence_checkpoints (
			collection VARCHAR2(255) PRIMARY KEY,
			sequence NUMBER(19) DEFAULT 0 NOT NULL,
			resume_token VARCHAR2(4000),
			last_updated TIMESTAMP WITH TIME ZONE DEFAULT SYSTIMESTAMP NOT NULL
		)`,
	}
}
