// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package dialect isolates every database-specific SQL fragment behind a
single interface so the Repository never branches on driver type.

Architecture:

  - Dialect: the capability surface (§4.1). Three implementations ship
    in this package — Postgres (pgx/v5), Oracle (sijms/go-ora), and H2
    (modernc.org/sqlite as the embedded analogue).
  - Selection happens once at startup (Select) and is fail-fast: an
    unsupported combination of features aborts the startup probe
    instead of surfacing as a runtime query error.

Adding a fourth dialect means one file plus a registration in Select.
*/
package dialect

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind identifies which SQL dialect is in effect.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindOracle   Kind = "oracle"
	KindH2       Kind = "h2"
)

// Dialect emits the database-specific SQL fragments the Repository and
// Filter Pipeline need to stay portable across Postgres, Oracle, and H2.
type Dialect interface {
	// Kind reports which variant this implementation is.
	Kind() Kind

	// DriverName is the database/sql driver name to open a *sql.DB with.
	DriverName() string

	// Placeholder returns the positional bind-parameter marker for the
	// n-th (1-indexed) argument in a query (e.g. "$1", ":1", "?").
	Placeholder(n int) string

	// JSONExtractText returns a SQL expression yielding the text value
	// at path inside the JSON column col (e.g. "data #>> '{status}'").
	JSONExtractText(col, path string) string

	// JSONExtract returns a SQL expression yielding the raw JSON value
	// at path inside the JSON column col.
	JSONExtract(col, path string) string

	// JSONExists returns a SQL predicate that is true when path exists
	// inside the JSON column col.
	JSONExists(col, path string) string

	// JSONType returns a SQL expression yielding a type token
	// ("object","array","string","number","boolean","null") for the
	// value at path inside the JSON column col.
	JSONType(col, path string) string

	// NumericCast wraps expr so it can be compared numerically.
	NumericCast(expr string) string

	// LikeEscape escapes LIKE wildcard metacharacters in value and
	// returns the escaped literal plus the ESCAPE clause to append.
	LikeEscape(value string) (escaped string, escapeClause string)

	// PaginationClause renders a LIMIT/OFFSET (or dialect equivalent)
	// fragment. Either bound may be nil to omit it.
	PaginationClause(limit, offset *int) string

	// LimitClause renders a single-row limiting fragment ("LIMIT 1" or
	// the dialect equivalent, e.g. Oracle's FETCH FIRST n ROWS ONLY).
	LimitClause(n int) string

	// BoolLiteral renders a boolean literal for dialects without a
	// native boolean type (Oracle encodes booleans as NUMBER(1)).
	BoolLiteral(b bool) string

	// BoolColumnEq returns a SQL predicate comparing column col against
	// boolean value b, using the dialect's boolean encoding.
	BoolColumnEq(col string, b bool) string

	// JSONArrayExpand returns a FROM-clause fragment that unnests the
	// JSON array at path inside col into rows aliased as alias.
	JSONArrayExpand(col, path, alias string) string

	// InsertReturningID reports whether INSERT ... RETURNING id is
	// supported natively.
	InsertReturningID() bool

	// LastInsertIDQuery returns the query used to recover the assigned
	// id when InsertReturningID is false (empty string otherwise).
	LastInsertIDQuery(sequenceName string) string

	// DDLForDocumentsTable emits CREATE TABLE IF NOT EXISTS plus the
	// indices required by §6.
	DDLForDocumentsTable() []string

	// DDLForSequenceTrigger emits the statements that make
	// sequence_number auto-assign and strictly increase on every
	// insert/update of a row.
	DDLForSequenceTrigger() []string

	// DDLForCheckpointsTable emits the sequence_checkpoints table DDL.
	DDLForCheckpointsTable() []string
}

// Select resolves the active Dialect. An explicit override wins; absent
// one, the dialect is inferred from the JDBC-style URL scheme. Per
// §4.1, failure here must happen at startup, never mid-query.
func Select(explicitOverride, databaseURL string) (Dialect, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(explicitOverride)))
	if kind == "" {
		inferred, err := inferKind(databaseURL)
		if err != nil {
			return nil, err
		}
		kind = inferred
	}

	switch kind {
	case KindPostgres:
		return newPostgresDialect(), nil
	case KindOracle:
		return newOracleDialect(), nil
	case KindH2:
		return newH2Dialect(), nil
	default:
		return nil, fmt.Errorf("dialect: unsupported database type %q", kind)
	}
}

func inferKind(databaseURL string) (Kind, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("dialect: cannot infer dialect from malformed URL: %w", err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "postgres", "postgresql", "pgx":
		return KindPostgres, nil
	case "oracle":
		return KindOracle, nil
	case "h2", "sqlite", "file":
		return KindH2, nil
	default:
		return "", fmt.Errorf("dialect: cannot infer dialect from URL scheme %q", parsed.Scheme)
	}
}
