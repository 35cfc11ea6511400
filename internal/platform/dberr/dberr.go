// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package dberr bridges low-level database/driver errors into the
higher-level apperr.AppError type, hiding engine-specific detail from
the client.

Sigma talks to whichever of three engines the active Dialect targets,
so this classifies Oracle's ORA-xxxxx codes (sijms/go-ora) and SQLite's
extended result codes (modernc.org/sqlite) alongside Postgres
SQLSTATEs: a unique- or serialization-conflict on any of the three
becomes apperr.Conflict rather than a bare Internal.
*/
package dberr

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	go_ora "github.com/sijms/go-ora/v2"
	"modernc.org/sqlite"

	"github.com/sigma-gateway/sigma/internal/platform/apperr"
)

// ErrNotFound is returned when a queried row doesn't exist.
var ErrNotFound = apperr.NotFound("Resource")

// Postgres SQLSTATE codes (https://www.postgresql.org/docs/current/errcodes-appendix.html).
const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// Oracle error numbers (ORA-xxxxx, minus the prefix).
const (
	oraUniqueConstraint = 1
	oraResourceBusy     = 54
)

// SQLite primary result codes (https://www.sqlite.org/rescode.html).
const (
	sqliteConstraint = 19
	sqliteBusy       = 5
)

// Wrap inspects a database error and classifies it into an
// apperr.AppError. action names the operation for conflict messages
// (e.g. "update", "insert_many").
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return classifyPostgres(pgErr, action)
	}

	var oraErr *go_ora.OracleError
	if errors.As(err, &oraErr) {
		return classifyOracle(oraErr, action)
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return classifySQLite(liteErr, action)
	}

	return apperr.Internal(err)
}

func classifyPostgres(pgErr *pgconn.PgError, action string) error {
	switch pgErr.Code {
	case pgUniqueViolation:
		return apperr.Conflict("duplicate value violates a uniqueness constraint")
	case pgSerializationFailure, pgDeadlockDetected:
		return apperr.Conflict(action + " could not complete due to a concurrent write conflict; retry")
	default:
		return apperr.Internal(pgErr)
	}
}

func classifyOracle(oraErr *go_ora.OracleError, action string) error {
	switch oraErr.ErrCode {
	case oraUniqueConstraint:
		return apperr.Conflict("duplicate value violates a uniqueness constraint")
	case oraResourceBusy:
		return apperr.Conflict(action + " could not complete due to a concurrent write conflict; retry")
	default:
		return apperr.Internal(oraErr)
	}
}

func classifySQLite(liteErr *sqlite.Error, action string) error {
	// An extended result code carries its primary code in the low byte.
	switch liteErr.Code() & 0xff {
	case sqliteConstraint:
		return apperr.Conflict("duplicate value violates a uniqueness constraint")
	case sqliteBusy:
		return apperr.Conflict(action + " could not complete due to a concurrent write conflict; retry")
	default:
		return apperr.Internal(liteErr)
	}
}
