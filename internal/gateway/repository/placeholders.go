// Copyright (c) 2026 Sigma. All rights reserved.

package repository

import (
	"regexp"
	"strconv"

	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

var (
	dollarPlaceholder = regexp.MustCompile(`\$(\d+)`)
	colonPlaceholder  = regexp.MustCompile(`:(\d+)`)
)

// renumber shifts the 1-indexed positional placeholders a Filter
// Pipeline Result embeds so they continue after offset leading
// arguments already bound ahead of them in the same query (e.g. the
// collection name). H2/SQLite's "?" markers are purely positional and
// need no renumbering.
func renumber(where string, d dialect.Dialect, offset int) string {
	switch d.Kind() {
	case dialect.KindPostgres:
		return dollarPlaceholder.ReplaceAllStringFunc(where, func(m string) string {
			n, _ := strconv.Atoi(m[1:])
			return "$" + strconv.Itoa(n+offset)
		})
	case dialect.KindOracle:
		return colonPlaceholder.ReplaceAllStringFunc(where, func(m string) string {
			n, _ := strconv.Atoi(m[1:])
			return ":" + strconv.Itoa(n+offset)
		})
	default:
		return where
	}
}
