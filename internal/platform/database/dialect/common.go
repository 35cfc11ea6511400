// Copyright (c) 2026 Sigma. All rights reserved.

package dialect

import "strings"

// jsonPathBraces converts a dotted field path ("data.field.sub") into
// the comma-separated brace form Postgres JSON path operators expect
// ("data,field,sub").
func jsonPathBraces(path string) string {
	return strings.Join(strings.Split(path, "."), ",")
}

// escapeLikeDefault escapes the ANSI SQL LIKE wildcard metacharacters
// (%, _) and the escape character itself using backslash, matching the
// `ESCAPE '\'` clause every dialect here declares.
func escapeLikeDefault(value string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	)
	return replacer.Replace(value)
}
