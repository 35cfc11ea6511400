// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"strings"
	"time"
)

// timeLayouts maps the X-Time-Format tokens documented in §6 to Go
// reference layouts. UNIX and UNIX-MILLIS are handled separately since
// they render as numbers, not formatted strings.
var timeLayouts = map[string]string{
	"ISO-8601":               time.RFC3339Nano,
	"ISO_INSTANT":            "2006-01-02T15:04:05.999999999Z07:00",
	"RFC-3339":               time.RFC3339,
	"ISO_OFFSET_DATE_TIME":   "2006-01-02T15:04:05.999999999Z07:00",
	"BASIC_ISO_DATE":         "20060102",
	"ISO_LOCAL_DATE":         "2006-01-02",
	"ISO_LOCAL_DATE_TIME":    "2006-01-02T15:04:05.999999999",
}

const defaultTimeFormat = "ISO-8601"

// renderTime formats t per the named X-Time-Format token, falling back
// to ISO-8601 for an empty, unknown, or unsupported token (§4.10).
func renderTime(t time.Time, format string) any {
	token := strings.ToUpper(strings.TrimSpace(format))
	switch token {
	case "":
		token = defaultTimeFormat
	case "UNIX":
		return t.Unix()
	case "UNIX-MILLIS":
		return t.UnixMilli()
	}

	for layoutToken, layout := range timeLayouts {
		if strings.EqualFold(layoutToken, token) {
			return t.Format(layout)
		}
	}
	return t.Format(timeLayouts[defaultTimeFormat])
}

// applyTimeFormat walks v (the decoded JSON-ish tree about to be
// serialized) and rewrites every time.Time leaf using format. Maps and
// slices are walked in place; scalars pass through unchanged.
func applyTimeFormat(v any, format string) any {
	switch val := v.(type) {
	case time.Time:
		return renderTime(val, format)
	case map[string]any:
		for k, inner := range val {
			val[k] = applyTimeFormat(inner, format)
		}
		return val
	case []map[string]any:
		for i, inner := range val {
			if m, ok := applyTimeFormat(inner, format).(map[string]any); ok {
				val[i] = m
			}
		}
		return val
	case []any:
		for i, inner := range val {
			val[i] = applyTimeFormat(inner, format)
		}
		return val
	default:
		return v
	}
}
