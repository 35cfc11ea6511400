// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRenderTime(t *testing.T) {
	ts := time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)

	assert.Equal(t, "20260305", renderTime(ts, "BASIC_ISO_DATE"))
	assert.Equal(t, "2026-03-05", renderTime(ts, "ISO_LOCAL_DATE"))
	assert.Equal(t, ts.Unix(), renderTime(ts, "UNIX"))
	assert.Equal(t, ts.UnixMilli(), renderTime(ts, "unix-millis"))
	assert.Equal(t, ts.Format(time.RFC3339), renderTime(ts, "RFC-3339"))

	// empty and unknown tokens both fall back to ISO-8601.
	assert.Equal(t, ts.Format(time.RFC3339Nano), renderTime(ts, ""))
	assert.Equal(t, ts.Format(time.RFC3339Nano), renderTime(ts, "not-a-real-token"))

	// matching is case-insensitive.
	assert.Equal(t, "20260305", renderTime(ts, "basic_iso_date"))
}

func TestApplyTimeFormat_WalksNestedStructures(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := map[string]any{
		"created_at": ts,
		"title":      "unchanged",
		"nested": map[string]any{
			"updated_at": ts,
		},
		"history": []any{
			map[string]any{"at": ts},
		},
	}

	out := applyTimeFormat(doc, "BASIC_ISO_DATE").(map[string]any)
	assert.Equal(t, "20260101", out["created_at"])
	assert.Equal(t, "unchanged", out["title"])
	assert.Equal(t, "20260101", out["nested"].(map[string]any)["updated_at"])
	assert.Equal(t, "20260101", out["history"].([]any)[0].(map[string]any)["at"])
}
