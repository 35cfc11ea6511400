// Copyright (c) 2026 Sigma. All rights reserved.

package schema

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls   atomic.Int32
	catalog Catalog
	err     error
}

func (f *fakeSource) Fetch(context.Context) (Catalog, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.catalog, nil
}

func newTestManager(t *testing.T, src Source) *Manager {
	t.Helper()
	return NewManager(src, time.Hour, slog.New(slog.DiscardHandler))
}

const widgetStatusSchema = `{
	"type": "object",
	"properties": {
		"status": {"type": "string", "enumRef": "widget_status"},
		"qty": {"type": "integer", "minimum": 0}
	},
	"required": ["status"]
}`

func TestManager_ValidateSplicesEnumRef(t *testing.T) {
	src := &fakeSource{catalog: Catalog{
		"widget_status": {{Code: "ACTIVE", Label: "Active"}, {Code: "RETIRED", Label: "Retired"}},
	}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	errs := m.Validate("widget", map[string]any{"status": "ACTIVE", "qty": float64(3)})
	assert.Empty(t, errs)

	errs = m.Validate("widget", map[string]any{"status": "BOGUS"})
	assert.NotEmpty(t, errs)
}

func TestManager_ValidateMissingRequiredField(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	errs := m.Validate("widget", map[string]any{"qty": float64(1)})
	assert.NotEmpty(t, errs)
}

func TestManager_ValidateBulkReportsIndices(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	docs := []map[string]any{
		{"status": "ACTIVE"},
		{"status": "BOGUS"},
		{"qty": float64(1)},
	}
	results := m.ValidateBulk("widget", docs)
	assert.Len(t, results, 2)
	_, ok := results[0]
	assert.False(t, ok)
	_, ok = results[1]
	assert.True(t, ok)
	_, ok = results[2]
	assert.True(t, ok)
}

func TestManager_RefreshFailureRetainsPreviousCatalog(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	src.err = assert.AnError
	err := m.Refresh(context.Background())
	assert.Error(t, err)

	errs := m.Validate("widget", map[string]any{"status": "ACTIVE"})
	assert.Empty(t, errs, "previous catalog should still be in effect")
}

func TestManager_EnumWritesBlockedWhenStaleAndFlagSet(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})
	m.SetFailOnEnumLoadFailure(true)

	blocked, err := m.EnumWritesBlocked("widget")
	require.NoError(t, err)
	assert.False(t, blocked, "catalog is fresh; nothing should be blocked yet")

	src.err = assert.AnError
	require.Error(t, m.Refresh(context.Background()))

	blocked, err = m.EnumWritesBlocked("widget")
	require.NoError(t, err)
	assert.True(t, blocked, "a schema with enum bindings must be blocked once the catalog goes stale")

	src.err = nil
	require.NoError(t, m.Refresh(context.Background()))
	blocked, err = m.EnumWritesBlocked("widget")
	require.NoError(t, err)
	assert.False(t, blocked, "a successful refresh must clear the block")
}

func TestManager_EnumWritesBlockedIgnoresFlagWhenNotSet(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	src.err = assert.AnError
	require.Error(t, m.Refresh(context.Background()))

	blocked, err := m.EnumWritesBlocked("widget")
	require.NoError(t, err)
	assert.False(t, blocked, "SetFailOnEnumLoadFailure defaults to off")
}

func TestManager_EnumWritesBlockedSkipsSchemaWithoutEnumBindings(t *testing.T) {
	const plainSchema = `{"type": "object", "properties": {"name": {"type": "string"}}}`
	src := &fakeSource{catalog: Catalog{}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "plain", Body: []byte(plainSchema)}})
	m.SetFailOnEnumLoadFailure(true)

	src.err = assert.AnError
	require.Error(t, m.Refresh(context.Background()))

	blocked, err := m.EnumWritesBlocked("plain")
	require.NoError(t, err)
	assert.False(t, blocked, "a schema with no enum bindings is unaffected by catalog staleness")
}

func TestManager_EnrichRewritesEnumLeaf(t *testing.T) {
	src := &fakeSource{catalog: Catalog{
		"widget_status": {{Code: "ACTIVE", Label: "Active"}},
	}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	enriched := m.Enrich("widget", map[string]any{"status": "ACTIVE", "qty": float64(2)})
	assert.Equal(t, map[string]any{"code": "ACTIVE", "value": "Active"}, enriched["status"])
	assert.Equal(t, float64(2), enriched["qty"])
}

func TestManager_EnrichPassesThroughUnknownCode(t *testing.T) {
	src := &fakeSource{catalog: Catalog{"widget_status": {{Code: "ACTIVE", Label: "Active"}}}}
	m := newTestManager(t, src)
	require.NoError(t, m.Refresh(context.Background()))
	m.LoadDefinitions([]RawDefinition{{Name: "widget", Body: []byte(widgetStatusSchema)}})

	enriched := m.Enrich("widget", map[string]any{"status": "UNKNOWN_CODE"})
	assert.Equal(t, "UNKNOWN_CODE", enriched["status"])
}

func TestHTTPSource_FetchDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"widget_status":[{"code":"ACTIVE","label":"Active"}]}`))
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	catalog, err := src.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Set{{Code: "ACTIVE", Label: "Active"}}, catalog["widget_status"])
}

func TestHTTPSource_NonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL)
	_, err := src.Fetch(context.Background())
	assert.Error(t, err)
}

func TestSet_LabelLookup(t *testing.T) {
	s := Set{{Code: "A", Label: "Alpha"}, {Code: "B", Label: "Beta"}}
	label, ok := s.Label("B")
	assert.True(t, ok)
	assert.Equal(t, "Beta", label)

	_, ok = s.Label("C")
	assert.False(t, ok)
}
