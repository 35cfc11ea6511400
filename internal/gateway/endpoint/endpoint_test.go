// Copyright (c) 2026 Sigma. All rights reserved.

package endpoint

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-gateway/sigma/internal/platform/configstore"
)

func widgetsSnapshot() configstore.Snapshot {
	return configstore.Snapshot{
		"/prod/sigma/endpoints/widgets/path":               []byte("/widgets"),
		"/prod/sigma/endpoints/widgets/httpMethod":          []byte("get"),
		"/prod/sigma/endpoints/widgets/writeMethods":        []byte("POST,PATCH"),
		"/prod/sigma/endpoints/widgets/databaseCollection":  []byte("widgets"),
		"/prod/sigma/endpoints/widgets/sequenceEnabled":     []byte("true"),
		"/prod/sigma/endpoints/widgets/defaultBulkSize":     []byte("50"),
		"/prod/sigma/endpoints/widgets/schema":              []byte("widget:required"),
		"/prod/sigma/endpoints/widgets/subEntities":         []byte("tags,images"),
		"/prod/sigma/endpoints/widgets/readFilter/status":   []byte("$eq,$in"),
		"/prod/sigma/endpoints/widgets/writeFilter/status":  []byte("$eq"),
	}
}

func TestBuild_FullyConfiguredEndpoint(t *testing.T) {
	endpoints, errs := Build(widgetsSnapshot(), "/prod/sigma/endpoints", "/api/v1")
	require.Empty(t, errs)
	require.Len(t, endpoints, 1)

	ep := endpoints[0]
	assert.Equal(t, "widgets", ep.Name)
	assert.Equal(t, "/api/v1/widgets", ep.Path)
	assert.Equal(t, []string{"GET"}, ep.ReadMethods)
	assert.ElementsMatch(t, []string{"POST", "PATCH"}, ep.WriteMethods)
	assert.True(t, ep.SequenceEnabled)
	assert.Equal(t, 50, ep.DefaultBulkSize)
	require.NotNil(t, ep.Schema)
	assert.Equal(t, "widget", ep.Schema.Name)
	assert.True(t, ep.Schema.Required)
	assert.Contains(t, ep.SubEntities, "tags")
	assert.Contains(t, ep.SubEntities, "images")
	assert.ElementsMatch(t, []string{"eq", "in"}, ep.ReadFilterConfig.Fields["status"].AllowedOperators)
}

func TestBuild_MissingRequiredFieldIsSkippedNotFatal(t *testing.T) {
	snapshot := configstore.Snapshot{
		"/prod/sigma/endpoints/broken/httpMethod": []byte("GET"),
		"/prod/sigma/endpoints/ok/path":           []byte("/ok"),
		"/prod/sigma/endpoints/ok/httpMethod":     []byte("GET"),
		"/prod/sigma/endpoints/ok/databaseCollection": []byte("ok"),
	}
	endpoints, errs := Build(snapshot, "/prod/sigma/endpoints", "/api/v1")
	require.Len(t, errs, 1)
	require.Len(t, endpoints, 1)
	assert.Equal(t, "ok", endpoints[0].Name)
}

func TestBuild_UnknownOperatorTokenRejectsEndpoint(t *testing.T) {
	snapshot := configstore.Snapshot{
		"/prod/sigma/endpoints/widgets/path":              []byte("/widgets"),
		"/prod/sigma/endpoints/widgets/httpMethod":        []byte("GET"),
		"/prod/sigma/endpoints/widgets/databaseCollection": []byte("widgets"),
		"/prod/sigma/endpoints/widgets/readFilter/status": []byte("noDollarPrefix"),
	}
	endpoints, errs := Build(snapshot, "/prod/sigma/endpoints", "/api/v1")
	require.Len(t, errs, 1)
	assert.Empty(t, endpoints)
}

func TestBuild_FatherDocumentDisablesSequence(t *testing.T) {
	snapshot := configstore.Snapshot{
		"/prod/sigma/endpoints/tags/path":              []byte("/widgets/tags"),
		"/prod/sigma/endpoints/tags/httpMethod":        []byte("GET"),
		"/prod/sigma/endpoints/tags/databaseCollection": []byte("widgets"),
		"/prod/sigma/endpoints/tags/fatherDocument":    []byte("tags"),
		"/prod/sigma/endpoints/tags/sequenceEnabled":   []byte("true"),
	}
	endpoints, errs := Build(snapshot, "/prod/sigma/endpoints", "/api/v1")
	require.Empty(t, errs)
	require.Len(t, endpoints, 1)
	assert.True(t, endpoints[0].IsNested())
	assert.False(t, endpoints[0].SequenceEnabled)
}

func TestRegistry_ReloadAndLookup(t *testing.T) {
	r := NewRegistry(slog.New(slog.DiscardHandler))
	r.Reload(widgetsSnapshot(), "/prod/sigma/endpoints", "/api/v1")

	ep, err := r.Lookup("GET", "/api/v1/widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", ep.Name)

	ep, err = r.Lookup("POST", "/api/v1/widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", ep.Name)

	_, err = r.Lookup("DELETE", "/api/v1/widgets")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry_ReloadIsAtomicSwap(t *testing.T) {
	r := NewRegistry(slog.New(slog.DiscardHandler))
	r.Reload(widgetsSnapshot(), "/prod/sigma/endpoints", "/api/v1")

	before, err := r.Lookup("GET", "/api/v1/widgets")
	require.NoError(t, err)

	r.Reload(configstore.Snapshot{}, "/prod/sigma/endpoints", "/api/v1")
	_, err = r.Lookup("GET", "/api/v1/widgets")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, "widgets", before.Name, "previously returned descriptor remains valid")
}
