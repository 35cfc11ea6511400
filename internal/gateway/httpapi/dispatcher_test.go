// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/configstore"
)

func testRegistry(t *testing.T) *endpoint.Registry {
	t.Helper()
	snapshot := configstore.Snapshot{
		"/endpoints/widgets/path":               []byte("widgets"),
		"/endpoints/widgets/httpMethod":          []byte("GET"),
		"/endpoints/widgets/databaseCollection":  []byte("widgets"),
		"/endpoints/widgets/writeMethods":        []byte("POST,PATCH"),
	}
	reg := endpoint.NewRegistry(slog.Default())
	reg.Reload(snapshot, "/endpoints", "/api")
	return reg
}

func TestDispatcherResolve_KnownRoute(t *testing.T) {
	d := &Dispatcher{deps: &Deps{Registry: testRegistry(t)}}

	ep, err := d.resolve("GET", "/api/widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", ep.Name)
}

func TestDispatcherResolve_WrongMethodIsMethodNotAllowed(t *testing.T) {
	d := &Dispatcher{deps: &Deps{Registry: testRegistry(t)}}

	_, err := d.resolve("DELETE", "/api/widgets")
	require.Error(t, err)
	appErr, ok := err.(*apperr.AppError)
	require.True(t, ok)
	assert.Equal(t, 405, appErr.HTTPStatus)
}

func TestDispatcherResolve_UnknownPathIsNotFound(t *testing.T) {
	d := &Dispatcher{deps: &Deps{Registry: testRegistry(t)}}

	_, err := d.resolve("GET", "/api/gizmos")
	require.Error(t, err)
	appErr, ok := err.(*apperr.AppError)
	require.True(t, ok)
	assert.Equal(t, 404, appErr.HTTPStatus)
}

func TestDispatcherServeHTTP_UnknownPathRespondsNotFound(t *testing.T) {
	d := NewDispatcher(&Deps{Registry: testRegistry(t)})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/gizmos", nil)
	d.ServeHTTP(w, r)

	assert.Equal(t, 404, w.Code)
}
