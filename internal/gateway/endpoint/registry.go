// Copyright (c) 2026 Sigma. All rights reserved.

package endpoint

import (
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/sigma-gateway/sigma/internal/platform/configstore"
)

// ErrNotFound is returned by Lookup when no endpoint matches.
var ErrNotFound = errors.New("endpoint: no route matches method and path")

type routingTable struct {
	byRoute map[routeKey]*Endpoint
	byName  map[string]*Endpoint
}

// Registry serves Endpoint descriptors built from config snapshots.
// Readers call Lookup/ByName against an immutable snapshot; Reload
// rebuilds and atomically swaps in a new one so in-flight requests
// never observe a partially rebuilt table.
type Registry struct {
	table atomic.Pointer[routingTable]
	log   *slog.Logger
}

// NewRegistry returns an empty Registry; call Reload before serving.
func NewRegistry(log *slog.Logger) *Registry {
	r := &Registry{log: log}
	r.table.Store(&routingTable{byRoute: map[routeKey]*Endpoint{}, byName: map[string]*Endpoint{}})
	return r
}

// Reload rebuilds the routing table from snapshot and publishes it.
// Endpoints with malformed config are logged and excluded; a bad
// endpoint never prevents the rest of the snapshot from loading.
func (r *Registry) Reload(snapshot configstore.Snapshot, endpointsRoot, apiPrefix string) {
	endpoints, errs := Build(snapshot, endpointsRoot, apiPrefix)
	for _, err := range errs {
		r.log.Error("endpoint_config_rejected", slog.Any("error", err))
	}

	table := &routingTable{
		byRoute: make(map[routeKey]*Endpoint, len(endpoints)),
		byName:  make(map[string]*Endpoint, len(endpoints)),
	}
	for _, ep := range endpoints {
		for _, method := range allMethods(ep) {
			table.byRoute[routeKey{method: method, path: ep.Path}] = ep
		}
		table.byName[ep.Name] = ep
	}

	r.table.Store(table)
	r.log.Info("endpoint_registry_reloaded", slog.Int("count", len(endpoints)))
}

// allMethods is every HTTP method this endpoint's path must route to the
// dispatcher for. GET is always a read per §6's HTTP surface table; POST is
// always routable too, since an endpoint that doesn't list POST as a write
// method still accepts it as a complex-filter read with the filter in the
// body (§4.7). PUT/PATCH/DELETE route only when explicitly configured as
// write methods.
func allMethods(ep *Endpoint) []string {
	methods := map[string]struct{}{"GET": {}, "POST": {}}
	for _, m := range ep.ReadMethods {
		methods[m] = struct{}{}
	}
	for _, m := range ep.WriteMethods {
		methods[m] = struct{}{}
	}
	out := make([]string, 0, len(methods))
	for m := range methods {
		out = append(out, m)
	}
	return out
}

// Lookup resolves (method, path) against the current snapshot.
func (r *Registry) Lookup(method, path string) (*Endpoint, error) {
	table := r.table.Load()
	ep, ok := table.byRoute[routeKey{method: strings.ToUpper(method), path: path}]
	if !ok {
		return nil, ErrNotFound
	}
	return ep, nil
}

// ByName resolves an endpoint by its configured name.
func (r *Registry) ByName(name string) (*Endpoint, bool) {
	table := r.table.Load()
	ep, ok := table.byName[name]
	return ep, ok
}

// All returns every endpoint in the current snapshot.
func (r *Registry) All() []*Endpoint {
	table := r.table.Load()
	out := make([]*Endpoint, 0, len(table.byName))
	for _, ep := range table.byName {
		out = append(out, ep)
	}
	return out
}
