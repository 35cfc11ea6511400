// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"net/http"

	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/ctxutil"
	"github.com/sigma-gateway/sigma/internal/platform/respond"
)

// Dispatcher is the single catch-all handler for every configured
// endpoint path. Endpoint paths are config-driven and reloadable at
// runtime, so routes aren't pre-registered on a static tree; every
// request resolves against the live Endpoint Registry snapshot instead.
type Dispatcher struct {
	deps *Deps
}

// NewDispatcher builds a Dispatcher over deps. Mount it once at the
// API's root; it owns dispatch for every endpoint path itself.
func NewDispatcher(deps *Deps) *Dispatcher {
	return &Dispatcher{deps: deps}
}

func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ep, err := d.resolve(r.Method, r.URL.Path)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	parsed, err := Parse(r, ep)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	auditor := ctxutil.GetAuditor(r.Context()).Principal

	switch parsed.Kind {
	case KindFullCollection, KindFiltered:
		res, err := ExecuteRead(r.Context(), d.deps, ep, parsed)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		writeList(w, res, parsed.TimeFormat)
	case KindSequence:
		res, err := ExecuteSequence(r.Context(), d.deps, ep, parsed)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		writeSequence(w, res, parsed.TimeFormat)
	case KindWrite:
		res, err := ExecuteWrite(r.Context(), d.deps, ep, parsed, auditor)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		writeResult(w, res)
	default:
		respond.Error(w, r, apperr.Internal(nil))
	}
}

// resolve looks up (method, path) against the registry, distinguishing
// "no endpoint at this path" (404) from "endpoint exists, method
// isn't in its method set" (405) per §6's status code table — the
// Registry's Lookup collapses both into one sentinel, so a miss falls
// back to a path-only scan here before deciding which it is.
func (d *Dispatcher) resolve(method, path string) (*endpoint.Endpoint, error) {
	ep, err := d.deps.Registry.Lookup(method, path)
	if err == nil {
		return ep, nil
	}
	if err != endpoint.ErrNotFound {
		return nil, err
	}

	for _, candidate := range d.deps.Registry.All() {
		if candidate.Path == path {
			return nil, apperr.MethodNotAllowed("method not supported on this endpoint")
		}
	}
	return nil, apperr.NotFoundMsg("no endpoint configured for this path")
}
