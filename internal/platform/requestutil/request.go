// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sigma-gateway/sigma/internal/audit"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/ctxutil"
	"github.com/sigma-gateway/sigma/internal/platform/validate"
)

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - request: *http.Request
  - target: interface{} (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(request *http.Request, target interface{}) error {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
ID retrieves a named URL parameter (the endpoint name, an item id) from the request.
*/
func ID(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
Auditor extracts the resolved auditor identity from the request context. The
middleware that installs it always runs, so an unresolved context returns the
zero Identity rather than nil.
*/
func Auditor(request *http.Request) audit.Identity {
	return ctxutil.GetAuditor(request.Context())
}

/*
RequiredAuditor returns the auditor identity, rejecting anonymous requests.
Most Sigma endpoints accept anonymous/service-principal writes; this is for
the narrower set of deployments that require an end-user identity.
*/
func RequiredAuditor(request *http.Request) (audit.Identity, error) {
	id := Auditor(request)
	if id.Anonymous || id.Principal == "" {
		return audit.Identity{}, apperr.Unauthorized("Authentication required")
	}
	return id, nil
}
