// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package httpapi is Sigma's HTTP surface: it turns an inbound request
plus a resolved Endpoint into a database operation and a response body.

It consolidates four conceptually separate roles — request parsing,
read/sequence execution, write orchestration, and response shaping —
into one package organized by file (parse.go, query.go, write.go,
response.go) rather than four packages. Each stays independently
testable; they are merged here because none of the four has a surface
large enough on its own to justify a package boundary, and keeping them
together makes the request-to-response pipeline (dispatcher.go) easy to
read top to bottom.
*/
package httpapi

import (
	"log/slog"

	"github.com/sigma-gateway/sigma/internal/audit"
	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/gateway/repository"
	"github.com/sigma-gateway/sigma/internal/gateway/schema"
	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

// Deps are the gateway's runtime collaborators, wired once in
// cmd/sigmad/main.go and shared across every request.
type Deps struct {
	Registry *endpoint.Registry
	Repo     *repository.Repository
	Dialect  dialect.Dialect
	Schema   *schema.Manager
	Resolver audit.Resolver
	Log      *slog.Logger
}
