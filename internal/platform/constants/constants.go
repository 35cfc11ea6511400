// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package constants provides centralized, immutable values for the entire gateway.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Gateway: request header names and reserved query parameters (§4.7, §6).

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "sigma-gateway"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// WriteTransactionTimeout bounds a single write's transaction: a
	// default 30s, configurable timeout (§5).
	WriteTransactionTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Gateway HTTP Surface (§4.7, §6)

const (
	// HeaderXRequestID carries the caller's trace id; stored as latest_request_id on writes.
	HeaderXRequestID = "X-Request-ID"

	// HeaderTimeFormat selects the timestamp rendering in responses (§4.10).
	HeaderTimeFormat = "X-Time-Format"

	// HeaderIfMatch carries the expected document version for optimistic
	// concurrency on update/upsert/delete (§4.9, §9).
	HeaderIfMatch = "If-Match"

	// HeaderOrigin, HeaderXRealIP, HeaderXForwardedFor are the proxy/CORS
	// headers the middleware chain inspects.
	HeaderOrigin         = "Origin"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderAuthorization  = "Authorization"

	// ContextKeyUser names the resolved auditor identity. The request context
	// stores that identity under ctxkey.KeyUser, not under this string.
	ContextKeyUser = "auditor_identity"
)

// ReservedQueryParams never enter a filter; they control pagination,
// sorting, and sequence pagination instead (§4.7).
var ReservedQueryParams = map[string]struct{}{
	"sequence": {},
	"bulkSize": {},
	"limit":    {},
	"skip":     {},
	"sort":     {},
}

// MaxSequenceBulkSize bounds a sequence request's bulkSize regardless of
// the endpoint's configured default, so a single change-feed page can
// never grow unbounded (§4.8, §5 backpressure).
const MaxSequenceBulkSize = 1000

// # JSON Field Identifiers

const (
	FieldData    = "data"
	FieldMeta    = "meta"
	FieldError   = "error"
	FieldCode    = "code"
	FieldDetails = "details"
	FieldItems   = "items"
	FieldTotal   = "total"
	FieldMessage = "message"
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)
