// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package schema owns JSON Schema compilation against enum-spliced
definitions and the enum catalog those schemas reference.

Two caches live here, each behind an atomic pointer so readers never
block on a refresh:

  - the compiled JSON Schema cache, keyed by schema name, invalidated
    whenever the enum catalog changes;
  - the enum catalog itself, keyed by enum name, refreshed on a timer
    from an HTTP source and warm-cached in Redis across restarts.
*/
package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// Entry is a single enum member: a stable code and its display label.
type Entry struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Set is an ordered list of enum members; order is preserved from the
// source so callers that render choice lists keep source ordering.
type Set []Entry

// Codes returns the bare codes of s, in order.
func (s Set) Codes() []any {
	codes := make([]any, len(s))
	for i, e := range s {
		codes[i] = e.Code
	}
	return codes
}

// Label returns the display label for code, and whether it was found.
func (s Set) Label(code string) (string, bool) {
	for _, e := range s {
		if e.Code == code {
			return e.Label, true
		}
	}
	return "", false
}

// Catalog maps enum_name to its ordered member list.
type Catalog map[string]Set

const redisCatalogKey = "sigma:enum_catalog"

// Source fetches the current enum catalog from its backing system.
type Source interface {
	Fetch(ctx context.Context) (Catalog, error)
}

// HTTPSource fetches the catalog via a single GET against baseURL,
// expecting a JSON body shaped as {"enum_name": [{"code":..,"label":..}]}.
type HTTPSource struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPSource builds an HTTPSource with a bounded-timeout client.
func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (h *HTTPSource) Fetch(ctx context.Context) (Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("schema: build enum catalog request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("schema: enum catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("schema: enum catalog source returned %d: %s", resp.StatusCode, body)
	}

	var catalog Catalog
	if err := json.NewDecoder(resp.Body).Decode(&catalog); err != nil {
		return nil, fmt.Errorf("schema: decode enum catalog: %w", err)
	}
	return catalog, nil
}

// warmCache persists/restores the last-known-good catalog in Redis so a
// process restart does not need an immediate successful refresh before
// serving reads. The in-process atomic pointer is always authoritative;
// this is purely a restart-time bootstrap.
type warmCache struct {
	client *redis.Client
}

func (w *warmCache) save(ctx context.Context, catalog Catalog) error {
	if w == nil || w.client == nil {
		return nil
	}
	payload, err := json.Marshal(catalog)
	if err != nil {
		return fmt.Errorf("schema: marshal catalog for warm cache: %w", err)
	}
	return w.client.Set(ctx, redisCatalogKey, payload, 0).Err()
}

func (w *warmCache) load(ctx context.Context) (Catalog, error) {
	if w == nil || w.client == nil {
		return nil, nil
	}
	payload, err := w.client.Get(ctx, redisCatalogKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schema: load warm cache: %w", err)
	}
	var catalog Catalog
	if err := json.Unmarshal(payload, &catalog); err != nil {
		return nil, fmt.Errorf("schema: unmarshal warm cache: %w", err)
	}
	return catalog, nil
}
