// Copyright (c) 2026 Sigma. All rights reserved.

package schema

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/sigma-gateway/sigma/internal/platform/apperr"
)

// RawDefinition is a schema as it lives in the config store: its name
// and the undecoded JSON Schema document bytes.
type RawDefinition struct {
	Name string
	Body []byte
}

// FieldError is a single path/message validation failure.
type FieldError struct {
	Field   string
	Message string
}

// binding records that a leaf field path in documents validated against
// a given schema carries enum values from a named enum set.
type binding struct {
	path []string
	enum string
}

type compiledEntry struct {
	schema   *jsonschema.Schema
	bindings []binding
}

type compiledState struct {
	entries map[string]compiledEntry
}

// Manager owns the compiled-schema cache and the enum catalog, and
// exposes the validation and response-enrichment surface the Write
// Orchestrator and Response Builder depend on.
type Manager struct {
	raw   map[string]RawDefinition
	rawMu sync.RWMutex

	compiled atomic.Pointer[compiledState]
	catalog  atomic.Pointer[Catalog]

	source                Source
	warm                  *warmCache
	refreshInterval       time.Duration
	failOnEnumLoadFailure atomic.Bool
	catalogStale          atomic.Bool

	log *slog.Logger
}

// Option configures a Manager at construction time.
type Option func(*Manager)

// WithRedisWarmCache registers a Redis-backed warm-restart cache for the
// enum catalog.
func WithRedisWarmCache(client *redis.Client) Option {
	return func(m *Manager) { m.warm = &warmCache{client: client} }
}

// NewManager constructs a Manager. source supplies enum catalog refreshes;
// refreshInterval governs how often Refresh is invoked by RunRefreshLoop.
func NewManager(source Source, refreshInterval time.Duration, log *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		raw:             make(map[string]RawDefinition),
		source:          source,
		refreshInterval: refreshInterval,
		log:             log,
	}
	empty := Catalog{}
	m.catalog.Store(&empty)
	m.compiled.Store(&compiledState{entries: make(map[string]compiledEntry)})
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetFailOnEnumLoadFailure toggles whether write validation against
// enum-referencing schemas is refused while the catalog is stale.
func (m *Manager) SetFailOnEnumLoadFailure(fail bool) {
	m.failOnEnumLoadFailure.Store(fail)
}

// LoadDefinitions replaces the raw schema set, e.g. after a config
// snapshot reload. It invalidates the compiled cache so subsequent
// validation recompiles against the new bodies and the current catalog.
func (m *Manager) LoadDefinitions(defs []RawDefinition) {
	next := make(map[string]RawDefinition, len(defs))
	for _, d := range defs {
		next[d.Name] = d
	}

	m.rawMu.Lock()
	m.raw = next
	m.rawMu.Unlock()

	m.invalidate()
}

func (m *Manager) invalidate() {
	m.compiled.Store(&compiledState{entries: make(map[string]compiledEntry)})
}

// RunRefreshLoop runs the enum catalog scheduler until ctx is canceled.
// It performs one synchronous refresh before returning control so an
// initial catalog is available before the caller starts serving traffic,
// then continues on refreshInterval in the background.
func (m *Manager) RunRefreshLoop(ctx context.Context) error {
	if err := m.Refresh(ctx); err != nil {
		m.log.Warn("enum_catalog_initial_refresh_failed", slog.Any("error", err))
		if restored, loadErr := m.warm.load(ctx); loadErr == nil && restored != nil {
			m.catalog.Store(&restored)
			m.invalidate()
			m.log.Info("enum_catalog_restored_from_warm_cache")
		}
	}

	go func() {
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					m.log.Warn("enum_catalog_refresh_failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Refresh performs a single synchronous enum catalog fetch. On success
// it publishes the new catalog and invalidates compiled schemas so the
// next validation call re-splices enum values. On failure it retains
// the previous catalog.
func (m *Manager) Refresh(ctx context.Context) error {
	catalog, err := m.source.Fetch(ctx)
	if err != nil {
		m.catalogStale.Store(true)
		return fmt.Errorf("schema: enum catalog refresh: %w", err)
	}

	m.catalog.Store(&catalog)
	m.catalogStale.Store(false)
	m.invalidate()

	if saveErr := m.warm.save(ctx, catalog); saveErr != nil {
		m.log.Warn("enum_catalog_warm_cache_save_failed", slog.Any("error", saveErr))
	}
	return nil
}

// EnumWritesBlocked reports whether writes against the named schema
// must be refused: SetFailOnEnumLoadFailure(true) is in effect, the
// most recent Refresh failed, and the schema binds at least one field
// to an enum. A schema with no enum bindings is never blocked, since a
// stale catalog can't affect it.
func (m *Manager) EnumWritesBlocked(name string) (bool, error) {
	if !m.failOnEnumLoadFailure.Load() || !m.catalogStale.Load() {
		return false, nil
	}
	entry, err := m.compile(name)
	if err != nil {
		return false, err
	}
	return len(entry.bindings) > 0, nil
}

// compile builds (or returns the memoized) schema for name, splicing
// enumRef placeholders against the current catalog snapshot.
func (m *Manager) compile(name string) (compiledEntry, error) {
	if state := m.compiled.Load(); state != nil {
		if entry, ok := state.entries[name]; ok {
			return entry, nil
		}
	}

	m.rawMu.RLock()
	def, ok := m.raw[name]
	m.rawMu.RUnlock()
	if !ok {
		return compiledEntry{}, fmt.Errorf("schema: unknown schema %q", name)
	}

	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def.Body))
	if err != nil {
		return compiledEntry{}, fmt.Errorf("schema: parse %q: %w", name, err)
	}

	catalog := *m.catalog.Load()
	root, ok := doc.(map[string]any)
	if !ok {
		return compiledEntry{}, fmt.Errorf("schema: %q is not a JSON object", name)
	}

	var bindings []binding
	if err := spliceEnumRefs(root, nil, catalog, &bindings); err != nil {
		return compiledEntry{}, fmt.Errorf("schema: %q: %w", name, err)
	}

	resourceURL := "mem://schema/" + name
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(resourceURL, doc); err != nil {
		return compiledEntry{}, fmt.Errorf("schema: register %q: %w", name, err)
	}
	compiled, err := compiler.Compile(resourceURL)
	if err != nil {
		return compiledEntry{}, fmt.Errorf("schema: compile %q: %w", name, err)
	}

	entry := compiledEntry{schema: compiled, bindings: bindings}

	for {
		old := m.compiled.Load()
		next := &compiledState{entries: make(map[string]compiledEntry, len(old.entries)+1)}
		for k, v := range old.entries {
			next.entries[k] = v
		}
		next.entries[name] = entry
		if m.compiled.CompareAndSwap(old, next) {
			break
		}
	}

	return entry, nil
}

// spliceEnumRefs walks a schema object recursively, replacing every
// "enumRef": "<enum_name>" sibling with an "enum" array drawn from the
// current catalog and recording a binding for response enrichment. It
// descends into "properties" and array "items" the way JSON Schema
// composes object shapes.
func spliceEnumRefs(node map[string]any, path []string, catalog Catalog, bindings *[]binding) error {
	if ref, ok := node["enumRef"].(string); ok {
		set, ok := catalog[ref]
		if !ok {
			return fmt.Errorf("enumRef %q has no matching catalog entry", ref)
		}
		node["enum"] = set.Codes()
		delete(node, "enumRef")
		if len(path) > 0 {
			*bindings = append(*bindings, binding{path: append([]string(nil), path...), enum: ref})
		}
	}

	if props, ok := node["properties"].(map[string]any); ok {
		for field, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if err := spliceEnumRefs(child, append(path, field), catalog, bindings); err != nil {
				return err
			}
		}
	}

	if items, ok := node["items"].(map[string]any); ok {
		if err := spliceEnumRefs(items, path, catalog, bindings); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks doc against the named schema.
func (m *Manager) Validate(name string, doc map[string]any) []FieldError {
	entry, err := m.compile(name)
	if err != nil {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	if err := entry.schema.Validate(doc); err != nil {
		return flattenValidationError(err)
	}
	return nil
}

// ValidateBulk validates each document in docs against name, returning
// the field errors for each index that failed. Indices absent from the
// result validated cleanly.
func (m *Manager) ValidateBulk(name string, docs []map[string]any) map[int][]FieldError {
	entry, err := m.compile(name)
	if err != nil {
		out := make(map[int][]FieldError, len(docs))
		for i := range docs {
			out[i] = []FieldError{{Field: "", Message: err.Error()}}
		}
		return out
	}

	out := make(map[int][]FieldError)
	for i, doc := range docs {
		if verr := entry.schema.Validate(doc); verr != nil {
			out[i] = flattenValidationError(verr)
		}
	}
	return out
}

func flattenValidationError(err error) []FieldError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []FieldError{{Field: "", Message: err.Error()}}
	}

	var out []FieldError
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			field := strings.Join(instanceLocationSegments(e), ".")
			out = append(out, FieldError{Field: field, Message: e.Error()})
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return out
}

func instanceLocationSegments(e *jsonschema.ValidationError) []string {
	if e.InstanceLocation == nil {
		return nil
	}
	return e.InstanceLocation
}

// ToAppError converts a non-empty field error list from Validate into a
// single apperr.AppError, or returns nil if errs is empty.
func ToAppError(msg string, errs []FieldError) *apperr.AppError {
	if len(errs) == 0 {
		return nil
	}
	details := make([]apperr.FieldError, len(errs))
	for i, e := range errs {
		details[i] = apperr.FieldError{Field: e.Field, Message: e.Message}
	}
	return apperr.ValidationError(msg, details...)
}

// Enrich rewrites every leaf value bound to an enum in doc from its bare
// code to {code, value}. Missing codes pass through unchanged, matching
// the gateway's tolerant-read posture toward stale catalogs.
func (m *Manager) Enrich(schemaName string, doc map[string]any) map[string]any {
	entry, err := m.compile(schemaName)
	if err != nil || len(entry.bindings) == 0 {
		return doc
	}

	catalog := *m.catalog.Load()
	out := deepCopyMap(doc)
	for _, b := range entry.bindings {
		enrichPath(out, b.path, catalog[b.enum])
	}
	return out
}

func enrichPath(doc map[string]any, path []string, set Set) {
	if len(path) == 0 || doc == nil {
		return
	}
	key := path[0]
	if len(path) == 1 {
		code, ok := doc[key].(string)
		if !ok {
			return
		}
		label, found := set.Label(code)
		if !found {
			return
		}
		doc[key] = map[string]any{"code": code, "value": label}
		return
	}
	child, ok := doc[key].(map[string]any)
	if !ok {
		return
	}
	enrichPath(child, path[1:], set)
}

func deepCopyMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		if nested, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(nested)
			continue
		}
		out[k] = v
	}
	return out
}
