// Copyright (c) 2026 Sigma. All rights reserved.

/*
Package endpoint builds and serves Endpoint descriptors from a config
store snapshot.

A fixed set of route bindings wired once at startup doesn't fit a
gateway whose collections are config-driven, so this registry is
rebuilt from config on every relevant change and published as an
immutable snapshot via atomic pointer swap, so in-flight requests never
observe a torn configuration.
*/
package endpoint

import (
	"strconv"
	"strings"

	"github.com/sigma-gateway/sigma/internal/gateway/filter"
	"github.com/sigma-gateway/sigma/internal/gateway/filter/operators"
)

// Kind distinguishes a REST endpoint from one exposed only through a
// GraphQL stitching layer.
type Kind string

const (
	KindREST    Kind = "REST"
	KindGraphQL Kind = "GRAPHQL"
)

const defaultBulkSize = 100

// SchemaRef names a schema binding and whether it is required on write.
type SchemaRef struct {
	Name     string
	Required bool
}

// Endpoint is an immutable, fully-resolved descriptor for one configured
// route.
type Endpoint struct {
	Name             string
	Path             string
	ReadMethods      []string
	WriteMethods     []string
	Collection       string
	Kind             Kind
	SequenceEnabled  bool
	DefaultBulkSize  int
	ReadFilterConfig filter.Config
	WriteFilterConfig filter.Config
	Schema           *SchemaRef
	SubEntities      map[string]struct{}
	FatherDocument   string
}

// IsNested reports whether this endpoint exposes an inner array as a
// virtual sub-collection. Nested endpoints disable sequence pagination.
func (e *Endpoint) IsNested() bool { return e.FatherDocument != "" }

// AllowsWrite reports whether method is declared in WriteMethods.
func (e *Endpoint) AllowsWrite(method string) bool {
	return contains(e.WriteMethods, strings.ToUpper(method))
}

// AllowsRead reports whether method is declared in ReadMethods.
func (e *Endpoint) AllowsRead(method string) bool {
	return contains(e.ReadMethods, strings.ToUpper(method))
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// routeKey uniquely identifies a registered route.
type routeKey struct {
	method string
	path   string
}

// parseOperatorList turns "$op1,$op2" (comma or newline separated) into
// normalized operator tokens, rejecting anything not in the registry.
func parseOperatorList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })

	var tokens []string
	for _, f := range fields {
		token := strings.TrimSpace(f)
		if token == "" {
			continue
		}
		if !strings.HasPrefix(token, "$") {
			return nil, newConfigError("operator token %q must be $-prefixed", token)
		}
		name := strings.TrimPrefix(token, "$")
		if _, ok := operators.Lookup(name); !ok {
			return nil, newConfigError("unknown operator token %q", token)
		}
		tokens = append(tokens, name)
	}
	return tokens, nil
}

func parseBulkSize(raw string) (int, error) {
	if raw == "" {
		return defaultBulkSize, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, newConfigError("defaultBulkSize must be a positive integer, got %q", raw)
	}
	return n, nil
}

func parseBool(raw string) bool {
	return strings.EqualFold(strings.TrimSpace(raw), "true")
}

func parseList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	var out []string
	for _, f := range fields {
		if t := strings.TrimSpace(f); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseSchemaRef(raw string) *SchemaRef {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.SplitN(raw, ":", 2)
	ref := &SchemaRef{Name: strings.TrimSpace(parts[0])}
	if len(parts) == 2 {
		ref.Required = strings.EqualFold(strings.TrimSpace(parts[1]), "required")
	}
	return ref
}
