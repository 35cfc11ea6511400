// Copyright (c) 2026 Sigma. All rights reserved.

package endpoint

import (
	"strings"

	"github.com/sigma-gateway/sigma/internal/gateway/filter"
	"github.com/sigma-gateway/sigma/internal/platform/configstore"
)

type rawEndpoint struct {
	name              string
	attrs             map[string]string
	readFilterFields  map[string]string
	writeFilterFields map[string]string
}

// Build parses a config snapshot rooted at endpointsRoot into Endpoint
// descriptors. Malformed subtrees are skipped, each producing a
// ConfigError in the returned slice, never aborting the whole build —
// one bad endpoint must not take down the others.
func Build(snapshot configstore.Snapshot, endpointsRoot, apiPrefix string) ([]*Endpoint, []error) {
	prefix := strings.TrimSuffix(endpointsRoot, "/") + "/"

	raw := make(map[string]*rawEndpoint)
	for path, value := range snapshot {
		rest := strings.TrimPrefix(path, prefix)
		if rest == path {
			continue
		}
		segments := strings.Split(rest, "/")
		if len(segments) < 2 {
			continue
		}
		name := segments[0]
		entry, ok := raw[name]
		if !ok {
			entry = &rawEndpoint{
				name:              name,
				attrs:             make(map[string]string),
				readFilterFields:  make(map[string]string),
				writeFilterFields: make(map[string]string),
			}
			raw[name] = entry
		}

		switch segments[1] {
		case "readFilter":
			if len(segments) == 3 {
				entry.readFilterFields[segments[2]] = string(value)
			}
		case "writeFilter":
			if len(segments) == 3 {
				entry.writeFilterFields[segments[2]] = string(value)
			}
		default:
			if len(segments) == 2 {
				entry.attrs[segments[1]] = string(value)
			}
		}
	}

	var endpoints []*Endpoint
	var errs []error
	for _, r := range raw {
		ep, err := buildOne(r, apiPrefix)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, errs
}

func buildOne(r *rawEndpoint, apiPrefix string) (*Endpoint, error) {
	path := r.attrs["path"]
	httpMethod := r.attrs["httpMethod"]
	collection := r.attrs["databaseCollection"]
	if path == "" || httpMethod == "" || collection == "" {
		return nil, newConfigError("endpoint %q missing required field(s) path/httpMethod/databaseCollection", r.name)
	}

	readMethods := []string{strings.ToUpper(httpMethod)}
	writeMethods := parseList(strings.ToUpper(r.attrs["writeMethods"]))
	for _, m := range writeMethods {
		if !validWriteMethod(m) {
			return nil, newConfigError("endpoint %q: invalid write method %q", r.name, m)
		}
	}

	kind := KindREST
	if strings.EqualFold(r.attrs["type"], "graphql") {
		kind = KindGraphQL
	}

	bulkSize, err := parseBulkSize(r.attrs["defaultBulkSize"])
	if err != nil {
		return nil, configErrorFor(r.name, err)
	}

	readCfg, err := buildFilterConfig(r.readFilterFields)
	if err != nil {
		return nil, configErrorFor(r.name, err)
	}
	writeCfg, err := buildFilterConfig(r.writeFilterFields)
	if err != nil {
		return nil, configErrorFor(r.name, err)
	}

	subEntities := make(map[string]struct{})
	for _, f := range parseList(r.attrs["subEntities"]) {
		subEntities[f] = struct{}{}
	}

	fatherDocument := strings.TrimSpace(r.attrs["fatherDocument"])
	sequenceEnabled := parseBool(r.attrs["sequenceEnabled"]) && fatherDocument == ""

	return &Endpoint{
		Name:              r.name,
		Path:              strings.TrimSuffix(apiPrefix, "/") + "/" + strings.TrimPrefix(path, "/"),
		ReadMethods:       readMethods,
		WriteMethods:      writeMethods,
		Collection:        collection,
		Kind:              kind,
		SequenceEnabled:   sequenceEnabled,
		DefaultBulkSize:   bulkSize,
		ReadFilterConfig:  readCfg,
		WriteFilterConfig: writeCfg,
		Schema:            parseSchemaRef(r.attrs["schema"]),
		SubEntities:       subEntities,
		FatherDocument:    fatherDocument,
	}, nil
}

func validWriteMethod(m string) bool {
	switch m {
	case "POST", "PUT", "PATCH", "DELETE":
		return true
	default:
		return false
	}
}

func buildFilterConfig(fields map[string]string) (filter.Config, error) {
	cfg := filter.Config{Fields: make(map[string]filter.FieldConfig, len(fields))}
	for field, raw := range fields {
		ops, err := parseOperatorList(raw)
		if err != nil {
			return filter.Config{}, err
		}
		cfg.Fields[field] = filter.FieldConfig{AllowedOperators: ops}
	}
	return cfg, nil
}

func configErrorFor(name string, err error) error {
	return newConfigError("endpoint %q: %s", name, err.Error())
}
