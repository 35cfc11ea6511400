// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/gateway/filter"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/constants"
	"github.com/sigma-gateway/sigma/internal/platform/validate"
	"github.com/sigma-gateway/sigma/pkg/pointer"
	"github.com/sigma-gateway/sigma/pkg/query"
)

// Kind discriminates the shape of a parsed request (§4.7).
type Kind string

const (
	KindFullCollection Kind = "full_collection"
	KindFiltered       Kind = "filtered"
	KindSequence       Kind = "sequence"
	KindWrite          Kind = "write"
)

// Op is the write operation a write-kind request performs.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpUpsert Op = "upsert"
	OpDelete Op = "delete"
)

// Parsed is the Request Parser's output: everything the Query Executor
// or Write Orchestrator needs, independent of the wire representation
// it came from.
type Parsed struct {
	Kind Kind

	Filter  *filter.Node
	Options filter.Options

	Sequence int64
	BulkSize int

	Op      Op
	Multi   bool
	Payload map[string]any   // single create/update/upsert document
	Bulk    []map[string]any // bulk-create documents

	RequestID       string
	TimeFormat      string
	ExpectedVersion *int64
}

// Parse builds a Parsed request from r, dispatching on method per
// §4.7's table. The caller has already resolved ep via the Endpoint
// Registry and confirmed the method routes to it.
func Parse(r *http.Request, ep *endpoint.Endpoint) (*Parsed, error) {
	p := &Parsed{
		RequestID:  r.Header.Get(constants.HeaderXRequestID),
		TimeFormat: r.Header.Get(constants.HeaderTimeFormat),
	}
	if raw := r.Header.Get(constants.HeaderIfMatch); raw != "" {
		v, err := strconv.ParseInt(strings.Trim(raw, `"`), 10, 64)
		if err != nil {
			return nil, apperr.ValidationError("If-Match must carry an integer document version")
		}
		p.ExpectedVersion = pointer.To(v)
	}

	switch r.Method {
	case http.MethodGet:
		return parseRead(r, p)
	case http.MethodPost:
		if ep.AllowsWrite(http.MethodPost) {
			return parseCreate(r, p)
		}
		return parseFilteredBody(r, p)
	case http.MethodPut:
		return parseMutationBody(r, p, OpUpsert)
	case http.MethodPatch:
		return parseMutationBody(r, p, OpUpdate)
	case http.MethodDelete:
		return parseDelete(r, p)
	default:
		return nil, apperr.MethodNotAllowed("method not supported on this endpoint")
	}
}

// parseRead handles GET: full collection, filtered, or sequence,
// per which query parameters are present.
func parseRead(r *http.Request, p *Parsed) (*Parsed, error) {
	q := r.URL.Query()

	seqRaw, bulkRaw := q.Get("sequence"), q.Get("bulkSize")
	if seqRaw != "" || bulkRaw != "" {
		seq, err := parseNonNegativeInt(seqRaw)
		if err != nil {
			return nil, apperr.ValidationError("sequence must be a non-negative integer")
		}
		p.Kind = KindSequence
		p.Sequence = seq
		p.BulkSize = -1 // resolved against the endpoint's default by the Query Executor
		if bulkRaw != "" {
			bulk, err := strconv.Atoi(bulkRaw)
			if err != nil {
				return nil, apperr.ValidationError("bulkSize must be an integer")
			}
			p.BulkSize = bulk
		}
		return p, nil
	}

	filterMap := queryFilterMap(q)
	node, err := filter.Parse(filterMap)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	p.Filter = node
	p.Options = buildOptions(q)
	if node == nil {
		p.Kind = KindFullCollection
	} else {
		p.Kind = KindFiltered
	}
	return p, nil
}

// filteredBody is the JSON envelope a POST-as-read request carries in
// its body when the endpoint doesn't treat POST as a write.
type filteredBody struct {
	Filter map[string]any `json:"filter"`
	Sort   []string       `json:"sort"`
	Limit  *int           `json:"limit"`
	Skip   *int           `json:"skip"`
}

func parseFilteredBody(r *http.Request, p *Parsed) (*Parsed, error) {
	var body filteredBody
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			return nil, err
		}
	}

	node, err := filter.Parse(body.Filter)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	p.Filter = node
	p.Options = filter.Options{Sort: parseSortTokens(body.Sort), Limit: body.Limit, Skip: body.Skip}
	if node == nil {
		p.Kind = KindFullCollection
	} else {
		p.Kind = KindFiltered
	}
	return p, nil
}

// parseCreate handles POST when the endpoint lists POST as a write
// method. The body is either a single document object or an array of
// documents for a bulk create.
func parseCreate(r *http.Request, p *Parsed) (*Parsed, error) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, apperr.ValidationError("could not read request body")
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil, apperr.ValidationError("create request requires a document body")
	}

	p.Kind = KindWrite
	p.Op = OpCreate
	if trimmed[0] == '[' {
		var docs []map[string]any
		if err := json.Unmarshal([]byte(trimmed), &docs); err != nil {
			return nil, validate.ErrInvalidJSON
		}
		if len(docs) == 0 {
			return nil, apperr.ValidationError("bulk create requires at least one document")
		}
		p.Bulk = docs
		return p, nil
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return nil, validate.ErrInvalidJSON
	}
	p.Bulk = []map[string]any{doc}
	return p, nil
}

// parseMutationBody handles PUT/PATCH. The only reserved top-level
// keys in the body are "filter" and "multi" (§4.7: "filter comes from
// the query string or the body's filter key"); everything else is the
// document payload to merge or upsert.
func parseMutationBody(r *http.Request, p *Parsed, op Op) (*Parsed, error) {
	p.Kind = KindWrite
	p.Op = op

	body := map[string]any{}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &body); err != nil {
			return nil, err
		}
	}

	filterMap, _ := body["filter"].(map[string]any)
	delete(body, "filter")
	if multi, ok := body["multi"].(bool); ok {
		p.Multi = multi
	}
	delete(body, "multi")

	if len(filterMap) == 0 {
		filterMap = queryFilterMap(r.URL.Query())
	}
	node, err := filter.Parse(filterMap)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	p.Filter = node
	p.Payload = body
	return p, nil
}

func parseDelete(r *http.Request, p *Parsed) (*Parsed, error) {
	p.Kind = KindWrite
	p.Op = OpDelete

	filterMap := queryFilterMap(r.URL.Query())
	if q := r.URL.Query(); strings.EqualFold(q.Get("multi"), "true") {
		p.Multi = true
	}

	if len(filterMap) == 0 && r.ContentLength != 0 {
		var body map[string]any
		if err := decodeJSON(r, &body); err != nil {
			return nil, err
		}
		if fm, ok := body["filter"].(map[string]any); ok {
			filterMap = fm
		}
		if multi, ok := body["multi"].(bool); ok {
			p.Multi = multi
		}
		if id, ok := body["myId"].(string); ok {
			p.Payload = map[string]any{"myId": id}
		}
	}

	node, err := filter.Parse(filterMap)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}
	p.Filter = node
	return p, nil
}

// queryFilterMap builds a flat equality filter map from query
// parameters, excluding the reserved ones (§4.7). Query-string filters
// only ever express equality; richer operator trees travel in a
// request body.
func queryFilterMap(q map[string][]string) map[string]any {
	out := map[string]any{}
	for key, vals := range q {
		if _, reserved := constants.ReservedQueryParams[key]; reserved {
			continue
		}
		if key == "multi" || len(vals) == 0 {
			continue
		}
		out[key] = vals[0]
	}
	return out
}

func buildOptions(q map[string][]string) filter.Options {
	opts := filter.Options{Sort: parseSortTokens(q["sort"])}
	if len(q["sort"]) == 1 {
		opts.Sort = parseSortTokens(query.StringSlice(q["sort"][0]))
	}
	if v, ok := firstInt(q["limit"]); ok {
		opts.Limit = pointer.To(v)
	}
	if v, ok := firstInt(q["skip"]); ok {
		opts.Skip = pointer.To(v)
	}
	return opts
}

func firstInt(vals []string) (int, bool) {
	if len(vals) == 0 || vals[0] == "" {
		return 0, false
	}
	n, err := strconv.Atoi(vals[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseSortTokens(tokens []string) []filter.SortField {
	var out []filter.SortField
	for _, raw := range tokens {
		field := strings.TrimSpace(raw)
		if field == "" {
			continue
		}
		dir := 1
		if strings.HasPrefix(field, "-") {
			dir = -1
			field = strings.TrimPrefix(field, "-")
		} else if strings.HasPrefix(field, "+") {
			field = strings.TrimPrefix(field, "+")
		}
		out = append(out, filter.SortField{Field: field, Dir: dir})
	}
	return out
}

func parseNonNegativeInt(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return n, nil
}

// decodeJSON wraps json decoding with the validation package's standard
// "bad body" error so handlers don't each format their own.
func decodeJSON(r *http.Request, target any) error {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}
