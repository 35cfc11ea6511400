// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/sigma-gateway/sigma/internal/gateway/document"
	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/gateway/filter"
	"github.com/sigma-gateway/sigma/internal/gateway/schema"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/dberr"
	"github.com/sigma-gateway/sigma/pkg/uuid"
)

// Result is the Write Orchestrator's outcome, shaped per §4.10's
// polymorphic write envelope.
type Result struct {
	Type          string
	Success       bool
	AffectedCount int
	Message       string

	InsertedIDs []int64 // create

	Matched  int // update/upsert
	Modified int

	WasInserted bool  // upsert
	DocumentID  int64 // upsert/delete-single

	DeletedCount int // delete
}

// systemManagedFields are stripped from every client-supplied document
// before it reaches storage (§4.9 step 2): they are set by the
// Repository, never by the caller.
var systemManagedFields = []string{
	"is_deleted", "isDeleted", "latest_request_id", "created_by",
	"last_modified_by", "created_at", "last_modified_at", "version",
	"_id", "id", "sequence_number",
}

func sanitize(doc map[string]any) {
	for _, f := range systemManagedFields {
		delete(doc, f)
	}
}

// ExecuteWrite runs the full write pipeline (§4.9) inside one
// transaction: validate, sanitize, sub-entity orchestration, no-op
// detection, apply, commit. Any error aborts the transaction.
func ExecuteWrite(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, auditor string) (*Result, error) {
	if err := checkWriteMethodAllowed(ep, p.Op); err != nil {
		return nil, err
	}

	cfg := ep.WriteFilterConfig
	if p.Filter != nil {
		if errs := filter.Validate(p.Filter, cfg); len(errs) > 0 {
			return nil, validationErrors(errs)
		}
	}

	tx, err := deps.Repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var result *Result
	if ep.IsNested() {
		result, err = doNestedWrite(ctx, deps, ep, p, tx, auditor)
	} else {
		switch p.Op {
		case OpCreate:
			result, err = doCreate(ctx, deps, ep, p, tx, auditor)
		case OpUpdate:
			result, err = doUpdate(ctx, deps, ep, p, tx, auditor, false)
		case OpUpsert:
			result, err = doUpdate(ctx, deps, ep, p, tx, auditor, true)
		case OpDelete:
			result, err = doDelete(ctx, deps, ep, p, tx, auditor)
		default:
			err = fmt.Errorf("httpapi: unhandled write op %q", p.Op)
		}
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, dberr.Wrap(err, "commit write transaction")
	}
	committed = true
	return result, nil
}

func checkWriteMethodAllowed(ep *endpoint.Endpoint, op Op) error {
	var method string
	switch op {
	case OpCreate:
		method = http.MethodPost
	case OpUpdate:
		method = http.MethodPatch
	case OpUpsert:
		method = http.MethodPut
	case OpDelete:
		method = http.MethodDelete
	}
	if !ep.AllowsWrite(method) {
		return apperr.MethodNotAllowed("this operation is not permitted for this endpoint")
	}
	return nil
}

func translateWhere(deps *Deps, node *filter.Node) (string, []any, error) {
	res, err := filter.Translate(node, deps.Dialect, "data", filter.Options{})
	if err != nil {
		return "", nil, apperr.ValidationError(err.Error())
	}
	return res.WhereClause, res.Params, nil
}

// # Create

func doCreate(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, tx *sql.Tx, auditor string) (*Result, error) {
	docs := p.Bulk
	for _, doc := range docs {
		sanitize(doc)
		if ep.SubEntities != nil {
			if err := orchestrateSubEntitiesCreate(ep, doc); err != nil {
				return nil, err
			}
		}
	}

	if ep.Schema != nil {
		if err := validateBulkSchema(deps, ep.Schema.Name, docs, ep.Schema.Required); err != nil {
			return nil, err
		}
	}

	ids, err := deps.Repo.InsertMany(ctx, tx, ep.Collection, docs, auditor)
	if err != nil {
		return nil, err
	}

	result := &Result{Type: "create", Success: true, AffectedCount: len(ids), InsertedIDs: ids}
	if len(ids) == 1 {
		result.WasInserted = true
		result.DocumentID = ids[0]
	}
	return result, nil
}

// # Update / Upsert

func doUpdate(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, tx *sql.Tx, auditor string, upsert bool) (*Result, error) {
	where, params, err := translateWhere(deps, p.Filter)
	if err != nil {
		return nil, err
	}

	rows, err := deps.Repo.FindForUpdate(ctx, tx, ep.Collection, where, params)
	if err != nil {
		return nil, err
	}

	touchesSubEntity := anySubEntityFieldPresent(ep, p.Payload)
	if touchesSubEntity && p.Multi {
		return nil, apperr.Unprocessable("sub-entity writes are not supported together with multi=true")
	}
	if touchesSubEntity && len(rows) != 1 {
		return nil, apperr.Unprocessable("sub-entity writes require the filter to match exactly one document")
	}
	if !p.Multi && len(rows) > 1 {
		return nil, apperr.Unprocessable(fmt.Sprintf("filter matched %d documents but multi was not set", len(rows)))
	}

	if len(rows) == 0 {
		if !upsert {
			return &Result{Type: "update", Success: true, Matched: 0, Modified: 0, Message: "no documents matched the filter"}, nil
		}
		return doCreateViaUpsert(ctx, deps, ep, p, tx, auditor)
	}

	if touchesSubEntity {
		if err := orchestrateSubEntitiesUpdate(ep, rows[0].Data, p.Payload); err != nil {
			return nil, err
		}
	}

	matched, modified := 0, 0
	var lastRow *document.Document
	for _, row := range rows {
		matched++
		if p.ExpectedVersion != nil && row.Version != *p.ExpectedVersion {
			return nil, apperr.Conflict(fmt.Sprintf("expected version %d, current version %d", *p.ExpectedVersion, row.Version))
		}

		if noOpUpdate(row.Data, p.Payload) {
			continue
		}

		merged := shallowMergeLocal(row.Data, p.Payload)
		ok, err := deps.Repo.ApplyRowUpdate(ctx, tx, row.ID, row.Version, merged, p.RequestID, auditor)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Conflict(fmt.Sprintf("document %d was modified concurrently", row.ID))
		}
		modified++
		lastRow = row
	}

	typeName := "update"
	if upsert {
		typeName = "upsert"
	}
	result := &Result{Type: typeName, Success: true, Matched: matched, Modified: modified, AffectedCount: modified}
	if modified == 0 {
		result.Message = "no changes applied; all target fields already match"
	}
	if upsert && lastRow != nil {
		result.DocumentID = lastRow.ID
	}
	return result, nil
}

func doCreateViaUpsert(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, tx *sql.Tx, auditor string) (*Result, error) {
	doc := map[string]any{}
	for k, v := range p.Payload {
		doc[k] = v
	}
	sanitize(doc)
	if ep.SubEntities != nil {
		if err := orchestrateSubEntitiesCreate(ep, doc); err != nil {
			return nil, err
		}
	}
	if ep.Schema != nil {
		if err := validateBulkSchema(deps, ep.Schema.Name, []map[string]any{doc}, ep.Schema.Required); err != nil {
			return nil, err
		}
	}

	id, err := deps.Repo.InsertOne(ctx, tx, ep.Collection, doc, auditor)
	if err != nil {
		return nil, err
	}
	return &Result{
		Type: "upsert", Success: true, AffectedCount: 1,
		WasInserted: true, DocumentID: id, Matched: 0, Modified: 0,
	}, nil
}

// # Delete

func doDelete(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, tx *sql.Tx, auditor string) (*Result, error) {
	where, params, err := translateWhere(deps, p.Filter)
	if err != nil {
		return nil, err
	}

	rows, err := deps.Repo.FindForUpdate(ctx, tx, ep.Collection, where, params)
	if err != nil {
		return nil, err
	}
	if !p.Multi && len(rows) > 1 {
		return nil, apperr.Unprocessable(fmt.Sprintf("filter matched %d documents but multi was not set", len(rows)))
	}

	deleted := 0
	var lastID int64
	for _, row := range rows {
		if p.ExpectedVersion != nil && row.Version != *p.ExpectedVersion {
			return nil, apperr.Conflict(fmt.Sprintf("expected version %d, current version %d", *p.ExpectedVersion, row.Version))
		}
		ok, err := deps.Repo.ApplyRowDelete(ctx, tx, row.ID, row.Version, p.RequestID, auditor)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperr.Conflict(fmt.Sprintf("document %d was modified concurrently", row.ID))
		}
		deleted++
		lastID = row.ID
	}

	result := &Result{Type: "delete", Success: true, Matched: len(rows), DeletedCount: deleted, AffectedCount: deleted}
	if len(rows) == 1 {
		result.DocumentID = lastID
	}
	return result, nil
}

// # Nested endpoint writes

// doNestedWrite mutates a single item inside a sub-entity array exposed
// as a virtual collection (§4.8: "uses find_nested"). The filter must
// resolve to exactly one parent document scoped by top-level fields;
// the nested item to touch is named by a "myId" in the payload (or, on
// append, omitted entirely). Filtering by a nested item's own fields
// is not supported here — the same scope call nested.go's FindNested
// makes for reads: Oracle/Postgres JSON array-predicate pushdown isn't
// worth chasing for gateway-scale document volumes (see DESIGN.md).
func doNestedWrite(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed, tx *sql.Tx, auditor string) (*Result, error) {
	if p.Op == OpCreate {
		return nil, apperr.Unprocessable("use PUT or PATCH to add an item to a nested collection")
	}

	where, params, err := translateWhere(deps, p.Filter)
	if err != nil {
		return nil, err
	}
	rows, err := deps.Repo.FindForUpdate(ctx, tx, ep.Collection, where, params)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperr.NotFoundMsg("no parent document matches the nested endpoint filter")
	}
	if len(rows) > 1 {
		return nil, apperr.Unprocessable("nested write filter must match exactly one parent document")
	}
	parent := rows[0]
	if p.ExpectedVersion != nil && parent.Version != *p.ExpectedVersion {
		return nil, apperr.Conflict(fmt.Sprintf("expected version %d, current version %d", *p.ExpectedVersion, parent.Version))
	}

	segments := strings.Split(ep.FatherDocument, ".")
	existing, _ := navigateArray(parent.Data, segments)

	op := map[string]any{}
	for k, v := range p.Payload {
		op[k] = v
	}
	if p.Op == OpDelete {
		op["isDelete"] = true
	}

	merged, err := orchestrateSubEntityField(existing, []any{op})
	if err != nil {
		return nil, err
	}
	setArrayAtPath(parent.Data, segments, merged)

	ok, err := deps.Repo.ApplyRowUpdate(ctx, tx, parent.ID, parent.Version, parent.Data, p.RequestID, auditor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.Conflict(fmt.Sprintf("document %d was modified concurrently", parent.ID))
	}

	typeName := "update"
	if p.Op == OpUpsert {
		typeName = "upsert"
	} else if p.Op == OpDelete {
		typeName = "delete"
	}
	return &Result{Type: typeName, Success: true, Matched: 1, Modified: 1, AffectedCount: 1, DocumentID: parent.ID}, nil
}

func navigateArray(doc map[string]any, segments []string) ([]any, bool) {
	cur := any(doc)
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	arr, ok := cur.([]any)
	return arr, ok
}

func setArrayAtPath(doc map[string]any, segments []string, arr []any) {
	cur := doc
	for i, seg := range segments {
		if i == len(segments)-1 {
			cur[seg] = arr
			return
		}
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[seg] = next
		}
		cur = next
	}
}

// # Sub-entity orchestration (§4.9 step 3)

func anySubEntityFieldPresent(ep *endpoint.Endpoint, payload map[string]any) bool {
	for f := range ep.SubEntities {
		if _, ok := payload[f]; ok {
			return true
		}
	}
	return false
}

// orchestrateSubEntitiesCreate assigns a fresh myId to every entry
// missing one, rejects duplicate ids within the same payload, rejects
// an isDelete flag on create, and stamps isDeleted=false on every entry.
func orchestrateSubEntitiesCreate(ep *endpoint.Endpoint, doc map[string]any) error {
	for field := range ep.SubEntities {
		raw, ok := doc[field]
		if !ok {
			continue
		}
		arr, ok := raw.([]any)
		if !ok {
			return apperr.ValidationError(fmt.Sprintf("%q must be an array", field))
		}

		seen := map[string]bool{}
		for i, rawItem := range arr {
			item, ok := rawItem.(map[string]any)
			if !ok {
				return apperr.ValidationError(fmt.Sprintf("each entry of %q must be an object", field))
			}
			if del, _ := item["isDelete"].(bool); del {
				return apperr.ValidationError(fmt.Sprintf("isDelete is not allowed when creating %q", field))
			}
			id, _ := item["myId"].(string)
			if id == "" {
				id = uuid.New()
			} else if seen[id] {
				return apperr.ValidationError(fmt.Sprintf("duplicate myId %q in %q", id, field))
			}
			seen[id] = true
			item["myId"] = id
			item["isDeleted"] = false
			delete(item, "isDelete")
			arr[i] = item
		}
		doc[field] = arr
	}
	return nil
}

// orchestrateSubEntitiesUpdate applies each configured sub-entity
// field's operation list from payload onto currentData, replacing
// payload[field] with the fully materialized array so the generic
// shallow merge downstream just slots it in as a top-level value.
func orchestrateSubEntitiesUpdate(ep *endpoint.Endpoint, currentData, payload map[string]any) error {
	for field := range ep.SubEntities {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		proposed, ok := raw.([]any)
		if !ok {
			return apperr.ValidationError(fmt.Sprintf("%q must be an array", field))
		}
		existing, _ := currentData[field].([]any)
		merged, err := orchestrateSubEntityField(existing, proposed)
		if err != nil {
			return err
		}
		payload[field] = merged
	}
	return nil
}

// orchestrateSubEntityField applies the create/update/delete-by-myId
// semantics of §4.9 step 3's update/upsert path: an entry with myId
// and isDelete=true marks it deleted; an entry with myId merges onto
// the existing one; an entry with no myId is appended fresh.
func orchestrateSubEntityField(existing, proposed []any) ([]any, error) {
	byID := map[string]map[string]any{}
	var order []string
	for _, raw := range existing {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := m["myId"].(string)
		if id == "" {
			continue
		}
		byID[id] = m
		order = append(order, id)
	}

	for _, raw := range proposed {
		op, ok := raw.(map[string]any)
		if !ok {
			return nil, apperr.ValidationError("sub-entity operation must be an object")
		}

		id, hasID := op["myId"].(string)
		if hasID && id != "" {
			cur, exists := byID[id]
			if !exists {
				return nil, apperr.Unprocessable(fmt.Sprintf("sub-entity entry %q not found", id))
			}
			if del, _ := op["isDelete"].(bool); del {
				if deleted, _ := cur["isDeleted"].(bool); deleted {
					return nil, apperr.Unprocessable(fmt.Sprintf("sub-entity entry %q is already deleted", id))
				}
				cur["isDeleted"] = true
				byID[id] = cur
				continue
			}
			merged := shallowMergeLocal(cur, op)
			delete(merged, "isDelete")
			byID[id] = merged
			continue
		}

		newID := uuid.New()
		entry := shallowMergeLocal(op, map[string]any{"myId": newID, "isDeleted": false})
		delete(entry, "isDelete")
		byID[newID] = entry
		order = append(order, newID)
	}

	out := make([]any, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out, nil
}

// # No-op detection (§4.9 step 4, §8 invariant 2)

func noOpUpdate(current, proposed map[string]any) bool {
	if len(proposed) == 0 {
		return true
	}
	for k, v := range proposed {
		cur, ok := current[k]
		if !ok {
			return false
		}
		if !valuesEqual(cur, v) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
	}
	araw, aerr := json.Marshal(a)
	braw, berr := json.Marshal(b)
	return aerr == nil && berr == nil && string(araw) == string(braw)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func shallowMergeLocal(base, updates map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(updates))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range updates {
		out[k] = v
	}
	return out
}

func validateBulkSchema(deps *Deps, schemaName string, docs []map[string]any, required bool) error {
	switch blocked, err := deps.Schema.EnumWritesBlocked(schemaName); {
	case err != nil:
		return schema.ToAppError("Schema validation failed", []schema.FieldError{{Message: err.Error()}})
	case blocked:
		return apperr.Unprocessable("enum catalog refresh failed; writes to this enum-referencing schema are suspended until the next successful refresh")
	}

	errsByIdx := deps.Schema.ValidateBulk(schemaName, docs)
	if len(errsByIdx) == 0 {
		return nil
	}
	if !required {
		deps.Log.Warn("schema_validation_failed_non_blocking", "schema", schemaName)
		return nil
	}
	var flat []schema.FieldError
	for idx, errs := range errsByIdx {
		for _, e := range errs {
			flat = append(flat, schema.FieldError{Field: fmt.Sprintf("[%d].%s", idx, e.Field), Message: e.Message})
		}
	}
	return schema.ToAppError("Schema validation failed", flat)
}
