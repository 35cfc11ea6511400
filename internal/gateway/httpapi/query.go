// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"context"
	"fmt"

	"github.com/sigma-gateway/sigma/internal/gateway/document"
	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
	"github.com/sigma-gateway/sigma/internal/gateway/filter"
	"github.com/sigma-gateway/sigma/internal/gateway/repository"
	"github.com/sigma-gateway/sigma/internal/platform/apperr"
	"github.com/sigma-gateway/sigma/internal/platform/constants"
	"github.com/sigma-gateway/sigma/pkg/slice"
)

// ListResult is a full-collection or filtered read's payload: a flat
// list of response-ready document envelopes.
type ListResult struct {
	Documents []map[string]any
}

// SequenceResult is a sequence request's payload (§4.10).
type SequenceResult struct {
	Events      []document.ChangeEvent
	NextSeq     int64
	HasMore     bool
	EnrichField string // schema name used to enrich each event's Doc, if any
}

// ExecuteRead runs a full-collection or filtered read against deps,
// root or nested depending on ep.
func ExecuteRead(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed) (*ListResult, error) {
	cfg := ep.ReadFilterConfig
	if p.Filter != nil {
		if errs := filter.Validate(p.Filter, cfg); len(errs) > 0 {
			return nil, validationErrors(errs)
		}
	}

	res, err := filter.Translate(p.Filter, deps.Dialect, "data", p.Options)
	if err != nil {
		return nil, apperr.ValidationError(err.Error())
	}

	if ep.IsNested() {
		items, err := deps.Repo.FindNested(ctx, ep.Collection, ep.FatherDocument, res.WhereClause, res.Params, res.Limit, res.Offset)
		if err != nil {
			return nil, err
		}
		docs := slice.Map(items, func(item repository.NestedItem) map[string]any {
			return enrichDocument(deps, ep, item.Item)
		})
		return &ListResult{Documents: docs}, nil
	}

	rows, err := deps.Repo.Find(ctx, ep.Collection, res.WhereClause, res.OrderBy, res.Limit, res.Offset, res.Params)
	if err != nil {
		return nil, err
	}
	docs := slice.Map(rows, func(row *document.Document) map[string]any {
		return enrichDocument(deps, ep, row.Envelope())
	})
	return &ListResult{Documents: docs}, nil
}

// ExecuteSequence runs a change-feed page read (§4.8) and persists the
// resulting checkpoint on success.
func ExecuteSequence(ctx context.Context, deps *Deps, ep *endpoint.Endpoint, p *Parsed) (*SequenceResult, error) {
	if ep.IsNested() {
		return nil, apperr.Unprocessable("sequence pagination is not available on nested endpoints")
	}
	if p.Sequence < 0 {
		return nil, apperr.ValidationError("sequence must be >= 0")
	}

	bulkSize := p.BulkSize
	if bulkSize <= 0 {
		bulkSize = ep.DefaultBulkSize
	}
	if bulkSize < 1 || bulkSize > constants.MaxSequenceBulkSize {
		return nil, apperr.ValidationError(fmt.Sprintf("bulkSize must be between 1 and %d", constants.MaxSequenceBulkSize))
	}

	events, next, hasMore, err := deps.Repo.NextPageBySequence(ctx, ep.Collection, p.Sequence, bulkSize)
	if err != nil {
		return nil, err
	}

	schemaName := ""
	if ep.Schema != nil {
		schemaName = ep.Schema.Name
		for i := range events {
			events[i].Doc = deps.Schema.Enrich(schemaName, events[i].Doc)
		}
	}

	if err := deps.Repo.SaveCheckpoint(ctx, ep.Collection, next, ""); err != nil {
		return nil, err
	}

	return &SequenceResult{Events: events, NextSeq: next, HasMore: hasMore, EnrichField: schemaName}, nil
}

func enrichDocument(deps *Deps, ep *endpoint.Endpoint, doc map[string]any) map[string]any {
	if ep.Schema == nil {
		return doc
	}
	return deps.Schema.Enrich(ep.Schema.Name, doc)
}

func validationErrors(errs []error) error {
	details := make([]apperr.FieldError, len(errs))
	for i, e := range errs {
		details[i] = apperr.FieldError{Message: e.Error()}
	}
	return apperr.ValidationError("Filter validation failed", details...)
}
