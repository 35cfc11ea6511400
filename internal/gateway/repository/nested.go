// Copyright (c) 2026 Sigma. All rights reserved.

package repository

import (
	"context"
	"strings"
)

// NestedItem is one element of a sub-entity array exposed as a virtual
// collection, together with the id of the parent document it lives in.
type NestedItem struct {
	ParentID int64
	Item     map[string]any
}

// FindNested loads parent documents matching where/params, then expands
// fatherPath (a dot path into data) into individual items, applying
// pagination over the flattened item list. Sub-entity filtering runs
// in application code rather than via the dialect's JSONArrayExpand SQL
// fragment: Oracle's JSON_TABLE and Postgres's jsonb_array_elements
// surface their expanded row under incompatible column shapes, and the
// document volumes a gateway endpoint handles do not justify chasing
// that parity — see the nested-endpoint decision in DESIGN.md.
func (r *Repository) FindNested(ctx context.Context, collection, fatherPath, where string, params []any, limit, offset *int) ([]NestedItem, error) {
	parents, err := r.Find(ctx, collection, where, "", nil, nil, params)
	if err != nil {
		return nil, err
	}

	var items []NestedItem
	segments := strings.Split(fatherPath, ".")
	for _, parent := range parents {
		arr, ok := navigateToArray(parent.Data, segments)
		if !ok {
			continue
		}
		for _, raw := range arr {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if deleted, _ := m["isDeleted"].(bool); deleted {
				continue
			}
			items = append(items, NestedItem{ParentID: parent.ID, Item: m})
		}
	}

	return paginate(items, limit, offset), nil
}

func navigateToArray(doc map[string]any, segments []string) ([]any, bool) {
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

func paginate(items []NestedItem, limit, offset *int) []NestedItem {
	start := 0
	if offset != nil && *offset > 0 {
		start = *offset
	}
	if start >= len(items) {
		return nil
	}
	end := len(items)
	if limit != nil && start+*limit < end {
		end = start + *limit
	}
	return items[start:end]
}
