// Copyright (c) 2026 Sigma. All rights reserved.

package filter

import (
	"fmt"
	"sort"

	"github.com/sigma-gateway/sigma/internal/gateway/filter/operators"
)

// Parse builds a filter tree from a decoded JSON filter map. Unknown
// operators and malformed shapes are rejected; every error found is
// returned together rather than stopping at the first one.
func Parse(input map[string]any) (*Node, error) {
	if len(input) == 0 {
		return nil, nil
	}

	nodes, errs := parseMap(input)
	if len(errs) > 0 {
		return nil, joinErrors(errs)
	}
	return wrapAnd(nodes), nil
}

func wrapAnd(nodes []*Node) *Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &Node{Kind: Logical, Operator: "and", Children: nodes}
}

// parseMap parses one filter object's keys. Keys are either reserved
// logical tokens or field names; results are returned in a stable,
// sorted order so that two structurally equal maps always parse to
// identical trees regardless of Go's randomized map iteration.
func parseMap(input map[string]any) ([]*Node, []error) {
	var nodes []*Node
	var errs []error

	for key, val := range input {
		norm := operators.Normalize(key)
		switch norm {
		case "and", "or", "nor":
			node, nodeErrs := parseLogicalArray(norm, val)
			errs = append(errs, nodeErrs...)
			if node != nil {
				nodes = append(nodes, node)
			}
		case "not":
			node, nodeErrs := parseNot(val)
			errs = append(errs, nodeErrs...)
			if node != nil {
				nodes = append(nodes, node)
			}
		default:
			fieldNodes, fieldErrs := parseField(key, val)
			nodes = append(nodes, fieldNodes...)
			errs = append(errs, fieldErrs...)
		}
	}

	sort.Slice(nodes, func(i, j int) bool { return nodeSortKey(nodes[i]) < nodeSortKey(nodes[j]) })
	return nodes, errs
}

func nodeSortKey(n *Node) string {
	return fmt.Sprintf("%d|%s|%s", n.Kind, n.Field, n.Operator)
}

func parseLogicalArray(op string, val any) (*Node, []error) {
	arr, ok := val.([]any)
	if !ok {
		return nil, []error{fmt.Errorf("%q requires an array of conditions, got %T", op, val)}
	}

	var errs []error
	var children []*Node
	for i, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Errorf("%q[%d]: each condition must be an object", op, i))
			continue
		}
		childNodes, childErrs := parseMap(m)
		errs = append(errs, childErrs...)
		if len(childNodes) > 0 {
			children = append(children, wrapAnd(childNodes))
		}
	}

	return &Node{Kind: Logical, Operator: op, Children: children}, errs
}

func parseNot(val any) (*Node, []error) {
	if _, isArray := val.([]any); isArray {
		return nil, []error{fmt.Errorf("%q must wrap a single condition object, not a list", "not")}
	}
	m, ok := val.(map[string]any)
	if !ok {
		return nil, []error{fmt.Errorf("%q requires a condition object, got %T", "not", val)}
	}

	childNodes, errs := parseMap(m)
	if len(childNodes) == 0 {
		return nil, errs
	}
	return &Node{Kind: Not, Children: []*Node{wrapAnd(childNodes)}}, errs
}

func parseField(field string, val any) ([]*Node, []error) {
	opsMap, ok := val.(map[string]any)
	if !ok {
		return []*Node{{Kind: FieldCond, Field: field, Operator: "eq", Value: val}}, nil
	}

	var nodes []*Node
	var errs []error
	for opToken, opVal := range opsMap {
		desc, ok := operators.Lookup(opToken)
		if !ok {
			errs = append(errs, fmt.Errorf("field %q: unknown operator %q", field, opToken))
			continue
		}
		if desc.Kind == operators.Logical {
			errs = append(errs, fmt.Errorf("field %q: %q is a logical operator, not valid on a field", field, opToken))
			continue
		}
		if err := validateOperatorShape(desc, opVal); err != nil {
			errs = append(errs, fmt.Errorf("field %q: %w", field, err))
			continue
		}
		nodes = append(nodes, &Node{Kind: FieldCond, Field: field, Operator: desc.Token, Value: opVal})
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Operator < nodes[j].Operator })
	return nodes, errs
}

func validateOperatorShape(desc operators.Descriptor, val any) error {
	switch desc.Token {
	case "in", "nin":
		if _, ok := val.([]any); !ok {
			return fmt.Errorf("%q requires a list, got %T", desc.Token, val)
		}
	case "exists":
		if _, ok := val.(bool); !ok {
			return fmt.Errorf("%q requires a boolean, got %T", desc.Token, val)
		}
	case "type":
		if _, ok := val.(string); !ok {
			return fmt.Errorf("%q requires a string type token, got %T", desc.Token, val)
		}
	}
	return nil
}

func joinErrors(errs []error) error {
	msg := "filter parse failed:"
	for _, e := range errs {
		msg += " " + e.Error() + ";"
	}
	return fmt.Errorf("%s", msg)
}
