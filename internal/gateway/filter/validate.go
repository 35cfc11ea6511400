// Copyright (c) 2026 Sigma. All rights reserved.

package filter

import "errors"

// Validate traverses node against cfg. It is exhaustive: every
// violation is collected, not just the first. An empty Config rejects
// every node with a single explanatory error.
func Validate(node *Node, cfg Config) []error {
	if len(cfg.Fields) == 0 {
		return []error{errors.New("Filtering is not enabled for this endpoint")}
	}
	if node == nil {
		return nil
	}

	var errs []error
	validateNode(node, cfg, &errs)
	return errs
}

func validateNode(n *Node, cfg Config, errs *[]error) {
	switch n.Kind {
	case Logical, Not:
		for _, child := range n.Children {
			validateNode(child, cfg, errs)
		}
	case FieldCond:
		if !cfg.allows(n.Field, n.Operator) {
			*errs = append(*errs, fieldNotAllowedError(n))
		}
	}
}

func fieldNotAllowedError(n *Node) error {
	if n.Field == "_id" {
		return errors.New("_id only supports the eq operator")
	}
	return errors.New("field " + quote(n.Field) + " does not permit operator " + quote(n.Operator))
}

func quote(s string) string { return "\"" + s + "\"" }
