// Copyright (c) 2026 Sigma. All rights reserved.

package filter

import (
	"fmt"
	"strings"

	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

// Translate emits a dialect-specific Result from an already-validated
// tree. It never inspects cfg again — Validate is assumed to have run.
// The same tree and dialect always produce byte-identical SQL: every
// source of iteration-order nondeterminism was removed at parse time.
func Translate(node *Node, d dialect.Dialect, col string, opts Options) (*Result, error) {
	var b strings.Builder
	var params []any

	if node != nil {
		if err := translateNode(node, d, col, &b, &params); err != nil {
			return nil, err
		}
	}

	res := &Result{
		WhereClause: b.String(),
		Params:      params,
		Limit:       opts.Limit,
		Offset:      opts.Skip,
		Projection:  opts.Projection,
	}
	res.OrderBy = buildOrderBy(d, col, opts.Sort)
	return res, nil
}

func buildOrderBy(d dialect.Dialect, col string, sort []SortField) string {
	if len(sort) == 0 {
		return ""
	}
	parts := make([]string, len(sort))
	for i, s := range sort {
		dir := "ASC"
		if s.Dir < 0 {
			dir = "DESC"
		}
		parts[i] = fmt.Sprintf("%s %s", d.JSONExtractText(col, s.Field), dir)
	}
	return strings.Join(parts, ", ")
}

func translateNode(n *Node, d dialect.Dialect, col string, b *strings.Builder, params *[]any) error {
	switch n.Kind {
	case Logical:
		return translateLogical(n, d, col, b, params)
	case Not:
		b.WriteString("NOT (")
		if err := translateNode(n.Children[0], d, col, b, params); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case FieldCond:
		return translateField(n, d, col, b, params)
	default:
		return fmt.Errorf("filter: unknown node kind %d", n.Kind)
	}
}

func translateLogical(n *Node, d dialect.Dialect, col string, b *strings.Builder, params *[]any) error {
	if len(n.Children) == 0 {
		b.WriteString(d.BoolLiteral(true))
		return nil
	}

	joiner := " AND "
	negateWhole := false
	switch n.Operator {
	case "and":
		joiner = " AND "
	case "or":
		joiner = " OR "
	case "nor":
		joiner = " OR "
		negateWhole = true
	default:
		return fmt.Errorf("filter: unknown logical operator %q", n.Operator)
	}

	if negateWhole {
		b.WriteString("NOT (")
	} else {
		b.WriteString("(")
	}
	for i, child := range n.Children {
		if i > 0 {
			b.WriteString(joiner)
		}
		if err := translateNode(child, d, col, b, params); err != nil {
			return err
		}
	}
	b.WriteString(")")
	return nil
}

func translateField(n *Node, d dialect.Dialect, col string, b *strings.Builder, params *[]any) error {
	extractText := d.JSONExtractText(col, n.Field)

	switch n.Operator {
	case "eq", "ne":
		placeholder := nextPlaceholder(d, params)
		expr := extractText
		if isNumeric(n.Value) {
			expr = d.NumericCast(expr)
		}
		op := "="
		if n.Operator == "ne" {
			op = "<>"
		}
		fmt.Fprintf(b, "%s %s %s", expr, op, placeholder)
		*params = append(*params, n.Value)
		return nil

	case "gt", "gte", "lt", "lte":
		placeholder := nextPlaceholder(d, params)
		sqlOp := map[string]string{"gt": ">", "gte": ">=", "lt": "<", "lte": "<="}[n.Operator]
		fmt.Fprintf(b, "%s %s %s", d.NumericCast(extractText), sqlOp, placeholder)
		*params = append(*params, n.Value)
		return nil

	case "in", "nin":
		return translateMembership(n, d, extractText, b, params)

	case "regex":
		value, ok := n.Value.(string)
		if !ok {
			return fmt.Errorf("filter: regex value for field %q must be a string", n.Field)
		}
		escaped, escapeClause := d.LikeEscape(value)
		placeholder := nextPlaceholder(d, params)
		fmt.Fprintf(b, "%s LIKE %s %s", extractText, placeholder, escapeClause)
		*params = append(*params, "%"+escaped+"%")
		return nil

	case "exists":
		want, _ := n.Value.(bool)
		pred := d.JSONExists(col, n.Field)
		if want {
			b.WriteString(pred)
		} else {
			fmt.Fprintf(b, "NOT %s", pred)
		}
		return nil

	case "type":
		placeholder := nextPlaceholder(d, params)
		fmt.Fprintf(b, "%s = %s", d.JSONType(col, n.Field), placeholder)
		*params = append(*params, n.Value)
		return nil

	default:
		return fmt.Errorf("filter: unknown field operator %q", n.Operator)
	}
}

func translateMembership(n *Node, d dialect.Dialect, extractText string, b *strings.Builder, params *[]any) error {
	values, ok := n.Value.([]any)
	if !ok {
		return fmt.Errorf("filter: %q value for field %q must be a list", n.Operator, n.Field)
	}

	if len(values) == 0 {
		if n.Operator == "in" {
			b.WriteString(d.BoolLiteral(false))
		} else {
			b.WriteString(d.BoolLiteral(true))
		}
		return nil
	}

	expr := extractText
	if isNumeric(values[0]) {
		expr = d.NumericCast(expr)
	}

	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = nextPlaceholder(d, params)
		*params = append(*params, v)
	}

	keyword := "IN"
	if n.Operator == "nin" {
		keyword = "NOT IN"
	}
	fmt.Fprintf(b, "%s %s (%s)", expr, keyword, strings.Join(placeholders, ", "))
	return nil
}

func nextPlaceholder(d dialect.Dialect, params *[]any) string {
	return d.Placeholder(len(*params) + 1)
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int, int32, int64, float32, float64:
		return true
	default:
		return false
	}
}
