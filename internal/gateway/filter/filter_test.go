// Copyright (c) 2026 Sigma. All rights reserved.

package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

func mustDialect(t *testing.T) dialect.Dialect {
	t.Helper()
	d, err := dialect.Select("postgres", "")
	require.NoError(t, err)
	return d
}

func TestParse_ImplicitEquality(t *testing.T) {
	node, err := Parse(map[string]any{"status": "ACTIVE"})
	require.NoError(t, err)
	require.Equal(t, FieldCond, node.Kind)
	assert.Equal(t, "status", node.Field)
	assert.Equal(t, "eq", node.Operator)
}

func TestParse_DollarPrefixNormalized(t *testing.T) {
	node, err := Parse(map[string]any{"qty": map[string]any{"$gt": float64(5)}})
	require.NoError(t, err)
	assert.Equal(t, "gt", node.Operator)
}

func TestParse_RejectsUnknownOperator(t *testing.T) {
	_, err := Parse(map[string]any{"qty": map[string]any{"bogus": 1}})
	assert.Error(t, err)
}

func TestParse_RejectsInWithoutList(t *testing.T) {
	_, err := Parse(map[string]any{"qty": map[string]any{"in": 5}})
	assert.Error(t, err)
}

func TestParse_RejectsNotWithList(t *testing.T) {
	_, err := Parse(map[string]any{"not": []any{map[string]any{"a": 1}}})
	assert.Error(t, err)
}

func TestParse_RejectsLogicalWithNonArray(t *testing.T) {
	_, err := Parse(map[string]any{"and": map[string]any{"a": 1}})
	assert.Error(t, err)
}

func TestParse_AndArrayOfConditions(t *testing.T) {
	node, err := Parse(map[string]any{
		"and": []any{
			map[string]any{"status": "ACTIVE"},
			map[string]any{"qty": map[string]any{"gt": float64(1)}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, Logical, node.Kind)
	assert.Equal(t, "and", node.Operator)
	assert.Len(t, node.Children, 2)
}

func TestParse_Determinism(t *testing.T) {
	input := map[string]any{"status": "ACTIVE", "qty": map[string]any{"gt": float64(1)}, "name": "x"}
	n1, err := Parse(input)
	require.NoError(t, err)
	n2, err := Parse(input)
	require.NoError(t, err)

	d := mustDialect(t)
	r1, err := Translate(n1, d, "data", Options{})
	require.NoError(t, err)
	r2, err := Translate(n2, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, r1.WhereClause, r2.WhereClause)
	assert.Equal(t, r1.Params, r2.Params)
}

func TestValidate_EmptyConfigRejectsEverything(t *testing.T) {
	node, _ := Parse(map[string]any{"status": "ACTIVE"})
	errs := Validate(node, Config{})
	require.Len(t, errs, 1)
}

func TestValidate_ExhaustiveNotShortCircuit(t *testing.T) {
	node, err := Parse(map[string]any{"status": "ACTIVE", "nope": "x"})
	require.NoError(t, err)

	cfg := Config{Fields: map[string]FieldConfig{"status": {AllowedOperators: []string{"ne"}}}}
	errs := Validate(node, cfg)
	assert.Len(t, errs, 2, "status.eq not allowed AND nope is not in allowlist")
}

func TestValidate_IDAlwaysAllowsEq(t *testing.T) {
	node, err := Parse(map[string]any{"_id": "abc"})
	require.NoError(t, err)
	cfg := Config{Fields: map[string]FieldConfig{"status": {AllowedOperators: []string{"eq"}}}}
	errs := Validate(node, cfg)
	assert.Empty(t, errs)
}

func TestTranslate_EqAndComparison(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"status": "ACTIVE"})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, "data #>> '{status}' = $1", res.WhereClause)
	assert.Equal(t, []any{"ACTIVE"}, res.Params)
}

func TestTranslate_NumericComparisonCasts(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"qty": map[string]any{"gte": float64(3)}})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, "(data #>> '{qty}')::numeric >= $1", res.WhereClause)
}

func TestTranslate_InEmptyListIsFalse(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"status": map[string]any{"in": []any{}}})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, "FALSE", res.WhereClause)
}

func TestTranslate_NinEmptyListIsTrue(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"status": map[string]any{"nin": []any{}}})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, "TRUE", res.WhereClause)
}

func TestTranslate_ExistsFalseNegates(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"archivedAt": map[string]any{"exists": false}})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, "NOT jsonb_path_exists(data, '$.archivedAt')", res.WhereClause)
}

func TestTranslate_NorNegatesOr(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{
		"nor": []any{
			map[string]any{"status": "ACTIVE"},
			map[string]any{"status": "PENDING"},
		},
	})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Contains(t, res.WhereClause, "NOT (")
	assert.Contains(t, res.WhereClause, " OR ")
}

func TestTranslate_SortPreservesOrder(t *testing.T) {
	d := mustDialect(t)
	res, err := Translate(nil, d, "data", Options{Sort: []SortField{{Field: "name", Dir: 1}, {Field: "qty", Dir: -1}}})
	require.NoError(t, err)
	assert.Equal(t, "data #>> '{name}' ASC, data #>> '{qty}' DESC", res.OrderBy)
}

func TestTranslate_RegexEscapesWildcards(t *testing.T) {
	d := mustDialect(t)
	node, err := Parse(map[string]any{"name": map[string]any{"regex": "50%_off"}})
	require.NoError(t, err)

	res, err := Translate(node, d, "data", Options{})
	require.NoError(t, err)
	assert.Equal(t, []any{`%50\%\_off%`}, res.Params)
}
