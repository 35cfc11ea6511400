// Copyright (c) 2026 Sigma. All rights reserved.

package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelect_ExplicitOverrideWins(t *testing.T) {
	d, err := Select("oracle", "postgres://ignored")
	require.NoError(t, err)
	assert.Equal(t, KindOracle, d.Kind())
}

func TestSelect_InfersFromURLScheme(t *testing.T) {
	cases := []struct {
		url  string
		want Kind
	}{
		{"postgres://localhost/db", KindPostgres},
		{"postgresql://localhost/db", KindPostgres},
		{"oracle://localhost/db", KindOracle},
		{"h2:file:./data/sigma", KindH2},
	}

	for _, tc := range cases {
		d, err := Select("", tc.url)
		require.NoError(t, err, tc.url)
		assert.Equal(t, tc.want, d.Kind(), tc.url)
	}
}

func TestSelect_UnsupportedKindFailsFast(t *testing.T) {
	_, err := Select("mysql", "")
	assert.Error(t, err)
}

func TestSelect_MalformedURL(t *testing.T) {
	_, err := Select("", "://not a url")
	assert.Error(t, err)
}

func TestPostgresDialect_JSONFragments(t *testing.T) {
	d := newPostgresDialect()
	assert.Equal(t, "data #>> '{status}'", d.JSONExtractText("data", "status"))
	assert.Equal(t, "data #>> '{items,0,qty}'", d.JSONExtractText("data", "items.0.qty"))
	assert.Equal(t, "jsonb_path_exists(data, '$.email')", d.JSONExists("data", "email"))
	assert.Equal(t, "TRUE", d.BoolLiteral(true))
	assert.Equal(t, "is_deleted = FALSE", d.BoolColumnEq("is_deleted", false))
}

func TestOracleDialect_Pagination(t *testing.T) {
	d := newOracleDialect()
	limit, offset := 10, 20
	assert.Equal(t, " OFFSET 20 ROWS FETCH NEXT 10 ROWS ONLY", d.PaginationClause(&limit, &offset))
	assert.Equal(t, "0", d.BoolLiteral(false))
}

func TestH2Dialect_Pagination(t *testing.T) {
	d := newH2Dialect()
	offset := 5
	assert.Equal(t, " LIMIT -1 OFFSET 5", d.PaginationClause(nil, &offset))
}

func TestLikeEscape_NeutralizesWildcards(t *testing.T) {
	d := newPostgresDialect()
	escaped, clause := d.LikeEscape("50%_off")
	assert.Equal(t, `50\%\_off`, escaped)
	assert.Equal(t, `ESCAPE '\'`, clause)
}

func TestAllDialects_ImplementInterface(t *testing.T) {
	var ds []Dialect = []Dialect{newPostgresDialect(), newOracleDialect(), newH2Dialect()}
	for _, d := range ds {
		assert.NotEmpty(t, d.DriverName())
		assert.NotEmpty(t, d.DDLForDocumentsTable())
		assert.NotEmpty(t, d.DDLForSequenceTrigger())
		assert.NotEmpty(t, d.DDLForCheckpointsTable())
	}
}
