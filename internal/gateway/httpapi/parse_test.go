// Copyright (c) 2026 Sigma. All rights reserved.

package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-gateway/sigma/internal/gateway/endpoint"
)

func readOnlyEndpoint() *endpoint.Endpoint {
	return &endpoint.Endpoint{WriteMethods: []string{"PATCH"}}
}

func postWriteEndpoint() *endpoint.Endpoint {
	return &endpoint.Endpoint{WriteMethods: []string{"POST"}}
}

func TestParse_FullCollectionRead(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindFullCollection, p.Kind)
	assert.Nil(t, p.Filter)
}

func TestParse_FilteredRead(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets?status=active&sort=-createdAt,name&limit=10&skip=5", nil)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindFiltered, p.Kind)
	require.NotNil(t, p.Filter)
	require.Len(t, p.Options.Sort, 2)
	assert.Equal(t, "createdAt", p.Options.Sort[0].Field)
	assert.Equal(t, -1, p.Options.Sort[0].Dir)
	assert.Equal(t, "name", p.Options.Sort[1].Field)
	assert.Equal(t, 1, p.Options.Sort[1].Dir)
	require.NotNil(t, p.Options.Limit)
	assert.Equal(t, 10, *p.Options.Limit)
	require.NotNil(t, p.Options.Skip)
	assert.Equal(t, 5, *p.Options.Skip)
}

func TestParse_SequenceRead(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets?sequence=42&bulkSize=100", nil)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindSequence, p.Kind)
	assert.Equal(t, int64(42), p.Sequence)
	assert.Equal(t, 100, p.BulkSize)
}

func TestParse_SequenceWithoutBulkSizeDefersToEndpoint(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets?sequence=0", nil)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindSequence, p.Kind)
	assert.Equal(t, -1, p.BulkSize)
}

func TestParse_SequenceRejectsNegative(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets?sequence=-1", nil)
	_, err := Parse(r, readOnlyEndpoint())
	require.Error(t, err)
}

func TestParse_PostAsFilteredReadWhenNotAWriteMethod(t *testing.T) {
	body := `{"filter":{"status":"active"},"sort":["name"],"limit":5}`
	r := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(body))
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindFiltered, p.Kind)
	require.NotNil(t, p.Options.Limit)
	assert.Equal(t, 5, *p.Options.Limit)
}

func TestParse_PostAsCreateSingleDocument(t *testing.T) {
	body := `{"title":"hello"}`
	r := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(body))
	p, err := Parse(r, postWriteEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindWrite, p.Kind)
	assert.Equal(t, OpCreate, p.Op)
	require.Len(t, p.Bulk, 1)
	assert.Equal(t, "hello", p.Bulk[0]["title"])
}

func TestParse_PostAsCreateBulkDocuments(t *testing.T) {
	body := `[{"title":"a"},{"title":"b"}]`
	r := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(body))
	p, err := Parse(r, postWriteEndpoint())
	require.NoError(t, err)
	assert.Equal(t, OpCreate, p.Op)
	require.Len(t, p.Bulk, 2)
}

func TestParse_PostAsCreateRejectsEmptyBody(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader(""))
	_, err := Parse(r, postWriteEndpoint())
	require.Error(t, err)
}

func TestParse_PostAsCreateRejectsEmptyBulk(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/widgets", strings.NewReader("[]"))
	_, err := Parse(r, postWriteEndpoint())
	require.Error(t, err)
}

func TestParse_PatchStripsReservedKeysFromPayload(t *testing.T) {
	body := `{"filter":{"status":"active"},"multi":true,"title":"updated"}`
	r := httptest.NewRequest(http.MethodPatch, "/api/widgets", strings.NewReader(body))
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, KindWrite, p.Kind)
	assert.Equal(t, OpUpdate, p.Op)
	assert.True(t, p.Multi)
	assert.Equal(t, map[string]any{"title": "updated"}, p.Payload)
	require.NotNil(t, p.Filter)
}

func TestParse_PutIsUpsert(t *testing.T) {
	body := `{"title":"replacement"}`
	r := httptest.NewRequest(http.MethodPut, "/api/widgets?status=active", strings.NewReader(body))
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, OpUpsert, p.Op)
	require.NotNil(t, p.Filter)
}

func TestParse_DeleteByQueryFilter(t *testing.T) {
	r := httptest.NewRequest(http.MethodDelete, "/api/widgets?status=archived&multi=true", nil)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, OpDelete, p.Op)
	assert.True(t, p.Multi)
	require.NotNil(t, p.Filter)
}

func TestParse_DeleteByBodyMyId(t *testing.T) {
	body := `{"myId":"sub-1"}`
	r := httptest.NewRequest(http.MethodDelete, "/api/widgets", strings.NewReader(body))
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	assert.Equal(t, OpDelete, p.Op)
	assert.Equal(t, "sub-1", p.Payload["myId"])
}

func TestParse_UnsupportedMethod(t *testing.T) {
	r := httptest.NewRequest(http.MethodOptions, "/api/widgets", nil)
	_, err := Parse(r, readOnlyEndpoint())
	require.Error(t, err)
}

func TestParse_IfMatchSetsExpectedVersion(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	r.Header.Set("If-Match", `"7"`)
	p, err := Parse(r, readOnlyEndpoint())
	require.NoError(t, err)
	require.NotNil(t, p.ExpectedVersion)
	assert.Equal(t, int64(7), *p.ExpectedVersion)
}

func TestParse_IfMatchRejectsNonInteger(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/widgets", nil)
	r.Header.Set("If-Match", "not-a-version")
	_, err := Parse(r, readOnlyEndpoint())
	require.Error(t, err)
}

func TestParseSortTokens(t *testing.T) {
	out := parseSortTokens([]string{" -age ", "+name", "", "city"})
	require.Len(t, out, 3)
	assert.Equal(t, "age", out[0].Field)
	assert.Equal(t, -1, out[0].Dir)
	assert.Equal(t, "name", out[1].Field)
	assert.Equal(t, 1, out[1].Dir)
	assert.Equal(t, "city", out[2].Field)
	assert.Equal(t, 1, out[2].Dir)
}

func TestQueryFilterMap_ExcludesReservedParams(t *testing.T) {
	q := map[string][]string{
		"status": {"active"},
		"sort":   {"name"},
		"limit":  {"10"},
		"skip":   {"0"},
		"multi":  {"true"},
	}
	out := queryFilterMap(q)
	assert.Equal(t, map[string]any{"status": "active"}, out)
}
