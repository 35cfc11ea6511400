// Copyright (c) 2026 Sigma. All rights reserved.

package repository

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigma-gateway/sigma/internal/platform/database/dialect"
)

// newTestRepository opens a fresh in-memory SQLite database through the
// already-grounded modernc.org/sqlite driver and applies the H2
// dialect's DDL, since H2 maps onto that driver in this port. This
// avoids pulling in a mocking library no example repo in the pack
// actually uses.
func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	d, err := dialect.Select("h2", "")
	require.NoError(t, err)

	for _, stmt := range d.DDLForDocumentsTable() {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	for _, stmt := range d.DDLForSequenceTrigger() {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	for _, stmt := range d.DDLForCheckpointsTable() {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	return New(db, d)
}

func TestRepository_InsertOneAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	id, err := repo.InsertOne(ctx, tx, "widgets", map[string]any{"name": "gizmo", "qty": float64(3)}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, int64(1), id)

	docs, err := repo.FindAll(ctx, "widgets")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "gizmo", docs[0].Data["name"])
	assert.Equal(t, int64(0), docs[0].Version)
}

func TestRepository_InsertManyIsAtomicWithinTx(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, err := repo.BeginTx(ctx)
	require.NoError(t, err)
	ids, err := repo.InsertMany(ctx, tx, "widgets", []map[string]any{
		{"name": "a"},
		{"name": "b"},
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestRepository_FindByIDs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	ids, err := repo.InsertMany(ctx, tx, "widgets", []map[string]any{
		{"name": "a"}, {"name": "b"}, {"name": "c"},
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	docs, err := repo.FindByIDs(ctx, "widgets", []int64{ids[0], ids[2]})
	require.NoError(t, err)
	require.Len(t, docs, 2)
}

func TestRepository_ApplyRowUpdateBumpsVersionAndGuardsOnExpectedVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	id, err := repo.InsertOne(ctx, tx, "widgets", map[string]any{"name": "gizmo", "qty": float64(3)}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, _ = repo.BeginTx(ctx)
	ok, err := repo.ApplyRowUpdate(ctx, tx, id, 0, map[string]any{"name": "gizmo", "qty": float64(9)}, "req-1", "bob")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, ok)

	docs, err := repo.FindByIDs(ctx, "widgets", []int64{id})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, float64(9), docs[0].Data["qty"])
	assert.Equal(t, int64(1), docs[0].Version)

	tx, _ = repo.BeginTx(ctx)
	defer tx.Rollback()
	ok, err = repo.ApplyRowUpdate(ctx, tx, id, 0, map[string]any{"qty": float64(99)}, "req-2", "bob")
	require.NoError(t, err)
	assert.False(t, ok, "stale expectedVersion must not match any row")
}

func TestRepository_ApplyRowDeleteIsSoftAndExcludedFromFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	id, err := repo.InsertOne(ctx, tx, "widgets", map[string]any{"name": "gizmo"}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	tx, _ = repo.BeginTx(ctx)
	ok, err := repo.ApplyRowDelete(ctx, tx, id, 0, "req-1", "bob")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
	assert.True(t, ok)

	docs, err := repo.FindAll(ctx, "widgets")
	require.NoError(t, err)
	assert.Empty(t, docs)

	raw, err := repo.FindRaw(ctx, "widgets", "id = ?", []any{id})
	require.NoError(t, err)
	require.Len(t, raw, 1)
	assert.True(t, raw[0].IsDeleted)
}

func TestRepository_NextPageBySequenceReportsHasMore(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	_, err := repo.InsertMany(ctx, tx, "widgets", []map[string]any{
		{"n": float64(1)}, {"n": float64(2)}, {"n": float64(3)},
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	events, next, hasMore, err := repo.NextPageBySequence(ctx, "widgets", 0, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.True(t, hasMore)
	assert.Equal(t, events[1].Sequence, next)

	events, _, hasMore, err = repo.NextPageBySequence(ctx, "widgets", next, 2)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.False(t, hasMore)
}

func TestRepository_CheckpointRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, _, found, err := repo.LoadCheckpoint(ctx, "widgets")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.SaveCheckpoint(ctx, "widgets", 5, "tok-5"))
	seq, token, found, err := repo.LoadCheckpoint(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(5), seq)
	assert.Equal(t, "tok-5", token)

	require.NoError(t, repo.SaveCheckpoint(ctx, "widgets", 9, "tok-9"))
	seq, token, found, err = repo.LoadCheckpoint(ctx, "widgets")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(9), seq)
	assert.Equal(t, "tok-9", token)
}

func TestRepository_FindNestedExpandsSubEntityArray(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	tx, _ := repo.BeginTx(ctx)
	_, err := repo.InsertOne(ctx, tx, "widgets", map[string]any{
		"name": "gizmo",
		"tags": []any{
			map[string]any{"myId": "t1", "label": "red"},
			map[string]any{"myId": "t2", "label": "blue", "isDeleted": true},
		},
	}, "alice")
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	items, err := repo.FindNested(ctx, "widgets", "tags", "", nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "red", items[0].Item["label"])
}
