package store

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *GormStore {
	t.Helper()
	s, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func taskItem(project, task, assignee string) Item {
	return Item{
		AttrPK:     "PROJECT#" + project,
		AttrSK:     "TASK#" + task,
		AttrGSI1PK: "ASSIGNEE#" + assignee,
		AttrGSI1SK: "TASK#" + task,
		"title":    "task " + task,
		"status":   "todo",
	}
}

func TestGormStore_PutGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	item := taskItem("p1", "t1", "a@x.io")
	item["estimatedHours"] = 4.5
	require.NoError(t, s.Put(ctx, item, Always))

	got, err := s.Get(ctx, Key{PK: "PROJECT#p1", SK: "TASK#t1"})
	require.NoError(t, err)
	assert.Equal(t, "task t1", got.Str("title"))
	assert.Equal(t, 4.5, got["estimatedHours"])

	_, err = s.Get(ctx, Key{PK: "PROJECT#p1", SK: "TASK#missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_PutConditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	item := taskItem("p1", "t1", "a@x.io")

	assert.ErrorIs(t, s.Put(ctx, item, MustExist), ErrPreconditionFailed)
	require.NoError(t, s.Put(ctx, item, MustNotExist))
	assert.ErrorIs(t, s.Put(ctx, item, MustNotExist), ErrPreconditionFailed)

	item["title"] = "renamed"
	require.NoError(t, s.Put(ctx, item, MustExist))
	got, err := s.Get(ctx, item.Key())
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Str("title"))
}

func TestGormStore_UpdateMissingFailsPrecondition(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Update(ctx, Key{PK: "PROJECT#gone", SK: "META"}, map[string]any{"name": "x"}, MustExist)
	assert.ErrorIs(t, err, ErrPreconditionFailed)

	// the failed update must not resurrect the item
	_, err = s.Get(ctx, Key{PK: "PROJECT#gone", SK: "META"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_UpdateMergesAndRemoves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, taskItem("p1", "t1", "a@x.io"), Always))

	updated, err := s.Update(ctx, Key{PK: "PROJECT#p1", SK: "TASK#t1"}, map[string]any{
		"status":   "in_review",
		"title":    nil,
		AttrGSI1PK: "ASSIGNEE#b@x.io",
	}, MustExist)
	require.NoError(t, err)
	assert.Equal(t, "in_review", updated.Str("status"))
	_, hasTitle := updated["title"]
	assert.False(t, hasTitle)

	// the index moves with the attribute
	page, err := s.Query(ctx, Query{Index: IndexGSI1, Partition: "ASSIGNEE#b@x.io"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	page, err = s.Query(ctx, Query{Index: IndexGSI1, Partition: "ASSIGNEE#a@x.io"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
}

func TestGormStore_UpdateRejectsKeyAttributes(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(context.Background(), Key{PK: "A", SK: "B"}, map[string]any{AttrSK: "C"}, Always)
	assert.Error(t, err)
}

func TestGormStore_DeleteConditions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := Key{PK: "PROJECT#p1", SK: "TASK#t1"}

	assert.ErrorIs(t, s.Delete(ctx, key, MustExist), ErrPreconditionFailed)
	assert.NoError(t, s.Delete(ctx, key, Always))

	require.NoError(t, s.Put(ctx, taskItem("p1", "t1", "a@x.io"), Always))
	require.NoError(t, s.Delete(ctx, key, MustExist))
	_, err := s.Get(ctx, key)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_QueryPrefixAndPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var items []Item
	for i := 0; i < 5; i++ {
		items = append(items, taskItem("p1", fmt.Sprintf("%02d", i), "a@x.io"))
	}
	items = append(items, Item{AttrPK: "PROJECT#p1", AttrSK: "META", "name": "P1"})
	items = append(items, taskItem("p2", "99", "a@x.io"))
	require.NoError(t, s.BatchWrite(ctx, items, WritePut))

	first, err := s.Query(ctx, Query{Partition: "PROJECT#p1", SortPrefix: "TASK#", Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotNil(t, first.LastKey)

	second, err := s.Query(ctx, Query{Partition: "PROJECT#p1", SortPrefix: "TASK#", Limit: 2, StartKey: first.LastKey})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	assert.NotEqual(t, first.Items[1].Str(AttrSK), second.Items[0].Str(AttrSK))

	all, err := QueryAll(ctx, s, Query{Partition: "PROJECT#p1", SortPrefix: "TASK#", Limit: 2})
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestGormStore_QueryPrefixEscapesWildcards(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, Item{AttrPK: "USER#a_b@x.io", AttrSK: "MEMBER#p1"}, Always))
	require.NoError(t, s.Put(ctx, Item{AttrPK: "USER#a_b@x.io", AttrSK: "MEMBERXp2"}, Always))

	page, err := s.Query(ctx, Query{Partition: "USER#a_b@x.io", SortPrefix: "MEMBER#"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
}

func TestGormStore_IndexPagination(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var items []Item
	for i := 0; i < 7; i++ {
		items = append(items, taskItem(fmt.Sprintf("p%d", i%3), fmt.Sprintf("%02d", i), "a@x.io"))
	}
	require.NoError(t, s.BatchWrite(ctx, items, WritePut))

	seen := map[string]bool{}
	q := Query{Index: IndexGSI1, Partition: "ASSIGNEE#a@x.io", SortPrefix: "TASK#", Limit: 3}
	for {
		page, err := s.Query(ctx, q)
		require.NoError(t, err)
		for _, it := range page.Items {
			assert.False(t, seen[it.Str(AttrSK)], "duplicate %s", it.Str(AttrSK))
			seen[it.Str(AttrSK)] = true
		}
		if page.LastKey == nil {
			break
		}
		assert.NotEmpty(t, page.LastKey.GSI1SK)
		q.StartKey = page.LastKey
	}
	assert.Len(t, seen, 7)
}

func TestGormStore_BatchGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BatchWrite(ctx, []Item{
		{AttrPK: "PROJECT#a", AttrSK: "META", "name": "A"},
		{AttrPK: "PROJECT#b", AttrSK: "META", "name": "B"},
	}, WritePut))

	items, err := s.BatchGet(ctx, []Key{
		{PK: "PROJECT#a", SK: "META"},
		{PK: "PROJECT#b", SK: "META"},
		{PK: "PROJECT#missing", SK: "META"},
	})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = s.BatchGet(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormStore_BatchWriteDeleteChunks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var items []Item
	for i := 0; i < 60; i++ {
		items = append(items, taskItem("p1", fmt.Sprintf("%03d", i), "a@x.io"))
	}
	require.NoError(t, s.BatchWrite(ctx, items, WritePut))

	all, err := QueryAll(ctx, s, Query{Partition: "PROJECT#p1"})
	require.NoError(t, err)
	require.Len(t, all, 60)

	require.NoError(t, s.BatchWrite(ctx, items, WriteDelete))
	all, err = QueryAll(ctx, s, Query{Partition: "PROJECT#p1"})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestGormStore_BatchWriteRejectsUnkeyedItems(t *testing.T) {
	s := newTestStore(t)
	err := s.BatchWrite(context.Background(), []Item{{AttrPK: "X"}}, WritePut)
	assert.Error(t, err)
	var batchErr *BatchError
	assert.False(t, errors.As(err, &batchErr))
}

func TestGormStore_ScanAllFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BatchWrite(ctx, []Item{
		{AttrPK: "PROJECT#a", AttrSK: "META", "deletedAt": "2026-01-01T00:00:00Z"},
		{AttrPK: "PROJECT#b", AttrSK: "META"},
		{AttrPK: "PROJECT#c", AttrSK: "META", "deletedAt": "2026-01-02T00:00:00Z"},
		{AttrPK: "PROJECT#a", AttrSK: "TASK#1", "deletedAt": "x"},
	}, WritePut))

	items, err := ScanAll(ctx, s, Scan{
		Filter: Filter{Equals: map[string]string{AttrSK: "META"}, Exists: []string{"deletedAt"}},
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "PROJECT#a", items[0].Str(AttrPK))
	assert.Equal(t, "PROJECT#c", items[1].Str(AttrPK))
}

func TestGormStore_ScanExistsCountsEmptyString(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BatchWrite(ctx, []Item{
		{AttrPK: "PROJECT#a", AttrSK: "META", "note": ""},
		{AttrPK: "PROJECT#b", AttrSK: "META"},
	}, WritePut))

	items, err := ScanAll(ctx, s, Scan{Filter: Filter{Exists: []string{"note"}}})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "PROJECT#a", items[0].Str(AttrPK))
}

func TestGormStore_Ping(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}
