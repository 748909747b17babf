package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ziadkadry99/jsonstore/internal/db"
)

func setupSQLiteKV(t *testing.T, namespace string) (*SQLiteKV, *db.DB) {
	t.Helper()
	database, err := db.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewSQLiteKV(database, namespace), database
}

func TestKVImplementations(t *testing.T) {
	sqliteKV, _ := setupSQLiteKV(t, "visitor-1")
	impls := map[string]KV{
		"sqlite": sqliteKV,
		"memory": NewMemoryKV(),
	}

	for name, kv := range impls {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := kv.GetItem(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.SetItem(ctx, "k", []byte("one")))
			require.NoError(t, kv.SetItem(ctx, "k", []byte("two")))
			got, err := kv.GetItem(ctx, "k")
			require.NoError(t, err)
			assert.Equal(t, "two", string(got))

			require.NoError(t, kv.RemoveItem(ctx, "k"))
			_, err = kv.GetItem(ctx, "k")
			assert.ErrorIs(t, err, ErrNotFound)

			// Removing twice is fine.
			assert.NoError(t, kv.RemoveItem(ctx, "k"))
		})
	}
}

func TestSQLiteKVNamespaces(t *testing.T) {
	ctx := context.Background()
	a, database := setupSQLiteKV(t, "a")
	b := NewSQLiteKV(database, "b")

	require.NoError(t, a.SetItem(ctx, "cart", []byte("x")))

	_, err := b.GetItem(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "b", b.Namespace())
}

func TestCollectionSaveIsUpsert(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := NewCollection(kv, "cart")

	require.NoError(t, c.Save(ctx, "a1", []byte(`{"id":"a1","quantity":2}`)))
	require.NoError(t, c.Save(ctx, "b2", []byte(`{"id":"b2","quantity":1}`)))
	require.NoError(t, c.Save(ctx, "a1", []byte(`{"id":"a1","quantity":5}`)))

	index, err := kv.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "a1,b2", string(index))

	rec, err := c.Find(ctx, "a1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","quantity":5}`, string(rec))

	all, err := c.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.JSONEq(t, `{"id":"a1","quantity":5}`, string(all[0]))
	assert.JSONEq(t, `{"id":"b2","quantity":1}`, string(all[1]))
}

func TestCollectionDestroy(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	c := NewCollection(kv, "cart")

	require.NoError(t, c.Save(ctx, "a1", []byte(`{}`)))
	require.NoError(t, c.Save(ctx, "b2", []byte(`{}`)))
	require.NoError(t, c.Destroy(ctx, "a1"))

	_, err := c.Find(ctx, "a1")
	assert.ErrorIs(t, err, ErrNotFound)

	index, err := kv.GetItem(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "b2", string(index))

	require.NoError(t, c.Destroy(ctx, "not-there"))
}

func TestCollectionRejectsBadIDs(t *testing.T) {
	kv := NewMemoryKV()
	c := NewCollection(kv, "cart")
	assert.ErrorIs(t, c.Save(context.Background(), "", []byte(`{}`)), ErrInvalidID)
	assert.ErrorIs(t, c.Save(context.Background(), "a,b", []byte(`{}`)), ErrInvalidID)
	assert.Equal(t, 0, kv.Len())
}

func TestCollectionFindAllSkipsOrphanedIndexEntries(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.SetItem(ctx, "cart", []byte("gone,kept")))
	require.NoError(t, kv.SetItem(ctx, "cart-kept", []byte(`{"id":"kept"}`)))

	all, err := NewCollection(kv, "cart").FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, `{"id":"kept"}`, string(all[0]))
}

func TestCollectionSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	kv, database := setupSQLiteKV(t, "visitor")
	require.NoError(t, NewCollection(kv, "cart").Save(ctx, "a1", []byte(`{"id":"a1","quantity":3}`)))

	reopened := NewCollection(NewSQLiteKV(database, "visitor"), "cart")
	all, err := reopened.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.JSONEq(t, `{"id":"a1","quantity":3}`, string(all[0]))
}
