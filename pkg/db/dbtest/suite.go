// Package dbtest holds behavioural tests shared by every db.KVStore engine.
package dbtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/remitchain/pkg/db"
)

// Factory opens a fresh, empty store.
type Factory func(t *testing.T) db.KVStore

// Run exercises the KVStore contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, store db.KVStore)
	}{
		{name: "basic_put_get", fn: testBasicPutGet},
		{name: "delete_operations", fn: testDelete},
		{name: "basic_batch_operations", fn: testBasicBatchOperations},
		{name: "batch_commit_closure", fn: testBatchCommitAndClose},
		{name: "batch_discard", fn: testBatchDiscard},
		{name: "full_range_iteration", fn: testFullRangeIteration},
		{name: "bounded_range_iteration", fn: testBoundedRangeIteration},
		{name: "iterator_validity", fn: testIteratorValidity},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore(t)
			defer store.Close() //nolint:errcheck

			tc.fn(t, store)
		})
	}

	t.Run("store_closure", func(t *testing.T) {
		testStoreClosure(t, newStore(t))
	})
}

func testBasicPutGet(t *testing.T, store db.KVStore) {
	key := []byte("test-key")
	value := []byte("test-value")

	err := store.Put(key, value)
	require.NoError(t, err)

	retrieved, err := store.Get(key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)

	ok, err := store.Has(key)
	require.NoError(t, err)
	assert.True(t, ok)

	// Test non-existent key
	_, err = store.Get([]byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	ok, err = store.Has([]byte("non-existent"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func testDelete(t *testing.T, store db.KVStore) {
	key := []byte("delete-test")
	value := []byte("to-be-deleted")

	err := store.Put(key, value)
	require.NoError(t, err)

	err = store.Delete(key)
	require.NoError(t, err)

	_, err = store.Get(key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// Delete non-existent key should not error
	err = store.Delete([]byte("non-existent"))
	assert.NoError(t, err)
}

func testStoreClosure(t *testing.T, store db.KVStore) {
	err := store.Close()
	require.NoError(t, err)

	_, err = store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Put([]byte("key"), []byte("value"))
	assert.ErrorIs(t, err, db.ErrClosed)

	err = store.Delete([]byte("key"))
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = store.NewIterator(nil, nil)
	assert.ErrorIs(t, err, db.ErrClosed)

	// Double close should not error
	err = store.Close()
	assert.NoError(t, err)
}

func testBasicBatchOperations(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	defer batch.Close() //nolint:errcheck

	keys := [][]byte{[]byte("key1"), []byte("key2"), []byte("key3")}
	values := [][]byte{[]byte("value1"), []byte("value2"), []byte("value3")}

	for i := range keys {
		err := batch.Put(keys[i], values[i])
		require.NoError(t, err)
	}

	// Nothing is visible before commit
	_, err := store.Get(keys[0])
	assert.ErrorIs(t, err, db.ErrNotFound)

	err = batch.Delete(keys[1])
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	val1, err := store.Get(keys[0])
	require.NoError(t, err)
	assert.Equal(t, values[0], val1)

	_, err = store.Get(keys[1])
	assert.ErrorIs(t, err, db.ErrNotFound)

	val3, err := store.Get(keys[2])
	require.NoError(t, err)
	assert.Equal(t, values[2], val3)
}

func testBatchCommitAndClose(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()

	err := batch.Put([]byte("key"), []byte("value"))
	require.NoError(t, err)

	err = batch.Commit()
	require.NoError(t, err)

	// Operations after commit should fail
	err = batch.Put([]byte("key2"), []byte("value2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	err = batch.Delete([]byte("key2"))
	assert.ErrorIs(t, err, db.ErrBatchDone)

	err = batch.Commit()
	assert.ErrorIs(t, err, db.ErrBatchDone)

	// Close should not error, even twice
	assert.NoError(t, batch.Close())
	assert.NoError(t, batch.Close())
}

func testBatchDiscard(t *testing.T, store db.KVStore) {
	batch := store.NewBatch()
	require.NoError(t, batch.Put([]byte("key"), []byte("value")))
	require.NoError(t, batch.Close())

	_, err := store.Get([]byte("key"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	assert.ErrorIs(t, batch.Commit(), db.ErrBatchDone)
}

func collect(t *testing.T, iter db.Iterator) map[string]string {
	out := make(map[string]string)
	var previous []byte
	for iter.Next() {
		value, err := iter.Value()
		require.NoError(t, err)
		key := iter.Key()
		if previous != nil {
			assert.Less(t, string(previous), string(key), "keys must be ascending")
		}
		previous = key
		out[string(key)] = string(value)
	}
	return out
}

func testFullRangeIteration(t *testing.T, store db.KVStore) {
	data := map[string]string{
		"a": "value-a",
		"b": "value-b",
		"c": "value-c",
		"d": "value-d",
	}
	for k, v := range data {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	assert.Equal(t, data, collect(t, iter))
}

func testBoundedRangeIteration(t *testing.T, store db.KVStore) {
	data := map[string]string{
		"a": "value-a",
		"b": "value-b",
		"c": "value-c",
		"d": "value-d",
		"e": "value-e",
	}
	for k, v := range data {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	iter, err := store.NewIterator([]byte("b"), []byte("e"))
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	expected := map[string]string{
		"b": "value-b",
		"c": "value-c",
		"d": "value-d",
	}
	assert.Equal(t, expected, collect(t, iter))
}

func testIteratorValidity(t *testing.T, store db.KVStore) {
	testData := map[string]string{
		"key1": "value1",
		"key2": "value2",
	}
	for k, v := range testData {
		require.NoError(t, store.Put([]byte(k), []byte(v)))
	}

	iter, err := store.NewIterator(nil, nil)
	require.NoError(t, err)
	defer iter.Close() //nolint:errcheck

	// Initial state - iterator is not positioned
	assert.False(t, iter.Valid())

	assert.True(t, iter.Next())
	assert.True(t, iter.Valid())
	assert.Equal(t, "key1", string(iter.Key()))

	assert.True(t, iter.Next())
	assert.True(t, iter.Valid())
	val, err := iter.Value()
	require.NoError(t, err)
	assert.Equal(t, "value2", string(val))

	// No more elements, and it stays exhausted
	assert.False(t, iter.Next())
	assert.False(t, iter.Valid())
	assert.False(t, iter.Next())

	_, err = iter.Value()
	assert.ErrorIs(t, err, db.ErrIteratorInvalid)
}
