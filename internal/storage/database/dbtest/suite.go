// Package dbtest holds the behavior every database.DB backend must share.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/LeJamon/goCustody/internal/storage/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises db against the database.DB contract. db must start empty.
func Run(t *testing.T, db database.DB) {
	ctx := context.Background()

	t.Run("ReadWriteDelete", func(t *testing.T) {
		key := []byte("rw-key")
		_, err := db.Read(ctx, key)
		require.ErrorIs(t, err, database.ErrKeyNotFound)

		require.NoError(t, db.Write(ctx, key, []byte("v1")))
		got, err := db.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		// Returned slices are owned by the caller
		got[0] = 'x'
		again, err := db.Read(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), again)

		require.NoError(t, db.Delete(ctx, key))
		_, err = db.Read(ctx, key)
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("Batch", func(t *testing.T) {
		require.NoError(t, db.Write(ctx, []byte("batch-old"), []byte("old")))

		ops := []database.BatchOperation{
			{Type: database.BatchPut, Key: []byte("batch-a"), Value: []byte("a")},
			{Type: database.BatchPut, Key: []byte("batch-b"), Value: []byte("b")},
			{Type: database.BatchDelete, Key: []byte("batch-old")},
		}
		require.NoError(t, db.Batch(ctx, ops))

		v, err := db.Read(ctx, []byte("batch-a"))
		require.NoError(t, err)
		assert.Equal(t, []byte("a"), v)
		_, err = db.Read(ctx, []byte("batch-old"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("BatchRejectsUnknownOp", func(t *testing.T) {
		ops := []database.BatchOperation{
			{Type: database.BatchPut, Key: []byte("bad-a"), Value: []byte("a")},
			{Type: database.BatchOpType(99), Key: []byte("bad-b")},
		}
		require.ErrorIs(t, db.Batch(ctx, ops), database.ErrUnknownBatchOp)

		_, err := db.Read(ctx, []byte("bad-a"))
		require.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("IteratorRange", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			key := []byte(fmt.Sprintf("iter-%d", i))
			require.NoError(t, db.Write(ctx, key, []byte{byte(i)}))
		}

		it, err := db.Iterator(ctx, []byte("iter-1"), []byte("iter-4"))
		require.NoError(t, err)
		defer it.Close()

		var keys []string
		for it.Next() {
			keys = append(keys, string(it.Key()))
			assert.Len(t, it.Value(), 1)
		}
		require.NoError(t, it.Error())
		assert.Equal(t, []string{"iter-1", "iter-2", "iter-3"}, keys)
	})
}
