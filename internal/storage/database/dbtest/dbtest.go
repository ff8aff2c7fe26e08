// Package dbtest holds a conformance suite run against every database.DB
// backend.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeJamon/goLoRaRouter/internal/storage/database"
)

// Opener creates a fresh, empty database for one subtest.
type Opener func(t *testing.T) database.DB

// Run exercises the database.DB contract.
func Run(t *testing.T, open Opener) {
	ctx := context.Background()

	t.Run("ReadWriteDelete", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		_, err := db.Read(ctx, []byte("missing"))
		assert.ErrorIs(t, err, database.ErrKeyNotFound)

		require.NoError(t, db.Write(ctx, []byte("k1"), []byte("v1")))
		got, err := db.Read(ctx, []byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), got)

		require.NoError(t, db.Write(ctx, []byte("k1"), []byte("v2")))
		got, err = db.Read(ctx, []byte("k1"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), got)

		require.NoError(t, db.Delete(ctx, []byte("k1")))
		_, err = db.Read(ctx, []byte("k1"))
		assert.ErrorIs(t, err, database.ErrKeyNotFound)
	})

	t.Run("Batch", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		require.NoError(t, db.Write(ctx, []byte("gone"), []byte("x")))
		ops := []database.BatchOperation{
			{Type: database.BatchPut, Key: []byte("a"), Value: []byte("1")},
			{Type: database.BatchPut, Key: []byte("b"), Value: []byte("2")},
			{Type: database.BatchDelete, Key: []byte("gone")},
		}
		require.NoError(t, db.Batch(ctx, ops))

		for k, v := range map[string]string{"a": "1", "b": "2"} {
			got, err := db.Read(ctx, []byte(k))
			require.NoError(t, err)
			assert.Equal(t, v, string(got))
		}
		_, err := db.Read(ctx, []byte("gone"))
		assert.ErrorIs(t, err, database.ErrKeyNotFound)

		bad := []database.BatchOperation{{Type: database.BatchOpType(9), Key: []byte("c")}}
		assert.ErrorIs(t, db.Batch(ctx, bad), database.ErrBatchOperationFailed)
	})

	t.Run("Iterator", func(t *testing.T) {
		db := open(t)
		defer db.Close()

		for i := 0; i < 5; i++ {
			require.NoError(t, db.Write(ctx, []byte(fmt.Sprintf("p/%d", i)), []byte{byte(i)}))
		}
		require.NoError(t, db.Write(ctx, []byte("q/0"), []byte{9}))

		prefix := []byte("p/")
		assert.Equal(t, []string{"p/0", "p/1", "p/2", "p/3", "p/4"}, collect(t, db, prefix, database.PrefixEnd(prefix)))
		assert.Equal(t, []string{"p/1", "p/2"}, collect(t, db, []byte("p/1"), []byte("p/3")))
		assert.Len(t, collect(t, db, nil, nil), 6)
		assert.Empty(t, collect(t, db, []byte("r/"), nil))
	})

	t.Run("Closed", func(t *testing.T) {
		db := open(t)
		require.NoError(t, db.Close())

		_, err := db.Read(ctx, []byte("k"))
		assert.ErrorIs(t, err, database.ErrDBClosed)
		assert.ErrorIs(t, db.Write(ctx, []byte("k"), []byte("v")), database.ErrDBClosed)
		_, err = db.Iterator(ctx, nil, nil)
		assert.ErrorIs(t, err, database.ErrDBClosed)
	})
}

func collect(t *testing.T, db database.DB, start, end []byte) []string {
	t.Helper()
	it, err := db.Iterator(context.Background(), start, end)
	require.NoError(t, err)
	defer it.Close()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		require.NotNil(t, it.Value())
	}
	require.NoError(t, it.Error())
	return keys
}
