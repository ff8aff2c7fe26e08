package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	for _, backend := range Backends {
		t.Run(backend, func(t *testing.T) {
			db, err := Open(ctx, backend, t.TempDir())
			require.NoError(t, err)
			defer db.Close()

			require.NoError(t, db.Write(ctx, []byte("k"), []byte("v")))
			got, err := db.Read(ctx, []byte("k"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), got)
		})
	}
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, "bolt", t.TempDir())
	assert.Error(t, err)

	_, err = Open(ctx, BackendPebble, "")
	assert.Error(t, err)

	assert.True(t, IsValidBackend("PEBBLE"))
	assert.False(t, IsValidBackend("redis"))
}
