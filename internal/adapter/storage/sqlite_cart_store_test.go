package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteCartStore(t *testing.T) {
	store, err := OpenSQLiteCartStore(filepath.Join(t.TempDir(), "carts.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	data, err := store.LoadCart(ctx, "scg_cart_a")
	require.NoError(t, err)
	assert.Nil(t, data)

	require.NoError(t, store.SaveCart(ctx, "scg_cart_a", []byte(`[{"id":"1","qty":1}]`)))
	require.NoError(t, store.SaveCart(ctx, "scg_cart_a", []byte(`[{"id":"1","qty":2}]`)))
	require.NoError(t, store.SaveCart(ctx, "scg_cart_b", []byte(`[]`)))

	data, err = store.LoadCart(ctx, "scg_cart_a")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","qty":2}]`, string(data))

	require.NoError(t, store.RemoveCart(ctx, "scg_cart_a"))
	data, err = store.LoadCart(ctx, "scg_cart_a")
	require.NoError(t, err)
	assert.Nil(t, data)

	data, err = store.LoadCart(ctx, "scg_cart_b")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}
