package storage_test

import (
	"context"
	"testing"

	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryCRUD(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	require.NoError(t, s.Create(ctx, "facility_0", "v1"))
	assert.ErrorIs(t, s.Create(ctx, "facility_0", "v2"), errors.ErrEntityExists)
	assert.ErrorIs(t, s.Create(ctx, "", "v"), errors.ErrEmptyKey)

	got, err := s.Get(ctx, "facility_0")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	require.NoError(t, s.Update(ctx, "facility_0", "v2"))
	assert.ErrorIs(t, s.Update(ctx, "missing", "v"), errors.ErrNotFound)

	require.NoError(t, s.Delete(ctx, "facility_0"))
	_, err = s.Get(ctx, "facility_0")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestInMemoryListStableOrder(t *testing.T) {
	ctx := context.Background()
	s := storage.NewInMemoryStorage()

	require.NoError(t, s.Create(ctx, "b", 2))
	require.NoError(t, s.Create(ctx, "a", 1))
	require.NoError(t, s.Create(ctx, "c", 3))

	items, total, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []any{1, 2, 3}, items)

	items, total, err = s.List(ctx, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Equal(t, []any{2}, items)

	items, _, err = s.List(ctx, 5, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}
