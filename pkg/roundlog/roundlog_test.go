package roundlog_test

import (
	"context"
	"testing"
	"time"

	"github.com/absmach/dpsshare/pkg/errors"
	"github.com/absmach/dpsshare/pkg/roundlog"
	"github.com/absmach/dpsshare/round"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLog(t *testing.T) *roundlog.Log {
	t.Helper()
	l, err := roundlog.Open("")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, l.Close())
	})

	return l
}

func TestAppendGet(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	rec := round.Record{
		Round:     1,
		Decision:  round.Completed,
		Digest:    "abc123",
		Partials:  2,
		DecidedAt: time.Now().UTC(),
	}
	require.NoError(t, l.Append(ctx, rec))

	got, err := l.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, rec.Decision, got.Decision)
	assert.Equal(t, rec.Digest, got.Digest)

	_, err = l.Get(ctx, 2)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestAppendIsImmutable(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	require.NoError(t, l.Append(ctx, round.Record{Round: 3, Decision: round.Incomplete}))
	err := l.Append(ctx, round.Record{Round: 3, Decision: round.Completed})
	assert.ErrorIs(t, err, errors.ErrEntityExists)

	got, err := l.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, round.Incomplete, got.Decision)
}

func TestListAscending(t *testing.T) {
	ctx := context.Background()
	l := openLog(t)

	for r := uint64(1); r <= 5; r++ {
		require.NoError(t, l.Append(ctx, round.Record{Round: r, Decision: round.Completed}))
	}

	page, err := l.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), page.Total)
	require.Len(t, page.Records, 2)
	assert.Equal(t, uint64(2), page.Records[0].Round)
	assert.Equal(t, uint64(3), page.Records[1].Round)
}
