package cron_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/absmach/dpsshare/pkg/cron"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		expr string
		err  error
	}{
		{name: "every five minutes", expr: "*/5 * * * *"},
		{name: "hourly", expr: "0 * * * *"},
		{name: "empty", expr: "", err: cron.ErrInvalidExpression},
		{name: "too few fields", expr: "* * *", err: cron.ErrInvalidExpression},
		{name: "garbage", expr: "not a cron", err: cron.ErrInvalidExpression},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := cron.Parse(tc.expr)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)

				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestNext(t *testing.T) {
	s, err := cron.Parse("*/15 * * * *")
	require.NoError(t, err)

	from := time.Date(2025, 3, 1, 10, 7, 30, 0, time.UTC)
	next := s.Next(from)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC), next)

	after := s.Next(next)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), after)
}
