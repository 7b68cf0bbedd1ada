package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/repokit/internal/repoerr"
)

func TestCounters_Contract(t *testing.T) {
	c := NewCounters()
	ctx := context.Background()

	_, err := c.Increment(ctx, "a", 1)
	assert.True(t, repoerr.IsNotFound(err))

	require.NoError(t, c.Create(ctx, "a", 1))
	assert.True(t, repoerr.IsConflict(c.Create(ctx, "a", 1)))

	v, err := c.Increment(ctx, "a", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	v, err = c.Current(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)

	assert.Equal(t, []string{"increment a", "create a", "create a", "increment a", "current a"}, c.Calls())
}

func TestCounters_QueuedFailures(t *testing.T) {
	c := NewCounters()
	c.Set("a", 10)
	first, second := errors.New("first"), errors.New("second")
	c.FailIncrement(first, second)
	ctx := context.Background()

	_, err := c.Increment(ctx, "a", 1)
	assert.ErrorIs(t, err, first)
	_, err = c.Increment(ctx, "a", 1)
	assert.ErrorIs(t, err, second)

	v, err := c.Increment(ctx, "a", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)
}

func TestSeededRand_Deterministic(t *testing.T) {
	a, b := SeededRand(7), SeededRand(7)
	for range 10 {
		assert.Equal(t, a.Int64N(1000), b.Int64N(1000))
	}
}
