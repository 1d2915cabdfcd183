package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingBufferBoundsBorrowers(t *testing.T) {

	pool := NewTypedRingBuffer(2, func() []int { return make([]int, 4) })
	require.Equal(t, 2, pool.Size())

	ctx := context.Background()

	a, idA, err := pool.Get(ctx)
	require.NoError(t, err)
	_, _, err = pool.Get(ctx)
	require.NoError(t, err)
	assert.Len(t, a, 4)
	assert.Equal(t, 0, pool.Available())

	timeout, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()

	_, _, err = pool.Get(timeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	pool.Return(idA)
	assert.Equal(t, 1, pool.Available())

	again, idAgain, err := pool.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, idA, idAgain)
	assert.Same(t, &a[0], &again[0])
}

func TestRingBufferSize(t *testing.T) {
	assert.Panics(t, func() {
		NewTypedRingBuffer(0, func() int { return 0 })
	})
}
