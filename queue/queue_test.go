package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutGetRoundTrip(t *testing.T) {
	q := New[int](2)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, 1, time.Second))
	require.NoError(t, q.Put(ctx, 2, time.Second))

	v, err := q.Get(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Get(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestPutFullTimesOut(t *testing.T) {
	q := New[int](1)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, 1, time.Second))

	err := q.Put(ctx, 2, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrFull)
}

func TestGetEmptyTimesOut(t *testing.T) {
	q := New[int](1)
	ctx := context.Background()

	_, err := q.Get(ctx, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestGetUnblocksOnContextCancel(t *testing.T) {
	q := New[int](1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := q.Get(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSentinelNilIsAnOrdinaryValue(t *testing.T) {
	q := New[*int](1)
	ctx := context.Background()

	require.NoError(t, q.Put(ctx, nil, time.Second))
	v, err := q.Get(ctx, time.Second)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestBackpressureNoLoss(t *testing.T) {
	q := New[int](4)
	ctx := context.Background()

	const n = 1000
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < n; i++ {
			for {
				if err := q.Put(ctx, i, 10*time.Millisecond); err == nil {
					break
				}
			}
		}
	}()

	got := make([]int, 0, n)
	for len(got) < n {
		v, err := q.Get(ctx, 50*time.Millisecond)
		if err != nil {
			continue
		}
		got = append(got, v)
	}
	<-done

	require.Len(t, got, n)
	for i, v := range got {
		assert.Equal(t, i, v, "dispatch order must be preserved under backpressure")
	}
}
