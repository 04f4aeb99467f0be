package dataflow

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMapSequentialKeepsOrder(t *testing.T) {
	ctx := context.Background()
	res := Map(ctx, From(ctx, 1, 2, 3, 4), func(n int) (int, error) { return n * n, nil })

	var out []int
	assert.NoError(t, ForEach(ctx, res, func(n int) error {
		out = append(out, n)
		return nil
	}))
	assert.Equal(t, []int{1, 4, 9, 16}, out)
}

func TestMapWorkersRunConcurrently(t *testing.T) {
	ctx := context.Background()
	var inFlight, peak int32

	res := Map(ctx, From(ctx, 1, 2, 3, 4, 5, 6), func(n int) (int, error) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if cur <= p || atomic.CompareAndSwapInt32(&peak, p, cur) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return n, nil
	}, WithWorkers(3), WithBufferSize(6))

	var out []int
	assert.NoError(t, ForEach(ctx, res, func(n int) error {
		out = append(out, n)
		return nil
	}))
	sort.Ints(out)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, out)
	assert.Greater(t, atomic.LoadInt32(&peak), int32(1))
}

func TestForEachStopsOnError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	boom := errors.New("boom")
	var calls int
	err := ForEach(ctx, From(ctx, "a", "b", "c"), func(s string) error {
		calls++
		if s == "b" {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}

func TestForEachHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	never := make(chan int)
	err := ForEach(ctx, never, func(int) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}
