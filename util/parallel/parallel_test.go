package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestForEachVisitsAll(t *testing.T) {
	for _, workers := range []int{1, 2, 7, 64} {
		seen := make([]int32, 1000)
		slots := make([]int, Workers(workers))

		err := ForEach(context.Background(), len(seen), workers, func(worker, idx int) error {
			atomic.AddInt32(&seen[idx], 1)
			slots[worker]++
			return nil
		})

		require.Nil(t, err)
		for idx := range seen {
			require.Equal(t, int32(1), seen[idx], "index %d with %d workers", idx, workers)
		}

		total := 0
		for _, count := range slots {
			total += count
		}
		require.Equal(t, len(seen), total)
	}
}

func TestForEachError(t *testing.T) {
	errStop := errors.New("stop")
	calls := int32(0)

	err := ForEach(context.Background(), 100000, 4, func(worker, idx int) error {
		atomic.AddInt32(&calls, 1)
		if idx == 10 {
			return errStop
		}

		return nil
	})

	require.Equal(t, errStop, err)
	require.True(t, atomic.LoadInt32(&calls) < 100000)
}

func TestForEachCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := int32(0)

	for _, workers := range []int{1, 4} {
		atomic.StoreInt32(&calls, 0)
		err := ForEach(ctx, 100000, workers, func(worker, idx int) error {
			if atomic.AddInt32(&calls, 1) == 50 {
				cancel()
			}

			return nil
		})

		require.Equal(t, context.Canceled, err)
		require.True(t, atomic.LoadInt32(&calls) < 100000)
	}
}

func TestSplit(t *testing.T) {
	seen := make([]int32, 1001)
	err := Split(context.Background(), len(seen), 8, func(worker, lo, hi int) error {
		require.True(t, worker < 8)
		for idx := lo; idx < hi; idx++ {
			atomic.AddInt32(&seen[idx], 1)
		}

		return nil
	})

	require.Nil(t, err)
	for idx := range seen {
		require.Equal(t, int32(1), seen[idx])
	}

	require.Nil(t, Split(context.Background(), 0, 8, func(worker, lo, hi int) error {
		t.Fatalf("should not be called")
		return nil
	}))
}

func TestWorkers(t *testing.T) {
	require.True(t, DefaultWorkers() >= 1)
	require.Equal(t, DefaultWorkers(), Workers(0))
	require.Equal(t, 3, Workers(3))
}
