package sequence

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{counters: make(map[string]int64)}
}

func (s *memoryStore) Next(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func TestNextConcurrentDistinctAndGapless(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	const n = 100
	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := svc.Next(ctx, CounterOrders)
			require.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	var values []int64
	for v := range results {
		values = append(values, v)
	}
	require.Len(t, values, n)
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	for i, v := range values {
		require.Equal(t, int64(i+1), v, "expected gapless, duplicate-free sequence")
	}
}

func TestCountersAreIndependent(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	ctx := context.Background()

	v1, err := svc.Next(ctx, CounterOrders)
	require.NoError(t, err)
	v2, err := svc.Next(ctx, CounterPurchaseRequests)
	require.NoError(t, err)
	require.Equal(t, int64(1), v1)
	require.Equal(t, int64(1), v2)
}

func TestNextNumberFormat(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC) }

	num, err := svc.NextNumber(context.Background(), CounterOrders, PrefixOrder)
	require.NoError(t, err)
	require.Equal(t, "ORD-2026-0001", num)

	num, err = svc.NextNumber(context.Background(), CounterOrders, PrefixOrder)
	require.NoError(t, err)
	require.Equal(t, "ORD-2026-0002", num)
}
