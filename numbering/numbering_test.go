package numbering_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/numbering"
)

type counters struct {
	mu     sync.Mutex
	values map[string]int64
}

func (c *counters) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key]++
	return c.values[key], nil
}

func fixedClock(year int) func() time.Time {
	return func() time.Time { return time.Date(year, 7, 1, 0, 0, 0, 0, time.UTC) }
}

func TestIssueFormat(t *testing.T) {
	svc := numbering.New(&counters{values: map[string]int64{}}, numbering.WithClock(fixedClock(2024)))
	ctx := context.Background()

	n, err := svc.Issue(ctx, numbering.KindEstimate)
	require.NoError(t, err)
	assert.Equal(t, "EST-2024-0001", n)

	n, err = svc.Issue(ctx, numbering.KindEstimate)
	require.NoError(t, err)
	assert.Equal(t, "EST-2024-0002", n)

	n, err = svc.Issue(ctx, numbering.KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, "INV-2024-0001", n, "each kind has its own counter")

	assert.Equal(t, "CTR-2025-12345", numbering.Format(numbering.KindContract, 2025, 12345, 4))

	kind, year, seq, err := numbering.Parse("INV-2024-0042")
	require.NoError(t, err)
	assert.Equal(t, numbering.KindInvoice, kind)
	assert.Equal(t, 2024, year)
	assert.Equal(t, int64(42), seq)

	_, _, _, err = numbering.Parse("INV-42")
	assert.Error(t, err)
}

func TestYearRollover(t *testing.T) {
	backend := &counters{values: map[string]int64{}}
	year := 2024
	svc := numbering.New(backend, numbering.WithClock(func() time.Time { return fixedClock(year)() }))

	_, err := svc.Issue(context.Background(), numbering.KindContract)
	require.NoError(t, err)

	year = 2025
	n, err := svc.Issue(context.Background(), numbering.KindContract)
	require.NoError(t, err)
	assert.Equal(t, "CTR-2025-0001", n)
}

func TestBackendFailureIsFatal(t *testing.T) {
	calls := 0
	backend := numbering.BackendFunc(func(context.Context, string) (int64, error) {
		calls++
		return 0, errors.New("connection refused")
	})
	svc := numbering.New(backend)

	_, err := svc.Issue(context.Background(), numbering.KindEstimate)
	require.ErrorIs(t, err, numbering.ErrUnavailable)
	assert.Equal(t, 1, calls, "failures are not retried")
}

func TestConcurrentIssueIsUnique(t *testing.T) {
	svc := numbering.New(&counters{values: map[string]int64{}}, numbering.WithClock(fixedClock(2024)))

	const n = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.Issue(context.Background(), numbering.KindInvoice)
			require.NoError(t, err)
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}
