package redis_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/numbering/redis"
)

func newBackend(t *testing.T) (*miniredis.Miniredis, *redis.Backend) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redis.New(client)
}

func TestIncrementUsesPrefixedKey(t *testing.T) {
	mr, backend := newBackend(t)
	ctx := context.Background()

	n, err := backend.Increment(ctx, "EST:2024")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = backend.Increment(ctx, "EST:2024")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := mr.Get("salesdoc:seq:EST:2024")
	require.NoError(t, err)
	assert.Equal(t, "2", got)
}

func TestServiceOverRedis(t *testing.T) {
	_, backend := newBackend(t)
	clock := func() time.Time { return time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC) }
	svc := numbering.New(backend, numbering.WithClock(clock))

	const n = 32
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.Issue(context.Background(), numbering.KindEstimate)
			assert.NoError(t, err)
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.True(t, seen["EST-2024-0001"])
	assert.True(t, seen["EST-2024-0032"])
}

func TestUnavailableBackend(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	backend := redis.New(client)
	mr.Close()

	svc := numbering.New(backend)
	_, err = svc.Issue(context.Background(), numbering.KindInvoice)
	assert.ErrorIs(t, err, numbering.ErrUnavailable)
}
