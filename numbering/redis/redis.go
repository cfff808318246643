// Package redis is a numbering backend on Redis INCR. It suits deployments
// that run several engine processes against different database replicas but
// need one global sequence per document kind and year.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/salesdoc/numbering"
)

// DefaultKeyPrefix namespaces counter keys.
const DefaultKeyPrefix = "salesdoc:seq:"

// Backend increments counters with INCR.
type Backend struct {
	client goredis.UniversalClient
	prefix string
}

var _ numbering.Backend = (*Backend)(nil)

// Option configures a Backend.
type Option func(*Backend)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(b *Backend) { b.prefix = prefix }
}

// New wraps an existing client.
func New(client goredis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{client: client, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int, opts ...Option) (*Backend, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("salesdoc/redis: ping %s: %w", addr, err)
	}
	return New(client, opts...), nil
}

// Increment implements numbering.Backend.
func (b *Backend) Increment(ctx context.Context, key string) (int64, error) {
	n, err := b.client.Incr(ctx, b.prefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("salesdoc/redis: incr %s: %w", key, err)
	}
	return n, nil
}

// Close closes the underlying client.
func (b *Backend) Close() error {
	return b.client.Close()
}
