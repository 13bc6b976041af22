// Package redisq publishes validated ticks to a Redis pub/sub channel,
// the transport original_source's RedisConfig names for fanning market
// data out to other processes (SPEC_FULL.md §B, §C).
package redisq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ctpmd/gateway"
	"github.com/redis/go-redis/v9"
)

// Sink publishes ticks to a per-symbol Redis channel under a configured
// prefix: "<prefix><symbol>".
type Sink struct {
	client *redis.Client
	prefix string
}

// New connects to the Redis instance described by cfg. The connection
// is lazy: redis.NewClient never dials until the first command.
func New(cfg gateway.RedisConfig) *Sink {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.MaxConnections,
	})
	return &Sink{client: client, prefix: cfg.ChannelPrefix}
}

// Publish serializes t to JSON (via ToMap, so the on-wire shape matches
// the same transport-neutral representation used everywhere else) and
// publishes it to the tick's symbol channel.
func (s *Sink) Publish(ctx context.Context, t *gateway.Tick) error {
	payload, err := json.Marshal(t.ToMap())
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	channel := s.prefix + t.Symbol
	return s.client.Publish(ctx, channel, payload).Err()
}

// Close releases the underlying connection pool.
func (s *Sink) Close() error {
	return s.client.Close()
}
