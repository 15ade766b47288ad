package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/domain"
	"github.com/KarthikeyanKatkam/vilokanam-view-sub004/internal/core/ports"
)

// RedisTickStore accumulates billing ticks with INCRBY so counts survive
// relay restarts and are shared across instances.
type RedisTickStore struct {
	client *redis.Client
	prefix string
}

func NewRedisTickStore(client *redis.Client) ports.TickStore {
	return &RedisTickStore{
		client: client,
		prefix: "vilokanam:ticks:",
	}
}

func (s *RedisTickStore) tickKey(streamID domain.StreamID) string {
	return s.prefix + string(streamID)
}

func (s *RedisTickStore) RecordTick(ctx context.Context, streamID domain.StreamID, ticks uint64) (uint64, error) {
	total, err := s.client.IncrBy(ctx, s.tickKey(streamID), int64(ticks)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment tick count: %w", err)
	}
	return uint64(total), nil
}

func (s *RedisTickStore) TickCount(ctx context.Context, streamID domain.StreamID) (uint64, error) {
	count, err := s.client.Get(ctx, s.tickKey(streamID)).Uint64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read tick count: %w", err)
	}
	return count, nil
}
