package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flowingduskpro/shuangxiangapp/internal/domain"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// redisCounterStore implements CounterStore using Redis.
type redisCounterStore struct {
	client *redis.Client
}

// NewRedisCounterStore creates a new Redis-backed counter store.
func NewRedisCounterStore(cfg RedisConfig) (CounterStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &redisCounterStore{client: client}, nil
}

// Redis key patterns:
// aggregate:session:{class_session_id}:joined        STRING<int>  - live joined connections
// aggregate:session:{class_session_id}:enter_events  STRING<int>  - recorded class_enter events

func joinedKey(classSessionID string) string {
	return fmt.Sprintf("aggregate:session:%s:joined", classSessionID)
}

func enterEventsKey(classSessionID string) string {
	return fmt.Sprintf("aggregate:session:%s:enter_events", classSessionID)
}

// decrFloorScript decrements a counter without letting it go below zero.
// DECR alone would underflow when a disconnect fires for a connection whose
// join never completed.
var decrFloorScript = redis.NewScript(`
local v = tonumber(redis.call('GET', KEYS[1]) or '0')
if v <= 0 then
  redis.call('SET', KEYS[1], '0')
  return 0
end
return redis.call('DECR', KEYS[1])
`)

func (s *redisCounterStore) IncrJoined(ctx context.Context, classSessionID string) (int64, error) {
	return s.client.Incr(ctx, joinedKey(classSessionID)).Result()
}

func (s *redisCounterStore) DecrJoined(ctx context.Context, classSessionID string) (int64, error) {
	return decrFloorScript.Run(ctx, s.client, []string{joinedKey(classSessionID)}).Int64()
}

func (s *redisCounterStore) IncrEnterEvents(ctx context.Context, classSessionID string) (int64, error) {
	return s.client.Incr(ctx, enterEventsKey(classSessionID)).Result()
}

func (s *redisCounterStore) GetCounts(ctx context.Context, classSessionID string) (domain.Counts, error) {
	pipe := s.client.Pipeline()
	joinedCmd := pipe.Get(ctx, joinedKey(classSessionID))
	enterCmd := pipe.Get(ctx, enterEventsKey(classSessionID))

	_, err := pipe.Exec(ctx)
	if err != nil && err != redis.Nil {
		return domain.Counts{}, err
	}

	counts := domain.Counts{}
	if v, err := joinedCmd.Int64(); err == nil {
		counts.Joined = v
	}
	if v, err := enterCmd.Int64(); err == nil {
		counts.EnterEvents = v
	}
	return counts, nil
}

func (s *redisCounterStore) SetCounts(ctx context.Context, classSessionID string, counts domain.Counts) error {
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, joinedKey(classSessionID), counts.Joined, 0)
	pipe.Set(ctx, enterEventsKey(classSessionID), counts.EnterEvents, 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisCounterStore) Close() error {
	return s.client.Close()
}

var _ CounterStore = (*redisCounterStore)(nil)
