package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/peekbilling/importer/internal/config"
	"github.com/redis/go-redis/v9"
)

// dequeueWait bounds a single blocking pop so the consumer loop can notice
// context cancellation.
const dequeueWait = 2 * time.Second

type redisQueue struct {
	client *redis.Client
}

// NewRedisClient builds the redis client from configuration.
func NewRedisClient(cfg config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

// NewQueue returns a Queue backed by redis lists. Delivery is
// at-least-once from the producer's perspective; consumers push down
// idempotence to the storage keys instead of relying on exactly-once.
func NewQueue(client *redis.Client) Queue {
	return &redisQueue{client: client}
}

func (q *redisQueue) Enqueue(ctx context.Context, queue string, item any) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serialize queue message for %s: %w", queue, err)
	}
	return q.client.LPush(ctx, queue, payload).Err()
}

func (q *redisQueue) Dequeue(ctx context.Context, queue string) ([]byte, bool, error) {
	res, err := q.client.BRPop(ctx, dequeueWait, queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	// BRPop returns [key, value].
	if len(res) != 2 {
		return nil, false, nil
	}
	return []byte(res[1]), true, nil
}

// Purge drops the queue contents. Used only by the development-mode reset.
func (q *redisQueue) Purge(ctx context.Context, queues ...string) error {
	return q.client.Del(ctx, queues...).Err()
}
