package database

import (
	"context"
	"fmt"
	"time"

	"superstory-server/shared/interfaces"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const callLockKeyPrefix = "call_pipeline_lock:"

// Compile-time check
var _ interfaces.CallLockRepository = (*redisCallLockRepository)(nil)

type redisCallLockRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisCallLockRepository создает блокировки по callId на основе SET NX.
func NewRedisCallLockRepository(client *redis.Client, logger *zap.Logger) interfaces.CallLockRepository {
	return &redisCallLockRepository{
		client: client,
		logger: logger.Named("RedisCallLockRepo"),
	}
}

// Acquire ставит ключ блокировки, если его еще нет.
func (r *redisCallLockRepository) Acquire(ctx context.Context, callID string, ttl time.Duration) (bool, error) {
	key := callLockKeyPrefix + callID
	ok, err := r.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		r.logger.Error("Failed to acquire call lock", zap.String("callID", callID), zap.Error(err))
		return false, fmt.Errorf("failed to acquire lock for call %s: %w", callID, err)
	}
	r.logger.Debug("Call lock acquire attempt", zap.String("callID", callID), zap.Bool("acquired", ok), zap.Duration("ttl", ttl))
	return ok, nil
}

// Release снимает блокировку, чтобы звонок можно было обработать повторно.
func (r *redisCallLockRepository) Release(ctx context.Context, callID string) error {
	if err := r.client.Del(ctx, callLockKeyPrefix+callID).Err(); err != nil {
		r.logger.Error("Failed to release call lock", zap.String("callID", callID), zap.Error(err))
		return fmt.Errorf("failed to release lock for call %s: %w", callID, err)
	}
	return nil
}
