package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rocketscienceinc/tictactoe-peersync/internal/apperror"
)

const contextKeyPrefix = "context:"

// ContextRepository - single slot holding the last installed shared context. Every Save overwrites it.
type ContextRepository interface {
	Save(ctx context.Context, payload []byte) error
	Load(ctx context.Context) ([]byte, error)
}

type redisContext struct {
	client *redis.Client
	key    string
}

// NewRedisContextRepository - slot survives process restarts as long as redis keeps the key.
func NewRedisContextRepository(client *redis.Client, deviceID string) ContextRepository {
	return &redisContext{
		client: client,
		key:    contextKeyPrefix + deviceID,
	}
}

func (that *redisContext) Save(ctx context.Context, payload []byte) error {
	if err := that.client.Set(ctx, that.key, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to set context: %w", err)
	}

	return nil
}

func (that *redisContext) Load(ctx context.Context) ([]byte, error) {
	response, err := that.client.Get(ctx, that.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrContextNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get context: %w", err)
	}

	return response, nil
}
