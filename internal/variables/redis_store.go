package variables

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const defaultKeyPrefix = "restinvoke"

// RedisStore keeps the variables of each execution in one Redis hash, next
// to a marker key recording that the execution exists. Values are stored
// JSON-encoded so structured values survive a round trip. With a positive
// ttl both keys expire ttl after the last write.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore creates a Redis-backed Store; ttl <= 0 keeps keys until Delete
func NewRedisStore(client redis.UniversalClient, keyPrefix string, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		logger:    logger,
	}
}

// Register writes the execution marker key
func (r *RedisStore) Register(ctx context.Context, executionID string) error {
	if err := r.client.Set(ctx, r.getExecutionKey(executionID), "1", r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to register execution: %w", err)
	}
	return nil
}

// Exists reports whether the execution marker or any variable is present
func (r *RedisStore) Exists(ctx context.Context, executionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.getExecutionKey(executionID), r.getVariablesKey(executionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check execution: %w", err)
	}
	return n > 0, nil
}

func (r *RedisStore) Get(ctx context.Context, executionID, name string) (interface{}, bool, error) {
	data, err := r.client.HGet(ctx, r.getVariablesKey(executionID), name).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get variable %s: %w", name, err)
	}

	value, err := decodeValue(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode variable %s: %w", name, err)
	}
	return value, true, nil
}

func (r *RedisStore) Set(ctx context.Context, executionID, name string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal variable %s: %w", name, err)
	}

	variablesKey := r.getVariablesKey(executionID)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, variablesKey, name, string(data))
		if r.ttl > 0 {
			pipe.Expire(ctx, variablesKey, r.ttl)
			pipe.Expire(ctx, r.getExecutionKey(executionID), r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store variable %s: %w", name, err)
	}

	r.logger.Debug("Variable stored",
		zap.String("execution_id", executionID),
		zap.String("variable", name))
	return nil
}

func (r *RedisStore) GetAll(ctx context.Context, executionID string) (map[string]interface{}, error) {
	entries, err := r.client.HGetAll(ctx, r.getVariablesKey(executionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get variables: %w", err)
	}

	result := make(map[string]interface{}, len(entries))
	for name, data := range entries {
		value, err := decodeValue(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode variable %s: %w", name, err)
		}
		result[name] = value
	}
	return result, nil
}

func (r *RedisStore) Delete(ctx context.Context, executionID string) error {
	if err := r.client.Del(ctx, r.getVariablesKey(executionID), r.getExecutionKey(executionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete variables: %w", err)
	}
	return nil
}

func (r *RedisStore) getExecutionKey(executionID string) string {
	return fmt.Sprintf("%s:execution:%s", r.keyPrefix, executionID)
}

func (r *RedisStore) getVariablesKey(executionID string) string {
	return fmt.Sprintf("%s:execution:%s:variables", r.keyPrefix, executionID)
}

func decodeValue(data string) (interface{}, error) {
	var value interface{}
	if err := json.Unmarshal([]byte(data), &value); err != nil {
		return nil, err
	}
	return value, nil
}
