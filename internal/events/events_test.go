package events

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNopPublisher(t *testing.T) {
	var publisher Publisher = NopPublisher{}
	assert.NoError(t, publisher.Publish(context.Background(), &Event{ID: "e-1", Type: TaskCompleted}))
}

func TestRedisStreamPublisher(t *testing.T) {
	addr := os.Getenv("REDIS_URL")
	if addr == "" {
		t.Skip("REDIS_URL not set")
	}

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	require.NoError(t, client.Ping(ctx).Err())

	stream := "restinvoke-test:" + uuid.New().String()
	defer client.Del(ctx, stream)

	publisher := NewRedisStreamPublisher(client, stream, zap.NewNop())
	err := publisher.Publish(ctx, &Event{
		ID:          "inv-1",
		Source:      "restinvoke",
		SpecVersion: "1.0",
		Type:        TaskCompleted,
		Time:        time.Now(),
		ExecutionID: "exec-1",
		TaskID:      "checkInventory",
		Data:        map[string]interface{}{"success": true},
	})
	require.NoError(t, err)

	messages, err := client.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, TaskCompleted, messages[0].Values["type"])
	assert.Equal(t, "exec-1", messages[0].Values["executionid"])
	assert.Equal(t, `{"success":true}`, messages[0].Values["data"])
}
