package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Event types emitted by invoke tasks
const (
	TaskCompleted = "io.flunq.task.completed"
	TaskFailed    = "io.flunq.task.failed"
)

// Event is a CloudEvents v1.0 shaped audit record of one task execution
type Event struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	SpecVersion string      `json:"specversion"`
	Type        string      `json:"type"`
	Time        time.Time   `json:"time"`
	ExecutionID string      `json:"executionid,omitempty"`
	TaskID      string      `json:"taskid,omitempty"`
	Data        interface{} `json:"data,omitempty"`
}

// Publisher delivers task events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event *Event) error
}

// NopPublisher discards every event
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, event *Event) error {
	return nil
}

// RedisStreamPublisher appends events to a Redis stream
type RedisStreamPublisher struct {
	client redis.UniversalClient
	stream string
	logger *zap.Logger
}

// NewRedisStreamPublisher creates a publisher writing to stream
func NewRedisStreamPublisher(client redis.UniversalClient, stream string, logger *zap.Logger) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: stream,
		logger: logger,
	}
}

// Publish appends event to the stream with XADD
func (p *RedisStreamPublisher) Publish(ctx context.Context, event *Event) error {
	fields := map[string]interface{}{
		"id":          event.ID,
		"source":      event.Source,
		"specversion": event.SpecVersion,
		"type":        event.Type,
		"time":        event.Time.Format(time.RFC3339),
	}

	if event.ExecutionID != "" {
		fields["executionid"] = event.ExecutionID
	}
	if event.TaskID != "" {
		fields["taskid"] = event.TaskID
	}

	if event.Data != nil {
		dataBytes, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		fields["data"] = string(dataBytes)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}

	messageID, err := p.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event to Redis Stream: %w", err)
	}

	p.logger.Debug("Published event to Redis Streams",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("stream", p.stream),
		zap.String("message_id", messageID))

	return nil
}
