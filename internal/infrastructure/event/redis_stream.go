package event

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stream message fields
const (
	fieldEventID       = "event_id"
	fieldEventType     = "event_type"
	fieldAggregateID   = "aggregate_id"
	fieldAggregateType = "aggregate_type"
	fieldOccurredAt    = "occurred_at"
	fieldPayload       = "payload"
)

// StreamWriter is the subset of the redis client used to append to a stream
type StreamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisStreamPublisher appends each event to a Redis stream. It is the
// outbox relay's downstream; the stream is trimmed approximately to maxLen.
type RedisStreamPublisher struct {
	client     StreamWriter
	stream     string
	maxLen     int64
	serializer *EventSerializer
}

// NewRedisStreamPublisher creates a publisher for stream
func NewRedisStreamPublisher(client StreamWriter, stream string, maxLen int64, serializer *EventSerializer) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client:     client,
		stream:     stream,
		maxLen:     maxLen,
		serializer: serializer,
	}
}

// Publish XADDs events in order and stops at the first failure
func (p *RedisStreamPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		args := &redis.XAddArgs{
			Stream: p.stream,
			MaxLen: p.maxLen,
			Approx: p.maxLen > 0,
			Values: map[string]any{
				fieldEventID:       event.EventID().String(),
				fieldEventType:     event.EventType(),
				fieldAggregateID:   event.AggregateID().String(),
				fieldAggregateType: event.AggregateType(),
				fieldOccurredAt:    event.OccurredAt().UTC().Format(time.RFC3339Nano),
				fieldPayload:       string(payload),
			},
		}
		if err := p.client.XAdd(ctx, args).Err(); err != nil {
			return fmt.Errorf("xadd %s to %s: %w", event.EventType(), p.stream, err)
		}
	}
	return nil
}

var _ shared.EventPublisher = (*RedisStreamPublisher)(nil)

// StreamReader is the subset of the redis client used by a consumer group
type StreamReader interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// RedisStreamConsumer reads invoice events from a stream as a member of a
// consumer group and hands them to a local publisher, usually an
// InMemoryEventBus whose handlers are wrapped with IdempotentHandler.
// Messages are acknowledged only after successful dispatch, so a failed
// message is redelivered when the group's pending entries are claimed.
type RedisStreamConsumer struct {
	client     StreamReader
	stream     string
	group      string
	consumer   string
	serializer *EventSerializer
	target     shared.EventPublisher
	logger     *zap.Logger
	batch      int64
	block      time.Duration
}

// NewRedisStreamConsumer creates a consumer named consumer in group
func NewRedisStreamConsumer(
	client StreamReader,
	stream, group, consumer string,
	serializer *EventSerializer,
	target shared.EventPublisher,
	logger *zap.Logger,
) *RedisStreamConsumer {
	return &RedisStreamConsumer{
		client:     client,
		stream:     stream,
		group:      group,
		consumer:   consumer,
		serializer: serializer,
		target:     target,
		logger:     logger,
		batch:      50,
		block:      5 * time.Second,
	}
}

// EnsureGroup creates the stream and group if they do not exist yet
func (c *RedisStreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s: %w", c.group, err)
	}
	return nil
}

// Run reads and dispatches messages until ctx is cancelled
func (c *RedisStreamConsumer) Run(ctx context.Context) error {
	if err := c.EnsureGroup(ctx); err != nil {
		return err
	}
	for ctx.Err() == nil {
		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error("stream poll failed", zap.String("stream", c.stream), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
		}
	}
	return nil
}

// Poll reads one batch of new messages, dispatches them and returns the
// number acknowledged
func (c *RedisStreamConsumer) Poll(ctx context.Context) (int, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batch,
		Block:    c.block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	acked := 0
	for _, s := range streams {
		for _, msg := range s.Messages {
			if err := c.dispatch(ctx, msg); err != nil {
				if !errors.Is(err, errMalformedMessage) {
					c.logger.Warn("stream message not acknowledged",
						zap.String("message_id", msg.ID),
						zap.Error(err),
					)
					continue
				}
				// redelivery cannot fix a message we cannot decode
				c.logger.Error("dropping malformed stream message",
					zap.String("message_id", msg.ID),
					zap.Error(err),
				)
			}
			if err := c.client.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
				return acked, fmt.Errorf("xack %s: %w", msg.ID, err)
			}
			acked++
		}
	}
	return acked, nil
}

var errMalformedMessage = errors.New("malformed stream message")

func (c *RedisStreamConsumer) dispatch(ctx context.Context, msg redis.XMessage) error {
	eventType, _ := msg.Values[fieldEventType].(string)
	payload, _ := msg.Values[fieldPayload].(string)
	if eventType == "" || payload == "" {
		return fmt.Errorf("%w: %s lacks %s or %s", errMalformedMessage, msg.ID, fieldEventType, fieldPayload)
	}
	event, err := c.serializer.Deserialize(eventType, []byte(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", errMalformedMessage, err)
	}
	return c.target.Publish(ctx, event)
}
