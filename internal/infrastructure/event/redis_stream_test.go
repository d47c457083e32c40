package event

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStream stands in for a redis client: XADD appends to messages and
// XREADGROUP hands them out once
type fakeStream struct {
	added     []*redis.XAddArgs
	messages  []redis.XMessage
	acked     []string
	addErr    error
	readErr   error
	groupErr  error
	groupMade int
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	if f.addErr != nil {
		return redis.NewStringResult("", f.addErr)
	}
	f.added = append(f.added, a)
	values := make(map[string]any, len(a.Values.(map[string]any)))
	for k, v := range a.Values.(map[string]any) {
		values[k] = v
	}
	id := fmt.Sprintf("1-%d", len(f.added))
	f.messages = append(f.messages, redis.XMessage{ID: id, Values: values})
	return redis.NewStringResult(id, nil)
}

func (f *fakeStream) XGroupCreateMkStream(_ context.Context, _, _, _ string) *redis.StatusCmd {
	if f.groupErr != nil {
		return redis.NewStatusResult("", f.groupErr)
	}
	f.groupMade++
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStream) XReadGroup(_ context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd {
	if f.readErr != nil {
		return redis.NewXStreamSliceCmdResult(nil, f.readErr)
	}
	if len(f.messages) == 0 {
		return redis.NewXStreamSliceCmdResult(nil, redis.Nil)
	}
	msgs := f.messages
	f.messages = nil
	return redis.NewXStreamSliceCmdResult([]redis.XStream{{Stream: a.Streams[0], Messages: msgs}}, nil)
}

func (f *fakeStream) XAck(_ context.Context, _, _ string, ids ...string) *redis.IntCmd {
	f.acked = append(f.acked, ids...)
	return redis.NewIntResult(int64(len(ids)), nil)
}

func TestRedisStreamPublisher_Publish(t *testing.T) {
	stream := &fakeStream{}
	publisher := NewRedisStreamPublisher(stream, "invoicing.events", 1000, NewInvoicingSerializer())

	inv := testEventInvoice(t)
	created := invoicing.NewInvoiceCreatedEvent(inv)
	sent := invoicing.NewInvoiceSentEvent(inv)

	require.NoError(t, publisher.Publish(context.Background(), created, sent))
	require.Len(t, stream.added, 2)

	args := stream.added[0]
	assert.Equal(t, "invoicing.events", args.Stream)
	assert.Equal(t, int64(1000), args.MaxLen)
	assert.True(t, args.Approx)

	values := args.Values.(map[string]any)
	assert.Equal(t, created.EventID().String(), values[fieldEventID])
	assert.Equal(t, invoicing.EventTypeInvoiceCreated, values[fieldEventType])
	assert.Equal(t, inv.ID.String(), values[fieldAggregateID])
	assert.Equal(t, invoicing.AggregateTypeInvoice, values[fieldAggregateType])
	assert.NotEmpty(t, values[fieldPayload])
}

func TestRedisStreamPublisher_Error(t *testing.T) {
	stream := &fakeStream{addErr: errors.New("READONLY")}
	publisher := NewRedisStreamPublisher(stream, "invoicing.events", 0, NewInvoicingSerializer())

	err := publisher.Publish(context.Background(), invoicing.NewInvoiceSentEvent(testEventInvoice(t)))
	assert.ErrorContains(t, err, "READONLY")
}

func TestRedisStreamConsumer_RoundTrip(t *testing.T) {
	stream := &fakeStream{}
	serializer := NewInvoicingSerializer()
	publisher := NewRedisStreamPublisher(stream, "invoicing.events", 0, serializer)

	bus := NewInMemoryEventBus(zap.NewNop())
	handler := newTestHandler()
	bus.Subscribe(handler)

	consumer := NewRedisStreamConsumer(stream, "invoicing.events", "reporting", "worker-1", serializer, bus, zap.NewNop())
	ctx := context.Background()
	require.NoError(t, consumer.EnsureGroup(ctx))

	inv := testEventInvoice(t)
	sent := invoicing.NewInvoiceSentEvent(inv)
	require.NoError(t, publisher.Publish(ctx, sent))

	acked, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, acked)

	handled := handler.getHandled()
	require.Len(t, handled, 1)
	assert.Equal(t, sent.EventID(), handled[0].EventID())
	assert.Equal(t, inv.InvoiceNumber(), handled[0].(*invoicing.InvoiceSentEvent).InvoiceNumber)

	t.Run("empty read", func(t *testing.T) {
		acked, err := consumer.Poll(ctx)
		require.NoError(t, err)
		assert.Zero(t, acked)
	})
}

func TestRedisStreamConsumer_FailedDispatchIsNotAcked(t *testing.T) {
	stream := &fakeStream{}
	serializer := NewInvoicingSerializer()
	publisher := NewRedisStreamPublisher(stream, "invoicing.events", 0, serializer)
	target := &recordingPublisher{err: errors.New("projection down")}

	consumer := NewRedisStreamConsumer(stream, "invoicing.events", "reporting", "worker-1", serializer, target, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, publisher.Publish(ctx, invoicing.NewInvoicePaidEvent(testEventInvoice(t))))

	acked, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, acked)
	assert.Empty(t, stream.acked)
}

func TestRedisStreamConsumer_MalformedMessagesAreDropped(t *testing.T) {
	stream := &fakeStream{messages: []redis.XMessage{
		{ID: "1-1", Values: map[string]any{fieldEventType: invoicing.EventTypeInvoiceSent}},
		{ID: "1-2", Values: map[string]any{fieldEventType: "Unknown", fieldPayload: "{}"}},
	}}
	target := &recordingPublisher{}
	consumer := NewRedisStreamConsumer(stream, "invoicing.events", "reporting", "worker-1", NewInvoicingSerializer(), target, zap.NewNop())

	acked, err := consumer.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, acked)
	assert.Equal(t, []string{"1-1", "1-2"}, stream.acked)
	assert.Zero(t, target.count())
}

func TestRedisStreamConsumer_EnsureGroup(t *testing.T) {
	ctx := context.Background()

	existing := &fakeStream{groupErr: errors.New("BUSYGROUP Consumer Group name already exists")}
	consumer := NewRedisStreamConsumer(existing, "s", "g", "c", NewInvoicingSerializer(), &recordingPublisher{}, zap.NewNop())
	assert.NoError(t, consumer.EnsureGroup(ctx))

	broken := &fakeStream{groupErr: errors.New("NOAUTH Authentication required")}
	consumer = NewRedisStreamConsumer(broken, "s", "g", "c", NewInvoicingSerializer(), &recordingPublisher{}, zap.NewNop())
	assert.ErrorContains(t, consumer.EnsureGroup(ctx), "NOAUTH")
}

func TestRedisStreamConsumer_ReadError(t *testing.T) {
	stream := &fakeStream{readErr: errors.New("connection reset")}
	consumer := NewRedisStreamConsumer(stream, "s", "g", "c", NewInvoicingSerializer(), &recordingPublisher{}, zap.NewNop())

	_, err := consumer.Poll(context.Background())
	assert.ErrorContains(t, err, "connection reset")
}

func TestRedisStreamConsumer_RunStopsOnCancel(t *testing.T) {
	stream := &fakeStream{}
	consumer := NewRedisStreamConsumer(stream, "s", "g", "c", NewInvoicingSerializer(), &recordingPublisher{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, consumer.Run(ctx))
	assert.Equal(t, 1, stream.groupMade)
}
