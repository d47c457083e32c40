package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyStats counts what an IdempotentHandler did with the events
// it was given
type IdempotencyStats struct {
	Processed  atomic.Int64
	Duplicates atomic.Int64
	Failed     atomic.Int64
}

// IdempotentHandler wraps an EventHandler so that an event redelivered by
// the outbox relay or a stream consumer is handled at most once
type IdempotentHandler struct {
	handler shared.EventHandler
	name    string
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	stats   *IdempotencyStats
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig overrides the default TTL and enablement
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithHandlerName sets the namespace of the handler's processed keys.
// It defaults to the wrapped handler's type name.
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.name = name
	}
}

// WithIdempotencyStats shares a stats collector between handlers
func WithIdempotencyStats(stats *IdempotencyStats) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.stats = stats
	}
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		handler: handler,
		name:    fmt.Sprintf("%T", handler),
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		stats:   &IdempotencyStats{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle marks the event as processed and then runs the wrapped handler.
// When the store is unavailable the event is handled anyway. A key is kept
// after a handler failure, so the event is retried only once the TTL
// expires.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	eventID := event.EventID().String()
	fields := []zap.Field{
		zap.String("event_id", eventID),
		zap.String("event_type", event.EventType()),
	}

	// keys are per handler so every subscriber of an event gets it once
	first, err := h.store.MarkProcessed(ctx, h.name+":"+eventID, h.config.TTL)
	switch {
	case err != nil:
		h.logger.Warn("idempotency store unavailable, handling event anyway", append(fields, zap.Error(err))...)
	case !first:
		h.stats.Duplicates.Add(1)
		h.logger.Debug("duplicate event skipped", fields...)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.stats.Failed.Add(1)
		return err
	}
	h.stats.Processed.Add(1)
	return nil
}

// Stats returns the handler's counters
func (h *IdempotentHandler) Stats() *IdempotencyStats {
	return h.stats
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
