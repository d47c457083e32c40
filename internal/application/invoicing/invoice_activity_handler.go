package invoicing

import (
	"context"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceActivityHandler writes an audit log line for every invoice event
type InvoiceActivityHandler struct {
	logger *zap.Logger
}

// NewInvoiceActivityHandler creates a new handler for invoice activity
func NewInvoiceActivityHandler(logger *zap.Logger) *InvoiceActivityHandler {
	return &InvoiceActivityHandler{logger: logger.Named("invoice_activity")}
}

// EventTypes returns the event types this handler is interested in
func (h *InvoiceActivityHandler) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceUpdated,
		invoicing.EventTypeInvoiceSent,
		invoicing.EventTypePaymentRecorded,
		invoicing.EventTypeInvoicePaid,
	}
}

// Handle logs the event with its invoice-specific fields
func (h *InvoiceActivityHandler) Handle(_ context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
		zap.String("invoice_id", event.AggregateID().String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}

	switch e := event.(type) {
	case *invoicing.InvoiceCreatedEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("customer_id", e.CustomerID.String()),
		)
	case *invoicing.InvoiceUpdatedEvent:
		fields = append(fields, zap.String("field", e.Field))
	case *invoicing.InvoiceSentEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("customer_id", e.CustomerID.String()),
		)
	case *invoicing.PaymentRecordedEvent:
		fields = append(fields,
			zap.String("payment_id", e.PaymentID.String()),
			zap.String("amount", e.Amount.StringFixed()),
			zap.String("currency", string(e.Amount.Currency())),
		)
	case *invoicing.InvoicePaidEvent:
		fields = append(fields,
			zap.String("invoice_number", e.InvoiceNumber),
			zap.String("customer_id", e.CustomerID.String()),
		)
	default:
		h.logger.Warn("unexpected event type", fields...)
		return nil
	}

	h.logger.Info("invoice activity", fields...)
	return nil
}
