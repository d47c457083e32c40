package telemetry

import (
	"context"
	"errors"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"go.opentelemetry.io/otel/metric"
)

// InvoiceMetrics turns invoice events into business counters. It is an
// event handler, so it only sees events of invoices that were persisted.
type InvoiceMetrics struct {
	created        *Counter
	sent           *Counter
	paid           *Counter
	payments       *Counter
	paymentAmounts *Histogram
	meter          metric.Meter
}

// NewInvoiceMetrics registers the invoicing instruments on meter
func NewInvoiceMetrics(meter metric.Meter) (*InvoiceMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewInvoiceMetrics: meter cannot be nil")
	}

	var (
		m   = &InvoiceMetrics{meter: meter}
		err error
	)
	if m.created, err = NewCounter(meter, "invoicing.invoices.created", "Invoices created", "{invoice}"); err != nil {
		return nil, err
	}
	if m.sent, err = NewCounter(meter, "invoicing.invoices.sent", "Invoices sent to customers", "{invoice}"); err != nil {
		return nil, err
	}
	if m.paid, err = NewCounter(meter, "invoicing.invoices.paid", "Invoices settled in full", "{invoice}"); err != nil {
		return nil, err
	}
	if m.payments, err = NewCounter(meter, "invoicing.payments.recorded", "Payments applied to invoices", "{payment}"); err != nil {
		return nil, err
	}
	m.paymentAmounts, err = NewHistogram(meter, HistogramOpts{
		Name:        "invoicing.payments.amount",
		Description: "Applied payment amounts in major currency units",
		Unit:        "{currency}",
		Boundaries:  PaymentAmountBuckets,
	})
	if err != nil {
		return nil, err
	}
	return m, nil
}

// EventTypes implements shared.EventHandler
func (m *InvoiceMetrics) EventTypes() []string {
	return []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoiceSent,
		invoicing.EventTypePaymentRecorded,
		invoicing.EventTypeInvoicePaid,
	}
}

// Handle implements shared.EventHandler
func (m *InvoiceMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *invoicing.InvoiceCreatedEvent:
		m.created.Inc(ctx)
	case *invoicing.InvoiceSentEvent:
		m.sent.Inc(ctx)
	case *invoicing.InvoicePaidEvent:
		m.paid.Inc(ctx)
	case *invoicing.PaymentRecordedEvent:
		currency := AttrCurrency.String(string(e.Amount.Currency()))
		m.payments.Inc(ctx, currency)
		m.paymentAmounts.Record(ctx, e.Amount.Amount().InexactFloat64(), currency)
	}
	return nil
}

// OutboxCounter reports outbox entries per status
type OutboxCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

var outboxStatuses = []shared.OutboxStatus{
	shared.OutboxStatusPending,
	shared.OutboxStatusProcessing,
	shared.OutboxStatusSent,
	shared.OutboxStatusFailed,
	shared.OutboxStatusDead,
}

// ObserveOutbox registers a gauge of outbox entries per status, read from
// counter at each collection. Unregister the returned registration on
// shutdown.
func (m *InvoiceMetrics) ObserveOutbox(counter OutboxCounter) (metric.Registration, error) {
	gauge, err := m.meter.Int64ObservableGauge("invoicing.outbox.entries",
		metric.WithDescription("Outbox entries by delivery status"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	return m.meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		counts, err := counter.CountByStatus(ctx)
		if err != nil {
			return err
		}
		for _, status := range outboxStatuses {
			o.ObserveInt64(gauge, counts[status], metric.WithAttributes(AttrOutboxStatus.String(string(status))))
		}
		return nil
	}, gauge)
}

var _ shared.EventHandler = (*InvoiceMetrics)(nil)
