package event

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEventInvoice(t *testing.T) *invoicing.Invoice {
	t.Helper()
	item, err := invoicing.NewLineItem("Consulting", decimal.NewFromInt(2), valueobject.MustMoney("100.00", valueobject.USD))
	require.NoError(t, err)
	inv, err := invoicing.NewInvoice(
		uuid.New(),
		uuid.New(),
		"INV-2026-0001",
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		[]invoicing.LineItem{item},
		"",
		decimal.Zero,
	)
	require.NoError(t, err)
	return inv
}

func TestEventSerializer_RoundTrip(t *testing.T) {
	s := NewInvoicingSerializer()
	inv := testEventInvoice(t)

	payment, err := invoicing.NewPayment(uuid.New(), valueobject.MustMoney("75.50", valueobject.USD),
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), invoicing.PaymentMethodCard, "")
	require.NoError(t, err)

	events := []shared.DomainEvent{
		invoicing.NewInvoiceCreatedEvent(inv),
		invoicing.NewInvoiceUpdatedEvent(inv, invoicing.FieldDueDate),
		invoicing.NewInvoiceSentEvent(inv),
		invoicing.NewPaymentRecordedEvent(inv, payment),
		invoicing.NewInvoicePaidEvent(inv),
	}

	for _, event := range events {
		t.Run(event.EventType(), func(t *testing.T) {
			data, err := s.Serialize(event)
			require.NoError(t, err)

			decoded, err := s.Deserialize(event.EventType(), data)
			require.NoError(t, err)

			assert.IsType(t, event, decoded)
			assert.Equal(t, event.EventID(), decoded.EventID())
			assert.Equal(t, event.AggregateID(), decoded.AggregateID())
			assert.Equal(t, invoicing.AggregateTypeInvoice, decoded.AggregateType())
			assert.True(t, event.OccurredAt().Equal(decoded.OccurredAt()))
		})
	}

	t.Run("payment amount survives", func(t *testing.T) {
		data, err := s.Serialize(events[3])
		require.NoError(t, err)
		decoded, err := s.Deserialize(invoicing.EventTypePaymentRecorded, data)
		require.NoError(t, err)

		recorded := decoded.(*invoicing.PaymentRecordedEvent)
		assert.True(t, recorded.Amount.Equals(valueobject.MustMoney("75.50", valueobject.USD)))
		assert.Equal(t, payment.ID(), recorded.PaymentID)
	})
}

func TestEventSerializer_UnknownType(t *testing.T) {
	s := NewInvoicingSerializer()

	_, err := s.Deserialize("InvoiceVoided", []byte(`{}`))
	assert.ErrorContains(t, err, "unknown event type")
	assert.False(t, s.IsRegistered("InvoiceVoided"))
}

func TestEventSerializer_MalformedPayload(t *testing.T) {
	s := NewInvoicingSerializer()

	_, err := s.Deserialize(invoicing.EventTypeInvoiceSent, []byte(`{"invoice_id":`))
	assert.Error(t, err)
}

func TestEventSerializer_RegisteredTypes(t *testing.T) {
	s := NewInvoicingSerializer()

	assert.Equal(t, []string{
		invoicing.EventTypeInvoiceCreated,
		invoicing.EventTypeInvoicePaid,
		invoicing.EventTypeInvoiceSent,
		invoicing.EventTypeInvoiceUpdated,
		invoicing.EventTypePaymentRecorded,
	}, s.RegisteredTypes())
}
