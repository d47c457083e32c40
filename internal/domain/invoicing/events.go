package invoicing

import (
	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
)

// Event type names
const (
	EventTypeInvoiceCreated  = "InvoiceCreated"
	EventTypeInvoiceUpdated  = "InvoiceUpdated"
	EventTypeInvoiceSent     = "InvoiceSent"
	EventTypePaymentRecorded = "PaymentRecorded"
	EventTypeInvoicePaid     = "InvoicePaid"
)

// Fields reported by InvoiceUpdated
const (
	FieldLineItems = "line_items"
	FieldDueDate   = "due_date"
	FieldTaxRate   = "tax_rate"
	FieldNotes     = "notes"
)

// InvoiceCreatedEvent is raised when a draft invoice is created
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		CustomerID:      inv.customerID,
		InvoiceNumber:   inv.invoiceNumber,
	}
}

// InvoiceUpdatedEvent is raised when a draft invoice is edited
type InvoiceUpdatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID `json:"invoice_id"`
	Field     string    `json:"field"`
}

// NewInvoiceUpdatedEvent creates a new InvoiceUpdatedEvent
func NewInvoiceUpdatedEvent(inv *Invoice, field string) *InvoiceUpdatedEvent {
	return &InvoiceUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceUpdated, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		Field:           field,
	}
}

// InvoiceSentEvent is raised when an invoice is issued to the customer
type InvoiceSentEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// NewInvoiceSentEvent creates a new InvoiceSentEvent
func NewInvoiceSentEvent(inv *Invoice) *InvoiceSentEvent {
	return &InvoiceSentEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceSent, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		CustomerID:      inv.customerID,
		InvoiceNumber:   inv.invoiceNumber,
	}
}

// PaymentRecordedEvent is raised for every applied payment
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	InvoiceID uuid.UUID         `json:"invoice_id"`
	PaymentID uuid.UUID         `json:"payment_id"`
	Amount    valueobject.Money `json:"amount"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(inv *Invoice, p Payment) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		PaymentID:       p.id,
		Amount:          p.amount,
	}
}

// InvoicePaidEvent is raised when a payment settles the balance
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	CustomerID    uuid.UUID `json:"customer_id"`
	InvoiceNumber string    `json:"invoice_number"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID),
		InvoiceID:       inv.ID,
		CustomerID:      inv.customerID,
		InvoiceNumber:   inv.invoiceNumber,
	}
}
