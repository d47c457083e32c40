package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Version is the optimistic concurrency token of a stored invoice. It is
// owned by the repository and never part of aggregate state. Zero means
// the invoice has not been stored yet.
type Version int

// InvoiceRepository persists invoice aggregates
type InvoiceRepository interface {
	// NextIdentity returns a fresh invoice id
	NextIdentity() uuid.UUID
	// FindByID returns the invoice and its current version, or shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, Version, error)
	// FindByInvoiceNumber returns the invoice with the given number, or shared.ErrNotFound
	FindByInvoiceNumber(ctx context.Context, number string) (*Invoice, Version, error)
	// Save inserts when expected is zero, otherwise updates only if the
	// stored version equals expected. A stale version yields
	// shared.ErrConcurrencyConflict. Returns the new version.
	Save(ctx context.Context, inv *Invoice, expected Version) (Version, error)
}

// InvoiceSummary is the read model of an invoice computed from stored rows
type InvoiceSummary struct {
	ID            uuid.UUID
	InvoiceNumber string
	CustomerID    uuid.UUID
	Status        InvoiceStatus
	Currency      valueobject.Currency
	IssueDate     time.Time
	DueDate       time.Time
	Subtotal      decimal.Decimal
	Tax           decimal.Decimal
	Total         decimal.Decimal
	AmountPaid    decimal.Decimal
	Balance       decimal.Decimal
	IsOverdue     bool
	UpdatedAt     time.Time
}

// InvoiceFilter narrows summary listings
type InvoiceFilter struct {
	CustomerID  *uuid.UUID
	Status      *InvoiceStatus
	OverdueOnly bool
	shared.PageRequest
}

// CustomerBalance is the outstanding balance of one customer in one currency
type CustomerBalance struct {
	Currency        valueobject.Currency
	OpenInvoices    int
	OverdueInvoices int
	Outstanding     decimal.Decimal
	OverdueAmount   decimal.Decimal
}

// CustomerStatement aggregates a customer's unpaid invoices
type CustomerStatement struct {
	CustomerID uuid.UUID
	AsOf       time.Time
	Balances   []CustomerBalance
	Invoices   []InvoiceSummary
}

// InvoiceQueryRepository serves read models directly from storage,
// bypassing the aggregate
type InvoiceQueryRepository interface {
	GetSummary(ctx context.Context, id uuid.UUID, asOf time.Time) (*InvoiceSummary, error)
	List(ctx context.Context, filter InvoiceFilter, asOf time.Time) (shared.Paginated[InvoiceSummary], error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]InvoiceSummary, error)
	CustomerStatement(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*CustomerStatement, error)
}
