package invoicing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) NextIdentity() uuid.UUID {
	args := m.Called()
	return args.Get(0).(uuid.UUID)
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, invoicing.Version, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*invoicing.Invoice), args.Get(1).(invoicing.Version), args.Error(2)
}

func (m *MockInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string) (*invoicing.Invoice, invoicing.Version, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(*invoicing.Invoice), args.Get(1).(invoicing.Version), args.Error(2)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, inv *invoicing.Invoice, expected invoicing.Version) (invoicing.Version, error) {
	args := m.Called(ctx, inv, expected)
	return args.Get(0).(invoicing.Version), args.Error(1)
}

// MockInvoiceQueryRepository is a mock implementation of InvoiceQueryRepository
type MockInvoiceQueryRepository struct {
	mock.Mock
}

func (m *MockInvoiceQueryRepository) GetSummary(ctx context.Context, id uuid.UUID, asOf time.Time) (*invoicing.InvoiceSummary, error) {
	args := m.Called(ctx, id, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceQueryRepository) List(ctx context.Context, filter invoicing.InvoiceFilter, asOf time.Time) (shared.Paginated[invoicing.InvoiceSummary], error) {
	args := m.Called(ctx, filter, asOf)
	return args.Get(0).(shared.Paginated[invoicing.InvoiceSummary]), args.Error(1)
}

func (m *MockInvoiceQueryRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]invoicing.InvoiceSummary, error) {
	args := m.Called(ctx, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]invoicing.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceQueryRepository) CustomerStatement(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*invoicing.CustomerStatement, error) {
	args := m.Called(ctx, customerID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoicing.CustomerStatement), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

var (
	testIssueDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testDueDate   = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
)

// newStoredInvoice builds a draft invoice of 2 x 100.00 USD at 10% tax
// with its creation event already drained, as a repository would return it
func newStoredInvoice(t *testing.T) *invoicing.Invoice {
	t.Helper()
	item, err := invoicing.NewLineItem("Consulting", decimal.NewFromInt(2), valueobject.MustMoney("100.00", valueobject.USD))
	require.NoError(t, err)
	inv, err := invoicing.NewInvoice(
		uuid.New(),
		uuid.New(),
		"INV-2026-0001",
		testIssueDate,
		testDueDate,
		[]invoicing.LineItem{item},
		"",
		decimal.RequireFromString("0.10"),
	)
	require.NoError(t, err)
	inv.PullDomainEvents()
	return inv
}

// newStoredSentInvoice is newStoredInvoice after Send
func newStoredSentInvoice(t *testing.T) *invoicing.Invoice {
	t.Helper()
	inv := newStoredInvoice(t)
	require.NoError(t, inv.Send())
	inv.PullDomainEvents()
	return inv
}

func eventTypesOf(events []shared.DomainEvent) []string {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.EventType()
	}
	return types
}
