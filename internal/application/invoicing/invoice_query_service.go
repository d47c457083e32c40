package invoicing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
)

// InvoiceQueryService serves invoice read models. Overdue is always
// evaluated against the service clock.
type InvoiceQueryService struct {
	queries invoicing.InvoiceQueryRepository
	now     func() time.Time
}

// NewInvoiceQueryService creates a new InvoiceQueryService
func NewInvoiceQueryService(queries invoicing.InvoiceQueryRepository, now func() time.Time) *InvoiceQueryService {
	if now == nil {
		now = time.Now
	}
	return &InvoiceQueryService{queries: queries, now: now}
}

// GetSummary returns the computed summary of one invoice
func (s *InvoiceQueryService) GetSummary(ctx context.Context, id uuid.UUID) (*InvoiceSummaryResponse, error) {
	summary, err := s.queries.GetSummary(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceSummaryResponse(*summary)
	return &resp, nil
}

// List returns a page of invoice summaries
func (s *InvoiceQueryService) List(ctx context.Context, f ListInvoicesFilter) (shared.Paginated[InvoiceSummaryResponse], error) {
	filter, err := f.toInvoiceFilter()
	if err != nil {
		return shared.Paginated[InvoiceSummaryResponse]{}, err
	}
	page, err := s.queries.List(ctx, filter, s.now())
	if err != nil {
		return shared.Paginated[InvoiceSummaryResponse]{}, err
	}
	return shared.Paginated[InvoiceSummaryResponse]{
		Items:      ToInvoiceSummaryResponses(page.Items),
		Total:      page.Total,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
	}, nil
}

// ListOverdue returns every overdue invoice, oldest due date first
func (s *InvoiceQueryService) ListOverdue(ctx context.Context) ([]InvoiceSummaryResponse, error) {
	summaries, err := s.queries.ListOverdue(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return ToInvoiceSummaryResponses(summaries), nil
}

// CustomerStatement returns a customer's unpaid invoices and balances
func (s *InvoiceQueryService) CustomerStatement(ctx context.Context, customerID uuid.UUID) (*CustomerStatementResponse, error) {
	st, err := s.queries.CustomerStatement(ctx, customerID, s.now())
	if err != nil {
		return nil, err
	}
	resp := ToCustomerStatementResponse(st)
	return &resp, nil
}
