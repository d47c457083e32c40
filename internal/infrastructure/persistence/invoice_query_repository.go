package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxOverdueRows caps unpaginated overdue listings
const maxOverdueRows = 1000

// GormInvoiceQueryRepository serves invoice read models straight from the
// stored rows. Amounts are derived the same way the aggregate derives them
// and rounded to the currency's minor units for presentation.
type GormInvoiceQueryRepository struct {
	db *gorm.DB
}

// NewGormInvoiceQueryRepository creates a new GormInvoiceQueryRepository
func NewGormInvoiceQueryRepository(db *gorm.DB) *GormInvoiceQueryRepository {
	return &GormInvoiceQueryRepository{db: db}
}

var _ invoicing.InvoiceQueryRepository = (*GormInvoiceQueryRepository)(nil)

func (r *GormInvoiceQueryRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

// GetSummary returns the summary of one invoice
func (r *GormInvoiceQueryRepository) GetSummary(ctx context.Context, id uuid.UUID, asOf time.Time) (*invoicing.InvoiceSummary, error) {
	var model models.InvoiceModel
	if err := r.withChildren(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("load invoice summary: %w", err)
	}
	summary := summarize(&model, asOf)
	return &summary, nil
}

// List returns a page of summaries matching filter
func (r *GormInvoiceQueryRepository) List(ctx context.Context, filter invoicing.InvoiceFilter, asOf time.Time) (shared.Paginated[invoicing.InvoiceSummary], error) {
	page := filter.PageRequest.Normalize()
	scope := func(db *gorm.DB) *gorm.DB {
		if filter.CustomerID != nil {
			db = db.Where("customer_id = ?", *filter.CustomerID)
		}
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.OverdueOnly {
			db = overdueScope(db, asOf)
		}
		return db
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Scopes(scope).Count(&total).Error; err != nil {
		return shared.Paginated[invoicing.InvoiceSummary]{}, fmt.Errorf("count invoices: %w", err)
	}

	var rows []models.InvoiceModel
	err := r.withChildren(ctx).Scopes(scope).
		Order("issue_date DESC").Order("invoice_number DESC").
		Offset(page.Offset()).Limit(page.PageSize).
		Find(&rows).Error
	if err != nil {
		return shared.Paginated[invoicing.InvoiceSummary]{}, fmt.Errorf("list invoices: %w", err)
	}

	return shared.NewPaginated(summarizeAll(rows, asOf), total, page), nil
}

// ListOverdue returns unpaid invoices whose due date is before asOf's date,
// oldest due date first
func (r *GormInvoiceQueryRepository) ListOverdue(ctx context.Context, asOf time.Time) ([]invoicing.InvoiceSummary, error) {
	var rows []models.InvoiceModel
	err := r.withChildren(ctx).
		Scopes(func(db *gorm.DB) *gorm.DB { return overdueScope(db, asOf) }).
		Order("due_date ASC").Order("invoice_number ASC").
		Limit(maxOverdueRows).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list overdue invoices: %w", err)
	}
	return summarizeAll(rows, asOf), nil
}

// CustomerStatement totals the open balances of a customer per currency
func (r *GormInvoiceQueryRepository) CustomerStatement(ctx context.Context, customerID uuid.UUID, asOf time.Time) (*invoicing.CustomerStatement, error) {
	var rows []models.InvoiceModel
	err := r.withChildren(ctx).
		Where("customer_id = ?", customerID).
		Where("status NOT IN ?", []invoicing.InvoiceStatus{invoicing.StatusPaid, invoicing.StatusCanceled}).
		Order("due_date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("load customer statement: %w", err)
	}

	summaries := summarizeAll(rows, asOf)
	byCurrency := make(map[valueobject.Currency]*invoicing.CustomerBalance)
	for _, s := range summaries {
		b, ok := byCurrency[s.Currency]
		if !ok {
			b = &invoicing.CustomerBalance{
				Currency:      s.Currency,
				Outstanding:   decimal.Zero,
				OverdueAmount: decimal.Zero,
			}
			byCurrency[s.Currency] = b
		}
		b.OpenInvoices++
		b.Outstanding = b.Outstanding.Add(s.Balance)
		if s.IsOverdue {
			b.OverdueInvoices++
			b.OverdueAmount = b.OverdueAmount.Add(s.Balance)
		}
	}

	balances := make([]invoicing.CustomerBalance, 0, len(byCurrency))
	for _, b := range byCurrency {
		balances = append(balances, *b)
	}
	sort.Slice(balances, func(i, j int) bool { return balances[i].Currency < balances[j].Currency })

	return &invoicing.CustomerStatement{
		CustomerID: customerID,
		AsOf:       dateOnly(asOf),
		Balances:   balances,
		Invoices:   summaries,
	}, nil
}

func overdueScope(db *gorm.DB, asOf time.Time) *gorm.DB {
	return db.Where("due_date < ? AND status <> ?", dateOnly(asOf), invoicing.StatusPaid)
}

func summarizeAll(rows []models.InvoiceModel, asOf time.Time) []invoicing.InvoiceSummary {
	out := make([]invoicing.InvoiceSummary, len(rows))
	for i := range rows {
		out[i] = summarize(&rows[i], asOf)
	}
	return out
}

func summarize(m *models.InvoiceModel, asOf time.Time) invoicing.InvoiceSummary {
	currency := valueobject.Currency(m.Currency)
	places := currency.MinorUnits()

	subtotal := decimal.Zero
	for _, item := range m.LineItems {
		subtotal = subtotal.Add(item.Quantity.Mul(item.UnitPrice).Round(places))
	}
	tax := subtotal.Mul(m.TaxRate)
	total := subtotal.Add(tax)

	paid := decimal.Zero
	for _, p := range m.Payments {
		paid = paid.Add(p.Amount)
	}
	balance := total.Sub(paid)

	return invoicing.InvoiceSummary{
		ID:            m.ID,
		InvoiceNumber: m.InvoiceNumber,
		CustomerID:    m.CustomerID,
		Status:        m.Status,
		Currency:      currency,
		IssueDate:     m.IssueDate.UTC(),
		DueDate:       m.DueDate.UTC(),
		Subtotal:      subtotal,
		Tax:           tax.Round(places),
		Total:         total.Round(places),
		AmountPaid:    paid.Round(places),
		Balance:       balance.Round(places),
		IsOverdue:     m.Status != invoicing.StatusPaid && m.DueDate.UTC().Before(dateOnly(asOf)),
		UpdatedAt:     m.UpdatedAt,
	}
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
