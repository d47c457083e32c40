package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the invoice header
type InvoiceModel struct {
	AggregateModel
	CustomerID    uuid.UUID               `gorm:"type:uuid;not null;index"`
	InvoiceNumber string                  `gorm:"type:varchar(64);not null;uniqueIndex"`
	IssueDate     time.Time               `gorm:"type:date;not null"`
	DueDate       time.Time               `gorm:"type:date;not null;index"`
	Status        invoicing.InvoiceStatus `gorm:"type:varchar(20);not null;index"`
	Currency      string                  `gorm:"type:varchar(3);not null"`
	Notes         string                  `gorm:"type:text"`
	TaxRate       decimal.Decimal         `gorm:"type:numeric;not null"`
	LineItems     []InvoiceLineItemModel  `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
	Payments      []InvoicePaymentModel   `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// InvoiceLineItemModel stores one line item. Line items have no identity
// of their own and are keyed by their position on the invoice.
type InvoiceLineItemModel struct {
	InvoiceID   uuid.UUID       `gorm:"type:uuid;primaryKey"`
	Position    int             `gorm:"primaryKey;autoIncrement:false"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric;not null"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric;not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (InvoiceLineItemModel) TableName() string {
	return "invoice_line_items"
}

// InvoicePaymentModel stores an applied payment. Rows are append-only.
type InvoicePaymentModel struct {
	ID          uuid.UUID               `gorm:"type:uuid;primaryKey"`
	InvoiceID   uuid.UUID               `gorm:"type:uuid;not null;index"`
	Position    int                     `gorm:"not null"`
	Amount      decimal.Decimal         `gorm:"type:numeric;not null"`
	Currency    string                  `gorm:"type:varchar(3);not null"`
	PaymentDate time.Time               `gorm:"type:date;not null"`
	Method      invoicing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference   string                  `gorm:"type:varchar(255)"`
	CreatedAt   time.Time               `gorm:"not null"`
}

// TableName returns the table name for GORM
func (InvoicePaymentModel) TableName() string {
	return "invoice_payments"
}

// InvoiceModelFromDomain builds the persistence model of an invoice
func InvoiceModelFromDomain(inv *invoicing.Invoice) *InvoiceModel {
	s := inv.Snapshot()
	m := &InvoiceModel{
		AggregateModel: aggregateColumns(s.ID, s.CreatedAt, s.UpdatedAt),
		CustomerID:     s.CustomerID,
		InvoiceNumber:  s.InvoiceNumber,
		IssueDate:      s.IssueDate,
		DueDate:        s.DueDate,
		Status:         s.Status,
		Currency:       string(s.Currency),
		Notes:          s.Notes,
		TaxRate:        s.TaxRate,
		LineItems:      make([]InvoiceLineItemModel, len(s.LineItems)),
		Payments:       make([]InvoicePaymentModel, len(s.Payments)),
	}
	for i, item := range s.LineItems {
		m.LineItems[i] = InvoiceLineItemModel{
			InvoiceID:   s.ID,
			Position:    i + 1,
			Description: item.Description(),
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice().Amount(),
			Currency:    string(item.Currency()),
		}
	}
	for i, p := range s.Payments {
		m.Payments[i] = InvoicePaymentModel{
			ID:          p.ID(),
			InvoiceID:   s.ID,
			Position:    i + 1,
			Amount:      p.Amount().Amount(),
			Currency:    string(p.Amount().Currency()),
			PaymentDate: p.PaymentDate(),
			Method:      p.Method(),
			Reference:   p.Reference(),
			CreatedAt:   s.UpdatedAt,
		}
	}
	return m
}

// ToDomain rebuilds the invoice aggregate. LineItems and Payments must be
// loaded and ordered by position.
func (m *InvoiceModel) ToDomain() (*invoicing.Invoice, error) {
	items := make([]invoicing.LineItem, 0, len(m.LineItems))
	for _, row := range m.LineItems {
		price, err := valueobject.NewMoney(row.UnitPrice, valueobject.Currency(row.Currency))
		if err != nil {
			return nil, fmt.Errorf("invoice %s line %d: %w", m.ID, row.Position, err)
		}
		item, err := invoicing.NewLineItem(row.Description, row.Quantity, price)
		if err != nil {
			return nil, fmt.Errorf("invoice %s line %d: %w", m.ID, row.Position, err)
		}
		items = append(items, item)
	}

	payments := make([]invoicing.Payment, 0, len(m.Payments))
	for _, row := range m.Payments {
		amount, err := valueobject.NewMoney(row.Amount, valueobject.Currency(row.Currency))
		if err != nil {
			return nil, fmt.Errorf("invoice %s payment %s: %w", m.ID, row.ID, err)
		}
		p, err := invoicing.NewPayment(row.ID, amount, row.PaymentDate, row.Method, row.Reference)
		if err != nil {
			return nil, fmt.Errorf("invoice %s payment %s: %w", m.ID, row.ID, err)
		}
		payments = append(payments, p)
	}

	return invoicing.RestoreInvoice(invoicing.InvoiceSnapshot{
		ID:            m.ID,
		CustomerID:    m.CustomerID,
		InvoiceNumber: m.InvoiceNumber,
		IssueDate:     m.IssueDate.UTC(),
		DueDate:       m.DueDate.UTC(),
		Status:        m.Status,
		Currency:      valueobject.Currency(m.Currency),
		LineItems:     items,
		Payments:      payments,
		Notes:         m.Notes,
		TaxRate:       m.TaxRate,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	})
}
