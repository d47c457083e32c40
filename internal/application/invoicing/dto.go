package invoicing

import (
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of calendar dates
const DateLayout = "2006-01-02"

// ==================== Invoice Command DTOs ====================

// CreateInvoiceRequest represents a request to create a draft invoice
type CreateInvoiceRequest struct {
	CustomerID    uuid.UUID       `json:"customer_id" binding:"required"`
	InvoiceNumber string          `json:"invoice_number" binding:"required,min=1,max=64"`
	IssueDate     string          `json:"issue_date" binding:"required,datetime=2006-01-02"`
	DueDate       string          `json:"due_date" binding:"required,datetime=2006-01-02"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	LineItems     []LineItemInput `json:"line_items" binding:"required,min=1,dive"`
	Notes         string          `json:"notes" binding:"max=2000"`
	TaxRate       decimal.Decimal `json:"tax_rate"`
}

// LineItemInput represents one line of an invoice. The currency of the
// unit price is the invoice currency.
type LineItemInput struct {
	Description string          `json:"description" binding:"required,min=1,max=500"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price" binding:"required"`
}

// UpdateLineItemsRequest replaces all line items of a draft invoice
type UpdateLineItemsRequest struct {
	LineItems []LineItemInput `json:"line_items" binding:"required,min=1,dive"`
}

// UpdateDueDateRequest changes the due date of a draft invoice
type UpdateDueDateRequest struct {
	DueDate string `json:"due_date" binding:"required,datetime=2006-01-02"`
}

// UpdateTaxRateRequest changes the tax rate of a draft invoice
type UpdateTaxRateRequest struct {
	TaxRate decimal.Decimal `json:"tax_rate"`
}

// UpdateNotesRequest changes the notes of a draft invoice
type UpdateNotesRequest struct {
	Notes string `json:"notes" binding:"max=2000"`
}

// RecordPaymentRequest represents a payment against an invoice.
// PaymentID lets clients retry safely; a repeated id is rejected.
type RecordPaymentRequest struct {
	PaymentID   *uuid.UUID      `json:"payment_id"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Currency    string          `json:"currency" binding:"omitempty,len=3"`
	PaymentDate string          `json:"payment_date" binding:"required,datetime=2006-01-02"`
	Method      string          `json:"method" binding:"required,payment_method"`
	Reference   string          `json:"reference" binding:"max=255"`
}

// ListInvoicesFilter holds the query parameters of an invoice listing
type ListInvoicesFilter struct {
	CustomerID string `form:"customer_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=DRAFT SENT PAID CANCELED"`
	Overdue    bool   `form:"overdue"`
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ==================== Invoice Response DTOs ====================

// InvoiceResponse is the detail view of an invoice with computed amounts
type InvoiceResponse struct {
	ID            uuid.UUID          `json:"id"`
	CustomerID    uuid.UUID          `json:"customer_id"`
	InvoiceNumber string             `json:"invoice_number"`
	IssueDate     string             `json:"issue_date"`
	DueDate       string             `json:"due_date"`
	Status        string             `json:"status"`
	Currency      string             `json:"currency"`
	LineItems     []LineItemResponse `json:"line_items"`
	Payments      []PaymentResponse  `json:"payments"`
	Notes         string             `json:"notes"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	Subtotal      decimal.Decimal    `json:"subtotal"`
	Tax           decimal.Decimal    `json:"tax"`
	Total         decimal.Decimal    `json:"total"`
	AmountPaid    decimal.Decimal    `json:"amount_paid"`
	Balance       decimal.Decimal    `json:"balance"`
	IsOverdue     bool               `json:"is_overdue"`
	Version       int                `json:"version"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// LineItemResponse is one line of an invoice
type LineItemResponse struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// PaymentResponse is one applied payment
type PaymentResponse struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate string          `json:"payment_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference,omitempty"`
}

// InvoiceSummaryResponse is the list view of an invoice
type InvoiceSummaryResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	CustomerID    uuid.UUID       `json:"customer_id"`
	Status        string          `json:"status"`
	Currency      string          `json:"currency"`
	IssueDate     string          `json:"issue_date"`
	DueDate       string          `json:"due_date"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	Balance       decimal.Decimal `json:"balance"`
	IsOverdue     bool            `json:"is_overdue"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CustomerBalanceResponse is a customer's outstanding balance in one currency
type CustomerBalanceResponse struct {
	Currency        string          `json:"currency"`
	OpenInvoices    int             `json:"open_invoices"`
	OverdueInvoices int             `json:"overdue_invoices"`
	Outstanding     decimal.Decimal `json:"outstanding"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
}

// CustomerStatementResponse lists a customer's unpaid invoices with totals
type CustomerStatementResponse struct {
	CustomerID uuid.UUID                 `json:"customer_id"`
	AsOf       string                    `json:"as_of"`
	Balances   []CustomerBalanceResponse `json:"balances"`
	Invoices   []InvoiceSummaryResponse  `json:"invoices"`
}

// ToInvoiceResponse converts an invoice aggregate to its detail view
func ToInvoiceResponse(inv *invoicing.Invoice, version invoicing.Version, asOf time.Time) InvoiceResponse {
	items := inv.LineItems()
	lineItems := make([]LineItemResponse, len(items))
	for i, item := range items {
		lineItems[i] = LineItemResponse{
			Description: item.Description(),
			Quantity:    item.Quantity(),
			UnitPrice:   item.UnitPrice().Amount(),
			Subtotal:    item.Subtotal().Round().Amount(),
		}
	}

	recorded := inv.Payments()
	payments := make([]PaymentResponse, len(recorded))
	for i, p := range recorded {
		payments[i] = PaymentResponse{
			ID:          p.ID(),
			Amount:      p.Amount().Amount(),
			PaymentDate: p.PaymentDate().Format(DateLayout),
			Method:      string(p.Method()),
			Reference:   p.Reference(),
		}
	}

	return InvoiceResponse{
		ID:            inv.ID,
		CustomerID:    inv.CustomerID(),
		InvoiceNumber: inv.InvoiceNumber(),
		IssueDate:     inv.IssueDate().Format(DateLayout),
		DueDate:       inv.DueDate().Format(DateLayout),
		Status:        inv.Status().String(),
		Currency:      string(inv.Currency()),
		LineItems:     lineItems,
		Payments:      payments,
		Notes:         inv.Notes(),
		TaxRate:       inv.TaxRate(),
		Subtotal:      inv.CalculateSubtotal().Round().Amount(),
		Tax:           inv.CalculateTax().Round().Amount(),
		Total:         inv.CalculateTotal().Round().Amount(),
		AmountPaid:    inv.AmountPaid().Round().Amount(),
		Balance:       inv.CalculateBalance().Round().Amount(),
		IsOverdue:     inv.IsOverdue(asOf),
		Version:       int(version),
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

// ToInvoiceSummaryResponse converts a read model summary
func ToInvoiceSummaryResponse(s invoicing.InvoiceSummary) InvoiceSummaryResponse {
	return InvoiceSummaryResponse{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		CustomerID:    s.CustomerID,
		Status:        s.Status.String(),
		Currency:      string(s.Currency),
		IssueDate:     s.IssueDate.Format(DateLayout),
		DueDate:       s.DueDate.Format(DateLayout),
		Subtotal:      s.Subtotal,
		Tax:           s.Tax,
		Total:         s.Total,
		AmountPaid:    s.AmountPaid,
		Balance:       s.Balance,
		IsOverdue:     s.IsOverdue,
		UpdatedAt:     s.UpdatedAt,
	}
}

// ToInvoiceSummaryResponses converts a slice of summaries
func ToInvoiceSummaryResponses(summaries []invoicing.InvoiceSummary) []InvoiceSummaryResponse {
	responses := make([]InvoiceSummaryResponse, len(summaries))
	for i, s := range summaries {
		responses[i] = ToInvoiceSummaryResponse(s)
	}
	return responses
}

// ToCustomerStatementResponse converts a customer statement
func ToCustomerStatementResponse(st *invoicing.CustomerStatement) CustomerStatementResponse {
	balances := make([]CustomerBalanceResponse, len(st.Balances))
	for i, b := range st.Balances {
		balances[i] = CustomerBalanceResponse{
			Currency:        string(b.Currency),
			OpenInvoices:    b.OpenInvoices,
			OverdueInvoices: b.OverdueInvoices,
			Outstanding:     b.Outstanding,
			OverdueAmount:   b.OverdueAmount,
		}
	}
	return CustomerStatementResponse{
		CustomerID: st.CustomerID,
		AsOf:       st.AsOf.Format(DateLayout),
		Balances:   balances,
		Invoices:   ToInvoiceSummaryResponses(st.Invoices),
	}
}

// toInvoiceFilter converts listing query parameters into a repository filter
func (f ListInvoicesFilter) toInvoiceFilter() (invoicing.InvoiceFilter, error) {
	filter := invoicing.InvoiceFilter{
		OverdueOnly: f.Overdue,
		PageRequest: shared.PageRequest{Page: f.Page, PageSize: f.PageSize}.Normalize(),
	}
	if f.CustomerID != "" {
		id, err := uuid.Parse(f.CustomerID)
		if err != nil {
			return filter, shared.NewValidationError("INVALID_CUSTOMER_ID", "customer_id must be a UUID")
		}
		filter.CustomerID = &id
	}
	if f.Status != "" {
		status, err := invoicing.ParseInvoiceStatus(f.Status)
		if err != nil {
			return filter, shared.NewValidationError("INVALID_STATUS", err.Error())
		}
		filter.Status = &status
	}
	return filter, nil
}
