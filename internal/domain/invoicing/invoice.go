package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AggregateTypeInvoice is the aggregate type recorded on invoice events
const AggregateTypeInvoice = "Invoice"

const maxInvoiceNumberLength = 64

// Invoice is the aggregate root for a customer bill. Every mutation
// validates completely before changing state, so a failed command leaves
// the invoice untouched. Successful mutations buffer domain events that
// the caller drains with PullDomainEvents after persisting.
type Invoice struct {
	shared.BaseAggregateRoot
	customerID    uuid.UUID
	invoiceNumber string
	issueDate     time.Time
	dueDate       time.Time
	status        InvoiceStatus
	currency      valueobject.Currency
	lineItems     []LineItem
	payments      []Payment
	notes         string
	taxRate       decimal.Decimal
}

var _ shared.AggregateRoot = (*Invoice)(nil)

// NewInvoice creates a DRAFT invoice and buffers InvoiceCreated
func NewInvoice(
	id uuid.UUID,
	customerID uuid.UUID,
	invoiceNumber string,
	issueDate time.Time,
	dueDate time.Time,
	lineItems []LineItem,
	notes string,
	taxRate decimal.Decimal,
) (*Invoice, error) {
	invoiceNumber = strings.TrimSpace(invoiceNumber)
	if id == uuid.Nil {
		return nil, shared.NewValidationError(CodeInvalidInvoice, "invoice id is required")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewValidationError(CodeInvalidInvoice, "customer id is required")
	}
	if invoiceNumber == "" {
		return nil, shared.NewValidationError(CodeInvalidInvoice, "invoice number cannot be empty")
	}
	if len(invoiceNumber) > maxInvoiceNumberLength {
		return nil, shared.NewValidationError(CodeInvalidInvoice, "invoice number is too long")
	}
	if issueDate.IsZero() {
		return nil, shared.NewValidationError(CodeInvalidInvoice, "issue date is required")
	}
	if err := validateDueDate(issueDate, dueDate); err != nil {
		return nil, err
	}
	currency, err := validateLineItems(lineItems)
	if err != nil {
		return nil, err
	}
	if err := validateTaxRate(taxRate); err != nil {
		return nil, err
	}

	inv := &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(shared.NewBaseEntity(id)),
		customerID:        customerID,
		invoiceNumber:     invoiceNumber,
		issueDate:         dateOnly(issueDate),
		dueDate:           dateOnly(dueDate),
		status:            StatusDraft,
		currency:          currency,
		lineItems:         copyLineItems(lineItems),
		payments:          make([]Payment, 0),
		notes:             strings.TrimSpace(notes),
		taxRate:           taxRate,
	}
	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))
	return inv, nil
}

// InvoiceSnapshot is the persisted state of an invoice
type InvoiceSnapshot struct {
	ID            uuid.UUID
	CustomerID    uuid.UUID
	InvoiceNumber string
	IssueDate     time.Time
	DueDate       time.Time
	Status        InvoiceStatus
	Currency      valueobject.Currency
	LineItems     []LineItem
	Payments      []Payment
	Notes         string
	TaxRate       decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RestoreInvoice rebuilds an invoice from persisted state without raising
// events. Stored rows are authoritative, so only structural checks apply.
func RestoreInvoice(s InvoiceSnapshot) (*Invoice, error) {
	if s.ID == uuid.Nil {
		return nil, fmt.Errorf("restore invoice: missing id")
	}
	if !s.Status.IsValid() {
		return nil, fmt.Errorf("restore invoice %s: unknown status %q", s.ID, s.Status)
	}
	currency := s.Currency
	if currency == "" && len(s.LineItems) > 0 {
		currency = s.LineItems[0].Currency()
	}
	payments := make([]Payment, len(s.Payments))
	copy(payments, s.Payments)
	return &Invoice{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(shared.BaseEntity{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		}),
		customerID:    s.CustomerID,
		invoiceNumber: s.InvoiceNumber,
		issueDate:     s.IssueDate,
		dueDate:       s.DueDate,
		status:        s.Status,
		currency:      currency,
		lineItems:     copyLineItems(s.LineItems),
		payments:      payments,
		notes:         s.Notes,
		taxRate:       s.TaxRate,
	}, nil
}

// Snapshot exports the invoice state for persistence
func (inv *Invoice) Snapshot() InvoiceSnapshot {
	return InvoiceSnapshot{
		ID:            inv.ID,
		CustomerID:    inv.customerID,
		InvoiceNumber: inv.invoiceNumber,
		IssueDate:     inv.issueDate,
		DueDate:       inv.dueDate,
		Status:        inv.status,
		Currency:      inv.currency,
		LineItems:     inv.LineItems(),
		Payments:      inv.Payments(),
		Notes:         inv.notes,
		TaxRate:       inv.taxRate,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func (inv *Invoice) CustomerID() uuid.UUID          { return inv.customerID }
func (inv *Invoice) InvoiceNumber() string          { return inv.invoiceNumber }
func (inv *Invoice) IssueDate() time.Time           { return inv.issueDate }
func (inv *Invoice) DueDate() time.Time             { return inv.dueDate }
func (inv *Invoice) Status() InvoiceStatus          { return inv.status }
func (inv *Invoice) Currency() valueobject.Currency { return inv.currency }
func (inv *Invoice) Notes() string                  { return inv.notes }
func (inv *Invoice) TaxRate() decimal.Decimal       { return inv.taxRate }

// LineItems returns a copy of the line items
func (inv *Invoice) LineItems() []LineItem {
	return copyLineItems(inv.lineItems)
}

// Payments returns a copy of the applied payments in recording order
func (inv *Invoice) Payments() []Payment {
	out := make([]Payment, len(inv.payments))
	copy(out, inv.payments)
	return out
}

// UpdateLineItems replaces all line items. Only allowed in DRAFT.
func (inv *Invoice) UpdateLineItems(items []LineItem) error {
	if err := inv.require(CommandEdit); err != nil {
		return err
	}
	currency, err := validateLineItems(items)
	if err != nil {
		return err
	}
	if err := inv.checkPaidCoverage(currency, items, inv.taxRate); err != nil {
		return err
	}
	inv.lineItems = copyLineItems(items)
	inv.currency = currency
	inv.touched(FieldLineItems)
	return nil
}

// UpdateDueDate sets a new due date. Only allowed in DRAFT.
func (inv *Invoice) UpdateDueDate(dueDate time.Time) error {
	if err := inv.require(CommandEdit); err != nil {
		return err
	}
	if err := validateDueDate(inv.issueDate, dueDate); err != nil {
		return err
	}
	inv.dueDate = dateOnly(dueDate)
	inv.touched(FieldDueDate)
	return nil
}

// UpdateTaxRate sets a new fractional tax rate. Only allowed in DRAFT.
func (inv *Invoice) UpdateTaxRate(rate decimal.Decimal) error {
	if err := inv.require(CommandEdit); err != nil {
		return err
	}
	if err := validateTaxRate(rate); err != nil {
		return err
	}
	if err := inv.checkPaidCoverage(inv.currency, inv.lineItems, rate); err != nil {
		return err
	}
	inv.taxRate = rate
	inv.touched(FieldTaxRate)
	return nil
}

// UpdateNotes replaces the free-form notes. Only allowed in DRAFT.
func (inv *Invoice) UpdateNotes(notes string) error {
	if err := inv.require(CommandEdit); err != nil {
		return err
	}
	inv.notes = strings.TrimSpace(notes)
	inv.touched(FieldNotes)
	return nil
}

// Send issues a DRAFT invoice to the customer
func (inv *Invoice) Send() error {
	if err := inv.require(CommandSend); err != nil {
		return err
	}
	if err := inv.transitionTo(StatusSent); err != nil {
		return err
	}
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceSentEvent(inv))
	return nil
}

// RecordPayment applies a payment against the outstanding balance. The
// payment is compared to the balance after rounding both to minor units.
// When the remaining balance becomes effectively zero the invoice is PAID
// and InvoicePaid is buffered after PaymentRecorded.
func (inv *Invoice) RecordPayment(p Payment) error {
	if err := inv.require(CommandRecordPayment); err != nil {
		return err
	}
	if p.id == uuid.Nil {
		return shared.NewValidationError(CodeInvalidPayment, "payment was not created with NewPayment")
	}
	if p.amount.Currency() != inv.currency {
		return shared.NewValidationError(CodePaymentCurrency,
			fmt.Sprintf("payment currency %s does not match invoice currency %s", p.amount.Currency(), inv.currency))
	}
	for _, existing := range inv.payments {
		if existing.id == p.id {
			return shared.NewValidationError(CodeDuplicatePayment, fmt.Sprintf("payment %s already recorded", p.id))
		}
	}
	balance := inv.CalculateBalance()
	if p.amount.MustCompare(balance) > 0 {
		return &PaymentExceedsBalanceError{Amount: p.amount, Balance: balance.Round()}
	}

	settles := balance.MustSubtract(p.amount).IsEffectivelyZero()
	if settles && !inv.status.CanTransitionTo(StatusPaid) {
		return inv.stateError(CommandRecordPayment)
	}

	inv.payments = append(inv.payments, p)
	inv.Touch()
	inv.AddDomainEvent(NewPaymentRecordedEvent(inv, p))
	if settles {
		inv.status = StatusPaid
		inv.AddDomainEvent(NewInvoicePaidEvent(inv))
	}
	return nil
}

// CalculateSubtotal sums the rounded line item subtotals
func (inv *Invoice) CalculateSubtotal() valueobject.Money {
	return subtotalOf(inv.currency, inv.lineItems)
}

// CalculateTax returns subtotal times tax rate, unrounded
func (inv *Invoice) CalculateTax() valueobject.Money {
	return inv.CalculateSubtotal().Multiply(inv.taxRate)
}

// CalculateTotal returns subtotal plus tax, unrounded
func (inv *Invoice) CalculateTotal() valueobject.Money {
	return inv.CalculateSubtotal().MustAdd(inv.CalculateTax())
}

// AmountPaid sums all applied payments
func (inv *Invoice) AmountPaid() valueobject.Money {
	paid := valueobject.Zero(inv.currency)
	for _, p := range inv.payments {
		paid = paid.MustAdd(p.amount)
	}
	return paid
}

// CalculateBalance returns total minus payments, unrounded
func (inv *Invoice) CalculateBalance() valueobject.Money {
	return inv.CalculateTotal().MustSubtract(inv.AmountPaid())
}

// IsOverdue reports whether the due date is before asOf's date and the
// invoice is not PAID
func (inv *Invoice) IsOverdue(asOf time.Time) bool {
	return inv.status != StatusPaid && inv.dueDate.Before(dateOnly(asOf))
}

func (inv *Invoice) require(cmd Command) error {
	if !inv.status.Allows(cmd) {
		return inv.stateError(cmd)
	}
	return nil
}

func (inv *Invoice) stateError(cmd Command) error {
	switch cmd {
	case CommandRecordPayment:
		return shared.NewStateError(CodeInvalidState,
			fmt.Sprintf("cannot record payment on invoice in %s status", inv.status))
	default:
		return shared.NewStateError(CodeInvalidState,
			fmt.Sprintf("invoice must be DRAFT to %s, current status is %s", cmd, inv.status))
	}
}

func (inv *Invoice) transitionTo(target InvoiceStatus) error {
	if !inv.status.CanTransitionTo(target) {
		return shared.NewStateError(CodeInvalidState,
			fmt.Sprintf("cannot transition invoice from %s to %s", inv.status, target))
	}
	inv.status = target
	return nil
}

func (inv *Invoice) touched(field string) {
	inv.Touch()
	inv.AddDomainEvent(NewInvoiceUpdatedEvent(inv, field))
}

// checkPaidCoverage keeps recorded prepayments within the new total and
// leaves a non-zero balance, since only a payment may settle an invoice
func (inv *Invoice) checkPaidCoverage(currency valueobject.Currency, items []LineItem, rate decimal.Decimal) error {
	if len(inv.payments) == 0 {
		return nil
	}
	if currency != inv.currency {
		return shared.NewValidationError(CodeMixedCurrency,
			fmt.Sprintf("line items must stay in %s once payments are recorded", inv.currency))
	}
	subtotal := subtotalOf(currency, items)
	total := subtotal.MustAdd(subtotal.Multiply(rate))
	balance := total.MustSubtract(inv.AmountPaid())
	if balance.IsNegative() || balance.IsEffectivelyZero() {
		return shared.NewBusinessRuleError(CodeTotalBelowAmountPaid,
			fmt.Sprintf("new total %s must exceed amount already paid %s", total.Round(), inv.AmountPaid()))
	}
	return nil
}

func subtotalOf(currency valueobject.Currency, items []LineItem) valueobject.Money {
	sum := valueobject.Zero(currency)
	for _, item := range items {
		sum = sum.MustAdd(item.Subtotal())
	}
	return sum
}

func validateLineItems(items []LineItem) (valueobject.Currency, error) {
	if len(items) == 0 {
		return "", shared.NewValidationError(CodeNoLineItems, "invoice must have at least one line item")
	}
	currency := items[0].Currency()
	for i, item := range items {
		if item.isZero() {
			return "", shared.NewValidationError(CodeInvalidLineItem,
				fmt.Sprintf("line item %d was not created with NewLineItem", i+1))
		}
		if item.Currency() != currency {
			return "", shared.NewValidationError(CodeMixedCurrency,
				fmt.Sprintf("line item %d is in %s, expected %s", i+1, item.Currency(), currency))
		}
	}
	return currency, nil
}

func validateTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return shared.NewValidationError(CodeInvalidTaxRate, "tax rate cannot be negative")
	}
	return nil
}

func validateDueDate(issueDate, dueDate time.Time) error {
	if dueDate.IsZero() {
		return shared.NewValidationError(CodeInvalidDueDate, "due date is required")
	}
	if dateOnly(dueDate).Before(dateOnly(issueDate)) {
		return shared.NewValidationError(CodeInvalidDueDate, "due date cannot be before issue date")
	}
	return nil
}

func copyLineItems(items []LineItem) []LineItem {
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// dateOnly truncates t to midnight UTC of its calendar date
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
