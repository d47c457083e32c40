package invoicing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
)

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// PaymentMethods lists every accepted method
var PaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodBankTransfer,
	PaymentMethodCard,
	PaymentMethodCheck,
	PaymentMethodOther,
}

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// ParsePaymentMethod parses a method name, case-insensitively
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("unknown payment method %q", s)
	}
	return m, nil
}

const maxReferenceLength = 255

// Payment is an amount received against an invoice. It has no effect until
// applied through Invoice.RecordPayment and is never mutated afterwards.
type Payment struct {
	id          uuid.UUID
	amount      valueobject.Money
	paymentDate time.Time
	method      PaymentMethod
	reference   string
}

// NewPayment validates and creates a payment
func NewPayment(id uuid.UUID, amount valueobject.Money, paymentDate time.Time, method PaymentMethod, reference string) (Payment, error) {
	if id == uuid.Nil {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, "payment id is required")
	}
	if amount.Currency() == "" {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, "payment amount requires a currency")
	}
	if !amount.IsPositive() {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, "payment amount must be positive")
	}
	if paymentDate.IsZero() {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, "payment date is required")
	}
	if !method.IsValid() {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, fmt.Sprintf("unknown payment method %q", method))
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > maxReferenceLength {
		return Payment{}, shared.NewValidationError(CodeInvalidPayment, "payment reference is too long")
	}
	return Payment{
		id:          id,
		amount:      amount,
		paymentDate: dateOnly(paymentDate),
		method:      method,
		reference:   reference,
	}, nil
}

func (p Payment) ID() uuid.UUID             { return p.id }
func (p Payment) Amount() valueobject.Money { return p.amount }
func (p Payment) PaymentDate() time.Time    { return p.paymentDate }
func (p Payment) Method() PaymentMethod     { return p.method }
func (p Payment) Reference() string         { return p.reference }
