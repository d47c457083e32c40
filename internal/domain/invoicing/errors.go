package invoicing

import (
	"fmt"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
)

// Error codes raised by the invoice aggregate
const (
	CodeInvalidInvoice         = "INVALID_INVOICE"
	CodeNoLineItems            = "INVOICE_NO_LINE_ITEMS"
	CodeInvalidLineItem        = "INVALID_LINE_ITEM"
	CodeMixedCurrency          = "INVOICE_MIXED_CURRENCY"
	CodeInvalidTaxRate         = "INVALID_TAX_RATE"
	CodeInvalidDueDate         = "INVALID_DUE_DATE"
	CodeInvalidPayment         = "INVALID_PAYMENT"
	CodePaymentCurrency        = "PAYMENT_CURRENCY_MISMATCH"
	CodeDuplicatePayment       = "DUPLICATE_PAYMENT"
	CodeInvalidState           = "INVOICE_INVALID_STATE"
	CodePaymentExceedsBalance  = "PAYMENT_EXCEEDS_BALANCE"
	CodeTotalBelowAmountPaid   = "INVOICE_TOTAL_BELOW_AMOUNT_PAID"
	CodeDuplicateInvoiceNumber = "DUPLICATE_INVOICE_NUMBER"
)

// PaymentExceedsBalanceError is returned when a payment is larger than the
// outstanding balance. It unwraps to a business rule DomainError.
type PaymentExceedsBalanceError struct {
	Amount  valueobject.Money
	Balance valueobject.Money
}

func (e *PaymentExceedsBalanceError) Error() string {
	return fmt.Sprintf("payment of %s exceeds outstanding balance of %s", e.Amount, e.Balance)
}

func (e *PaymentExceedsBalanceError) Unwrap() error {
	return shared.NewBusinessRuleError(CodePaymentExceedsBalance, e.Error())
}
