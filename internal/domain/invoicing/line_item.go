package invoicing

import (
	"strings"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// LineItem is an immutable billed entry. It has no identity and is equal
// to another line item with the same description, quantity and price.
type LineItem struct {
	description string
	quantity    decimal.Decimal
	unitPrice   valueobject.Money
}

// NewLineItem validates and creates a line item
func NewLineItem(description string, quantity decimal.Decimal, unitPrice valueobject.Money) (LineItem, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return LineItem{}, shared.NewValidationError(CodeInvalidLineItem, "line item description cannot be empty")
	}
	if !quantity.IsPositive() {
		return LineItem{}, shared.NewValidationError(CodeInvalidLineItem, "line item quantity must be positive")
	}
	if unitPrice.Currency() == "" {
		return LineItem{}, shared.NewValidationError(CodeInvalidLineItem, "line item unit price requires a currency")
	}
	if unitPrice.IsNegative() {
		return LineItem{}, shared.NewValidationError(CodeInvalidLineItem, "line item unit price cannot be negative")
	}
	return LineItem{
		description: description,
		quantity:    quantity,
		unitPrice:   unitPrice,
	}, nil
}

func (li LineItem) Description() string            { return li.description }
func (li LineItem) Quantity() decimal.Decimal      { return li.quantity }
func (li LineItem) UnitPrice() valueobject.Money   { return li.unitPrice }
func (li LineItem) Currency() valueobject.Currency { return li.unitPrice.Currency() }

// Subtotal returns quantity times unit price, rounded to minor units
func (li LineItem) Subtotal() valueobject.Money {
	return li.unitPrice.Multiply(li.quantity).Round()
}

// Equals compares line items by value
func (li LineItem) Equals(other LineItem) bool {
	return li.description == other.description &&
		li.quantity.Equal(other.quantity) &&
		li.unitPrice.Equals(other.unitPrice)
}

// isZero detects line items that did not come from NewLineItem
func (li LineItem) isZero() bool {
	return li.description == "" || !li.quantity.IsPositive()
}
