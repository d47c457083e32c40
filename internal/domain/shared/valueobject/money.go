package valueobject

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents an ISO 4217 currency code
type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CNY Currency = "CNY"
	JPY Currency = "JPY"
	HKD Currency = "HKD"
)

// DefaultCurrency is used when a request omits the currency
const DefaultCurrency = USD

// zero-decimal currencies; every other code uses two minor units
var zeroMinorUnitCurrencies = map[Currency]struct{}{
	JPY:   {},
	"KRW": {},
	"VND": {},
	"CLP": {},
	"ISK": {},
}

// ErrCurrencyMismatch is returned by arithmetic across currencies
var ErrCurrencyMismatch = errors.New("currency mismatch")

// ParseCurrency validates and normalizes a three letter currency code
func ParseCurrency(code string) (Currency, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 3 {
		return "", fmt.Errorf("invalid currency code %q", code)
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return "", fmt.Errorf("invalid currency code %q", code)
		}
	}
	return Currency(c), nil
}

// MinorUnits returns the number of decimal places of the currency
func (c Currency) MinorUnits() int32 {
	if _, ok := zeroMinorUnitCurrencies[c]; ok {
		return 0
	}
	return 2
}

// smallestUnit is one minor unit, 0.01 for most currencies
func (c Currency) smallestUnit() decimal.Decimal {
	return decimal.New(1, -c.MinorUnits())
}

// Money is an immutable monetary amount in a single currency.
// Amounts keep full precision; rounding happens only through Round and
// the comparison helpers.
type Money struct {
	amount   decimal.Decimal
	currency Currency
}

// NewMoney creates a new Money with the specified amount and currency
func NewMoney(amount decimal.Decimal, currency Currency) (Money, error) {
	if currency == "" {
		return Money{}, errors.New("currency cannot be empty")
	}
	return Money{amount: amount, currency: currency}, nil
}

// NewMoneyFromString creates Money from a decimal string
func NewMoneyFromString(amount string, currency Currency) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("invalid amount string: %w", err)
	}
	return NewMoney(d, currency)
}

// MustMoney creates Money from a string and panics on malformed input.
// Intended for constants and tests.
func MustMoney(amount string, currency Currency) Money {
	m, err := NewMoneyFromString(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns zero in the specified currency
func Zero(currency Currency) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the unrounded decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the currency code
func (m Money) Currency() Currency {
	return m.currency
}

func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) IsNegative() bool {
	return m.amount.IsNegative()
}

// IsEffectivelyZero reports whether the raw amount is smaller in magnitude
// than one minor unit of the currency. No rounding is applied first, so
// exactly one cent is not effectively zero.
func (m Money) IsEffectivelyZero() bool {
	return m.amount.Abs().LessThan(m.currency.smallestUnit())
}

func (m Money) checkCurrency(op string, other Money) error {
	if m.currency != other.currency {
		return fmt.Errorf("cannot %s %s and %s: %w", op, m.currency, other.currency, ErrCurrencyMismatch)
	}
	return nil
}

// Add returns the sum. Returns ErrCurrencyMismatch if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency("add", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Add(other.amount), currency: m.currency}, nil
}

// MustAdd adds two Money values, panics if currencies don't match
func (m Money) MustAdd(other Money) Money {
	result, err := m.Add(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Subtract returns the difference. Returns ErrCurrencyMismatch if currencies differ.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.checkCurrency("subtract", other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount.Sub(other.amount), currency: m.currency}, nil
}

// MustSubtract subtracts two Money values, panics if currencies don't match
func (m Money) MustSubtract(other Money) Money {
	result, err := m.Subtract(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Multiply returns the product without rounding
func (m Money) Multiply(factor decimal.Decimal) Money {
	return Money{amount: m.amount.Mul(factor), currency: m.currency}
}

// Round rounds half away from zero to the currency's minor units
func (m Money) Round() Money {
	return Money{amount: m.amount.Round(m.currency.MinorUnits()), currency: m.currency}
}

// Compare rounds both operands to minor units and returns -1, 0 or 1.
// Returns ErrCurrencyMismatch if currencies differ.
func (m Money) Compare(other Money) (int, error) {
	if err := m.checkCurrency("compare", other); err != nil {
		return 0, err
	}
	return m.Round().amount.Cmp(other.Round().amount), nil
}

// MustCompare compares two Money values, panics if currencies don't match
func (m Money) MustCompare(other Money) int {
	result, err := m.Compare(other)
	if err != nil {
		panic(err)
	}
	return result
}

// Equals reports exact equality of amount and currency
func (m Money) Equals(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// String renders the amount at the currency's minor units, e.g. "220.00 USD"
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.amount.StringFixed(m.currency.MinorUnits()), m.currency)
}

// StringFixed returns the rounded amount without the currency code
func (m Money) StringFixed() string {
	return m.amount.StringFixed(m.currency.MinorUnits())
}

type moneyJSON struct {
	Amount   string   `json:"amount"`
	Currency Currency `json:"currency"`
}

// MarshalJSON implements json.Marshaler
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyJSON{Amount: m.amount.String(), Currency: m.currency})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Money) UnmarshalJSON(data []byte) error {
	var v moneyJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := NewMoneyFromString(v.Amount, v.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
