package valueobject

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	t.Run("creates money with valid amount and currency", func(t *testing.T) {
		m, err := NewMoney(decimal.RequireFromString("100.50"), USD)
		require.NoError(t, err)
		assert.Equal(t, USD, m.Currency())
		assert.True(t, m.Amount().Equal(decimal.RequireFromString("100.5")))
	})

	t.Run("returns error for empty currency", func(t *testing.T) {
		_, err := NewMoney(decimal.NewFromInt(100), "")
		assert.ErrorContains(t, err, "currency cannot be empty")
	})

	t.Run("invalid string", func(t *testing.T) {
		_, err := NewMoneyFromString("not-a-number", USD)
		assert.Error(t, err)
	})
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, USD, c)

	for _, bad := range []string{"", "US", "USDX", "U$D"} {
		_, err := ParseCurrency(bad)
		assert.Error(t, err, bad)
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := MustMoney("10.005", USD)
	b := MustMoney("0.005", USD)

	t.Run("add keeps full precision", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, "10.01", sum.Amount().String())
	})

	t.Run("multiply does not round", func(t *testing.T) {
		assert.Equal(t, "1.0005", a.Multiply(decimal.RequireFromString("0.1")).Amount().String())
	})

	t.Run("currency mismatch returns error", func(t *testing.T) {
		_, err := a.Add(MustMoney("1", EUR))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = a.Subtract(MustMoney("1", EUR))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = a.Compare(MustMoney("1", EUR))
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("must variants panic on mismatch", func(t *testing.T) {
		assert.Panics(t, func() { a.MustAdd(MustMoney("1", EUR)) })
		assert.Panics(t, func() { a.MustSubtract(MustMoney("1", EUR)) })
		assert.Panics(t, func() { a.MustCompare(MustMoney("1", EUR)) })
	})
}

func TestMoney_Round(t *testing.T) {
	tests := []struct {
		in       string
		currency Currency
		want     string
	}{
		{"10.005", USD, "10.01"},
		{"10.004", USD, "10"},
		{"-10.005", USD, "-10.01"},
		{"99.5", JPY, "100"},
		{"99.4", JPY, "99"},
	}
	for _, tt := range tests {
		t.Run(tt.in+" "+string(tt.currency), func(t *testing.T) {
			got := MustMoney(tt.in, tt.currency).Round()
			assert.Equal(t, tt.want, got.Amount().String())
		})
	}
}

func TestMoney_Compare(t *testing.T) {
	t.Run("compares after rounding", func(t *testing.T) {
		cmp, err := MustMoney("10.004", USD).Compare(MustMoney("10.00", USD))
		require.NoError(t, err)
		assert.Equal(t, 0, cmp)
	})

	t.Run("orders amounts", func(t *testing.T) {
		assert.Equal(t, -1, MustMoney("1", USD).MustCompare(MustMoney("2", USD)))
		assert.Equal(t, 1, MustMoney("2", USD).MustCompare(MustMoney("1.994", USD)))
	})
}

func TestMoney_IsEffectivelyZero(t *testing.T) {
	tests := []struct {
		amount   string
		currency Currency
		want     bool
	}{
		{"0", USD, true},
		{"0.004", USD, true},
		{"-0.009", USD, true},
		{"0.01", USD, false},
		{"0.005", USD, true},
		{"0.9", JPY, true},
		{"1", JPY, false},
	}
	for _, tt := range tests {
		t.Run(tt.amount+" "+string(tt.currency), func(t *testing.T) {
			assert.Equal(t, tt.want, MustMoney(tt.amount, tt.currency).IsEffectivelyZero())
		})
	}
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "220.00 USD", MustMoney("220", USD).String())
	assert.Equal(t, "1235 JPY", MustMoney("1234.5", JPY).String())
}

func TestMoney_JSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		m := MustMoney("12.345", EUR)
		data, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{"amount":"12.345","currency":"EUR"}`, string(data))

		var back Money
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, m.Equals(back))
	})

	t.Run("rejects missing currency", func(t *testing.T) {
		var m Money
		assert.Error(t, json.Unmarshal([]byte(`{"amount":"1"}`), &m))
	})
}
