package invoicing

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	issueDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	dueDate   = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
)

func usd(amount string) valueobject.Money {
	return valueobject.MustMoney(amount, valueobject.USD)
}

func mustLineItem(t *testing.T, desc, qty, price string) LineItem {
	t.Helper()
	item, err := NewLineItem(desc, decimal.RequireFromString(qty), usd(price))
	require.NoError(t, err)
	return item
}

func mustPayment(t *testing.T, amount valueobject.Money) Payment {
	t.Helper()
	p, err := NewPayment(uuid.New(), amount, issueDate.AddDate(0, 0, 5), PaymentMethodBankTransfer, "wire-001")
	require.NoError(t, err)
	return p
}

// newTestInvoice builds 2 x 100.00 + 1 x 50.00 at 10% tax, total 275.00
func newTestInvoice(t *testing.T) *Invoice {
	t.Helper()
	items := []LineItem{
		mustLineItem(t, "Consulting", "2", "100.00"),
		mustLineItem(t, "Setup fee", "1", "50.00"),
	}
	inv, err := NewInvoice(uuid.New(), uuid.New(), "INV-0001", issueDate, dueDate, items, "thanks", decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	return inv
}

func eventTypes(events []shared.DomainEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

func TestNewInvoice(t *testing.T) {
	t.Run("creates draft with computed amounts", func(t *testing.T) {
		inv := newTestInvoice(t)

		assert.Equal(t, StatusDraft, inv.Status())
		assert.Equal(t, valueobject.USD, inv.Currency())
		assert.Equal(t, "250", inv.CalculateSubtotal().Amount().String())
		assert.Equal(t, "25", inv.CalculateTax().Amount().String())
		assert.Equal(t, "275", inv.CalculateTotal().Amount().String())
		assert.Equal(t, "275", inv.CalculateBalance().Amount().String())
		assert.Empty(t, inv.Payments())

		events := inv.PullDomainEvents()
		require.Len(t, events, 1)
		created, ok := events[0].(*InvoiceCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, inv.ID, created.InvoiceID)
		assert.Equal(t, inv.CustomerID(), created.CustomerID)
		assert.Equal(t, "INV-0001", created.InvoiceNumber)
		assert.Equal(t, AggregateTypeInvoice, created.AggregateType())
	})

	t.Run("truncates dates to calendar days", func(t *testing.T) {
		items := []LineItem{mustLineItem(t, "Item", "1", "10")}
		inv, err := NewInvoice(uuid.New(), uuid.New(), "INV-2", issueDate.Add(15*time.Hour), dueDate.Add(3*time.Hour), items, "", decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, issueDate, inv.IssueDate())
		assert.Equal(t, dueDate, inv.DueDate())
	})

	items := []LineItem{mustLineItem(t, "Item", "1", "10")}
	tests := []struct {
		name     string
		id       uuid.UUID
		customer uuid.UUID
		number   string
		due      time.Time
		items    []LineItem
		rate     decimal.Decimal
		code     string
	}{
		{"no line items", uuid.New(), uuid.New(), "INV-1", dueDate, nil, decimal.Zero, CodeNoLineItems},
		{"negative tax rate", uuid.New(), uuid.New(), "INV-1", dueDate, items, decimal.RequireFromString("-0.01"), CodeInvalidTaxRate},
		{"blank invoice number", uuid.New(), uuid.New(), "   ", dueDate, items, decimal.Zero, CodeInvalidInvoice},
		{"missing customer", uuid.New(), uuid.Nil, "INV-1", dueDate, items, decimal.Zero, CodeInvalidInvoice},
		{"missing id", uuid.Nil, uuid.New(), "INV-1", dueDate, items, decimal.Zero, CodeInvalidInvoice},
		{"due before issue", uuid.New(), uuid.New(), "INV-1", issueDate.AddDate(0, 0, -1), items, decimal.Zero, CodeInvalidDueDate},
		{"zero value line item", uuid.New(), uuid.New(), "INV-1", dueDate, []LineItem{{}}, decimal.Zero, CodeInvalidLineItem},
		{"mixed currencies", uuid.New(), uuid.New(), "INV-1", dueDate, []LineItem{
			items[0],
			func() LineItem {
				li, err := NewLineItem("Euro item", decimal.NewFromInt(1), valueobject.MustMoney("5", valueobject.EUR))
				require.NoError(t, err)
				return li
			}(),
		}, decimal.Zero, CodeMixedCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv, err := NewInvoice(tt.id, tt.customer, tt.number, issueDate, tt.due, tt.items, "", tt.rate)
			assert.Nil(t, inv)
			require.Error(t, err)
			assert.True(t, shared.IsValidationError(err))
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
		})
	}
}

func TestInvoice_DraftEdits(t *testing.T) {
	t.Run("replaces line items wholesale", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		err := inv.UpdateLineItems([]LineItem{mustLineItem(t, "Audit", "3", "10.00")})
		require.NoError(t, err)
		require.Len(t, inv.LineItems(), 1)
		assert.Equal(t, "33", inv.CalculateTotal().Amount().String())

		events := inv.PullDomainEvents()
		require.Len(t, events, 1)
		updated := events[0].(*InvoiceUpdatedEvent)
		assert.Equal(t, FieldLineItems, updated.Field)
	})

	t.Run("rejects empty line items and keeps state", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		err := inv.UpdateLineItems(nil)
		assert.True(t, shared.IsValidationError(err))
		assert.Len(t, inv.LineItems(), 2)
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("updates due date tax rate and notes", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		require.NoError(t, inv.UpdateDueDate(dueDate.AddDate(0, 1, 0)))
		require.NoError(t, inv.UpdateTaxRate(decimal.Zero))
		require.NoError(t, inv.UpdateNotes("  net 60  "))

		assert.Equal(t, dueDate.AddDate(0, 1, 0), inv.DueDate())
		assert.Equal(t, "250", inv.CalculateTotal().Amount().String())
		assert.Equal(t, "net 60", inv.Notes())
		assert.Equal(t, []string{EventTypeInvoiceUpdated, EventTypeInvoiceUpdated, EventTypeInvoiceUpdated}, eventTypes(inv.PullDomainEvents()))
	})

	t.Run("tax rate has no upper bound and keeps its scale", func(t *testing.T) {
		inv := newTestInvoice(t)

		require.NoError(t, inv.UpdateTaxRate(decimal.RequireFromString("1.5")))
		assert.Equal(t, "625", inv.CalculateTotal().Amount().String())

		require.NoError(t, inv.UpdateTaxRate(decimal.RequireFromString("0.0000004")))
		assert.Equal(t, "0.0000004", inv.TaxRate().String())
	})

	t.Run("rejects invalid header values", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		assert.True(t, shared.IsValidationError(inv.UpdateDueDate(issueDate.AddDate(0, 0, -1))))
		assert.True(t, shared.IsValidationError(inv.UpdateTaxRate(decimal.NewFromInt(-1))))
		assert.Equal(t, dueDate, inv.DueDate())
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("edits are rejected once sent", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Send())
		inv.PullDomainEvents()

		errs := []error{
			inv.UpdateLineItems([]LineItem{mustLineItem(t, "X", "1", "1")}),
			inv.UpdateDueDate(dueDate.AddDate(0, 0, 1)),
			inv.UpdateTaxRate(decimal.Zero),
			inv.UpdateNotes("late"),
		}
		for _, err := range errs {
			assert.True(t, shared.IsStateError(err), "%v", err)
		}
		assert.Equal(t, "thanks", inv.Notes())
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("edits cannot push total to or below amount prepaid", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("100.00"))))
		require.NoError(t, inv.UpdateTaxRate(decimal.Zero))
		inv.PullDomainEvents()

		err := inv.UpdateLineItems([]LineItem{mustLineItem(t, "Small", "1", "50.00")})
		assert.True(t, shared.IsBusinessRuleError(err))

		err = inv.UpdateLineItems([]LineItem{mustLineItem(t, "Exact", "1", "100.00")})
		assert.True(t, shared.IsBusinessRuleError(err), "total equal to amount paid would settle without a payment")

		assert.Equal(t, "150", inv.CalculateBalance().Amount().String())
		assert.Empty(t, inv.PullDomainEvents())
	})
}

func TestInvoice_Send(t *testing.T) {
	inv := newTestInvoice(t)
	inv.PullDomainEvents()

	require.NoError(t, inv.Send())
	assert.Equal(t, StatusSent, inv.Status())
	events := inv.PullDomainEvents()
	require.Len(t, events, 1)
	sent := events[0].(*InvoiceSentEvent)
	assert.Equal(t, inv.ID, sent.InvoiceID)
	assert.Equal(t, "INV-0001", sent.InvoiceNumber)

	err := inv.Send()
	require.Error(t, err)
	assert.True(t, shared.IsStateError(err))
	assert.Contains(t, err.Error(), "invoice must be DRAFT to send")
	assert.Empty(t, inv.PullDomainEvents())
}

func TestInvoice_RecordPayment(t *testing.T) {
	t.Run("exact payment settles and emits both events in order", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Send())
		inv.PullDomainEvents()

		p := mustPayment(t, usd("275.00"))
		require.NoError(t, inv.RecordPayment(p))

		assert.Equal(t, StatusPaid, inv.Status())
		assert.True(t, inv.CalculateBalance().IsEffectivelyZero())
		events := inv.PullDomainEvents()
		assert.Equal(t, []string{EventTypePaymentRecorded, EventTypeInvoicePaid}, eventTypes(events))
		recorded := events[0].(*PaymentRecordedEvent)
		assert.Equal(t, p.ID(), recorded.PaymentID)
		assert.True(t, recorded.Amount.Equals(usd("275.00")))
	})

	t.Run("partial payments accumulate until settled", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Send())
		inv.PullDomainEvents()

		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("100.00"))))
		assert.Equal(t, StatusSent, inv.Status())
		assert.Equal(t, "175", inv.CalculateBalance().Amount().String())
		assert.Equal(t, []string{EventTypePaymentRecorded}, eventTypes(inv.PullDomainEvents()))

		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("175.00"))))
		assert.Equal(t, StatusPaid, inv.Status())
		assert.Len(t, inv.Payments(), 2)
		assert.Equal(t, "275", inv.AmountPaid().Amount().String())
	})

	t.Run("overpayment is a business rule error and leaves state untouched", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.Send())
		inv.PullDomainEvents()

		err := inv.RecordPayment(mustPayment(t, usd("275.01")))
		require.Error(t, err)
		assert.True(t, shared.IsBusinessRuleError(err))

		var exceeds *PaymentExceedsBalanceError
		require.True(t, errors.As(err, &exceeds))
		assert.True(t, exceeds.Amount.Equals(usd("275.01")))
		assert.Equal(t, "275", exceeds.Balance.Amount().String())

		assert.Empty(t, inv.Payments())
		assert.Equal(t, StatusSent, inv.Status())
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("paid invoice rejects further payments", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("275.00"))))
		inv.PullDomainEvents()

		err := inv.RecordPayment(mustPayment(t, usd("0.01")))
		assert.True(t, shared.IsStateError(err))
		assert.Len(t, inv.Payments(), 1)
		assert.Empty(t, inv.PullDomainEvents())
	})

	t.Run("draft prepayment may settle directly to paid", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("275.00"))))
		assert.Equal(t, StatusPaid, inv.Status())
		assert.Equal(t, []string{EventTypePaymentRecorded, EventTypeInvoicePaid}, eventTypes(inv.PullDomainEvents()))
		assert.True(t, shared.IsStateError(inv.Send()))
	})

	t.Run("balance is compared after rounding", func(t *testing.T) {
		// 3 x 33.3333 rounds to a 100.00 subtotal; 0.00004 tax leaves 100.00004
		items := []LineItem{mustLineItem(t, "Thirds", "3", "33.3333")}
		inv, err := NewInvoice(uuid.New(), uuid.New(), "INV-R", issueDate, dueDate, items, "", decimal.RequireFromString("0.0000004"))
		require.NoError(t, err)
		inv.PullDomainEvents()

		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("100.00"))))
		assert.Equal(t, StatusPaid, inv.Status())
	})

	t.Run("one cent outstanding is not settled", func(t *testing.T) {
		inv := newTestInvoice(t)
		require.NoError(t, inv.RecordPayment(mustPayment(t, usd("274.99"))))
		assert.Equal(t, StatusDraft, inv.Status())
		assert.False(t, inv.CalculateBalance().IsEffectivelyZero())
	})

	t.Run("currency mismatch is a validation error", func(t *testing.T) {
		inv := newTestInvoice(t)
		inv.PullDomainEvents()

		err := inv.RecordPayment(mustPayment(t, valueobject.MustMoney("10", valueobject.EUR)))
		assert.True(t, shared.IsValidationError(err))
		assert.Empty(t, inv.Payments())
	})

	t.Run("duplicate payment id is rejected", func(t *testing.T) {
		inv := newTestInvoice(t)
		p := mustPayment(t, usd("10"))
		require.NoError(t, inv.RecordPayment(p))

		err := inv.RecordPayment(p)
		assert.True(t, shared.IsValidationError(err))
		assert.Len(t, inv.Payments(), 1)
	})

	t.Run("zero value payment is rejected", func(t *testing.T) {
		inv := newTestInvoice(t)
		assert.True(t, shared.IsValidationError(inv.RecordPayment(Payment{})))
	})
}

func TestInvoice_PaymentsNeverExceedTotal(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.Send())

	amounts := []string{"50", "100", "200", "75", "60", "50", "0.01"}
	for _, a := range amounts {
		_ = inv.RecordPayment(mustPayment(t, usd(a)))
		cmp := inv.AmountPaid().MustCompare(inv.CalculateTotal())
		assert.LessOrEqual(t, cmp, 0)
		assert.Equal(t, inv.Status() == StatusPaid, inv.CalculateBalance().IsEffectivelyZero())
	}
	assert.Equal(t, StatusPaid, inv.Status())
}

func TestInvoice_CanceledIsReserved(t *testing.T) {
	inv, err := RestoreInvoice(InvoiceSnapshot{
		ID:            uuid.New(),
		CustomerID:    uuid.New(),
		InvoiceNumber: "INV-C",
		IssueDate:     issueDate,
		DueDate:       dueDate,
		Status:        StatusCanceled,
		LineItems:     []LineItem{mustLineItem(t, "Item", "1", "10")},
		TaxRate:       decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.USD, inv.Currency())

	assert.True(t, shared.IsStateError(inv.Send()))
	assert.True(t, shared.IsStateError(inv.UpdateNotes("x")))
	assert.True(t, shared.IsStateError(inv.RecordPayment(mustPayment(t, usd("1")))))
	assert.Empty(t, inv.PullDomainEvents())
}

func TestInvoice_IsOverdue(t *testing.T) {
	inv := newTestInvoice(t)

	assert.False(t, inv.IsOverdue(dueDate))
	assert.False(t, inv.IsOverdue(dueDate.Add(23*time.Hour)))
	assert.True(t, inv.IsOverdue(dueDate.AddDate(0, 0, 1)))

	require.NoError(t, inv.RecordPayment(mustPayment(t, usd("275"))))
	assert.False(t, inv.IsOverdue(dueDate.AddDate(0, 0, 1)))
}

func TestInvoice_SnapshotRoundTrip(t *testing.T) {
	inv := newTestInvoice(t)
	require.NoError(t, inv.RecordPayment(mustPayment(t, usd("25"))))

	restored, err := RestoreInvoice(inv.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, inv.ID, restored.ID)
	assert.Equal(t, inv.Status(), restored.Status())
	assert.Equal(t, inv.CalculateBalance().Amount().String(), restored.CalculateBalance().Amount().String())
	assert.Empty(t, restored.PullDomainEvents())

	_, err = RestoreInvoice(InvoiceSnapshot{ID: uuid.New(), Status: "VOID"})
	assert.Error(t, err)
}

func TestInvoice_AccessorsReturnCopies(t *testing.T) {
	inv := newTestInvoice(t)
	items := inv.LineItems()
	items[0] = mustLineItem(t, "Tampered", "1", "1")
	assert.Equal(t, "Consulting", inv.LineItems()[0].Description())
}
