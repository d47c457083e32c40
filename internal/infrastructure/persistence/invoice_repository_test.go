package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newMockInvoiceRepository creates a GormInvoiceRepository with a mocked SQL connection
func newMockInvoiceRepository(t *testing.T) (*GormInvoiceRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, GormConfig(nil, ""))
	require.NoError(t, err)

	return NewGormInvoiceRepository(gormDB), mock, mockDB
}

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), GormConfig(nil, ""))
	require.NoError(t, err)

	// a single connection keeps the in-memory database alive across queries
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func testLineItem(t *testing.T, desc, qty, price string) invoicing.LineItem {
	t.Helper()
	item, err := invoicing.NewLineItem(desc, decimal.RequireFromString(qty), valueobject.MustMoney(price, valueobject.USD))
	require.NoError(t, err)
	return item
}

func testInvoice(t *testing.T, number string, customerID uuid.UUID, issue, due time.Time) *invoicing.Invoice {
	t.Helper()
	inv, err := invoicing.NewInvoice(
		uuid.New(),
		customerID,
		number,
		issue,
		due,
		[]invoicing.LineItem{
			testLineItem(t, "Consulting", "2", "100.00"),
			testLineItem(t, "Hosting", "1", "50.00"),
		},
		"net 30",
		decimal.RequireFromString("0.10"),
	)
	require.NoError(t, err)
	return inv
}

func testPayment(t *testing.T, amount string) invoicing.Payment {
	t.Helper()
	p, err := invoicing.NewPayment(uuid.New(), valueobject.MustMoney(amount, valueobject.USD),
		time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), invoicing.PaymentMethodBankTransfer, "wire-1")
	require.NoError(t, err)
	return p
}

var (
	testIssueDate = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	testDueDate   = time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
)

type recordingOutbox struct {
	txs    []any
	events []shared.DomainEvent
}

func (r *recordingOutbox) SaveEvents(_ context.Context, tx any, events ...shared.DomainEvent) error {
	r.txs = append(r.txs, tx)
	r.events = append(r.events, events...)
	return nil
}

func TestGormInvoiceRepository_FindByID(t *testing.T) {
	t.Run("returns not found for unknown id", func(t *testing.T) {
		repo, mock, mockDB := newMockInvoiceRepository(t)
		defer mockDB.Close()

		id := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "invoices" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(id, 1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		inv, version, err := repo.FindByID(context.Background(), id)

		assert.Nil(t, inv)
		assert.Equal(t, invoicing.Version(0), version)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormInvoiceRepository_Save_StaleVersion(t *testing.T) {
	repo, mock, mockDB := newMockInvoiceRepository(t)
	defer mockDB.Close()

	inv := testInvoice(t, "INV-1", uuid.New(), testIssueDate, testDueDate)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "invoices" SET .* WHERE .*id = .* AND version = .*`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Save(context.Background(), inv, 3)

	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormInvoiceRepository_RoundTrip(t *testing.T) {
	db := setupInvoiceTestDB(t)
	outbox := &recordingOutbox{}
	repo := NewGormInvoiceRepository(db, WithOutbox(outbox))
	ctx := context.Background()

	inv := testInvoice(t, "INV-100", uuid.New(), testIssueDate, testDueDate)
	version, err := repo.Save(ctx, inv, 0)
	require.NoError(t, err)
	assert.Equal(t, invoicing.Version(1), version)

	t.Run("events are written with the transaction and stay buffered", func(t *testing.T) {
		require.Len(t, outbox.events, 1)
		assert.Equal(t, invoicing.EventTypeInvoiceCreated, outbox.events[0].EventType())
		_, isTx := outbox.txs[0].(*gorm.DB)
		assert.True(t, isTx)
		assert.Len(t, inv.DomainEvents(), 1)
	})

	t.Run("loads the same state by id", func(t *testing.T) {
		loaded, v, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, invoicing.Version(1), v)
		assert.Equal(t, inv.InvoiceNumber(), loaded.InvoiceNumber())
		assert.Equal(t, inv.CustomerID(), loaded.CustomerID())
		assert.True(t, inv.IssueDate().Equal(loaded.IssueDate()))
		assert.True(t, inv.DueDate().Equal(loaded.DueDate()))
		assert.Equal(t, invoicing.StatusDraft, loaded.Status())
		assert.Equal(t, "net 30", loaded.Notes())
		require.Len(t, loaded.LineItems(), 2)
		assert.Equal(t, "Consulting", loaded.LineItems()[0].Description())
		assert.True(t, inv.CalculateTotal().Equals(loaded.CalculateTotal()))
		assert.Empty(t, loaded.DomainEvents())
	})

	t.Run("loads by invoice number", func(t *testing.T) {
		loaded, _, err := repo.FindByInvoiceNumber(ctx, "INV-100")
		require.NoError(t, err)
		assert.Equal(t, inv.ID, loaded.ID)
	})
}

func TestGormInvoiceRepository_SaveUpdates(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := testInvoice(t, "INV-200", uuid.New(), testIssueDate, testDueDate)
	_, err := repo.Save(ctx, inv, 0)
	require.NoError(t, err)

	loaded, v1, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.UpdateLineItems([]invoicing.LineItem{testLineItem(t, "Audit", "1", "300.00")}))
	require.NoError(t, loaded.Send())
	require.NoError(t, loaded.RecordPayment(testPayment(t, "100.00")))

	v2, err := repo.Save(ctx, loaded, v1)
	require.NoError(t, err)
	assert.Equal(t, v1+1, v2)

	again, v, err := repo.FindByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, v2, v)
	assert.Equal(t, invoicing.StatusSent, again.Status())
	require.Len(t, again.LineItems(), 1)
	assert.Equal(t, "Audit", again.LineItems()[0].Description())
	require.Len(t, again.Payments(), 1)
	assert.Equal(t, "230.00 USD", again.CalculateBalance().String())

	t.Run("second payment appends without rewriting the first", func(t *testing.T) {
		require.NoError(t, again.RecordPayment(testPayment(t, "230.00")))
		v3, err := repo.Save(ctx, again, v)
		require.NoError(t, err)

		paid, _, err := repo.FindByID(ctx, inv.ID)
		require.NoError(t, err)
		assert.Equal(t, v+1, v3)
		assert.Equal(t, invoicing.StatusPaid, paid.Status())
		require.Len(t, paid.Payments(), 2)
		assert.Equal(t, again.Payments()[0].ID(), paid.Payments()[0].ID())
		assert.True(t, paid.CalculateBalance().IsEffectivelyZero())
	})

	t.Run("stale version is rejected", func(t *testing.T) {
		_, err := repo.Save(ctx, loaded, v1)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormInvoiceRepository_Insert_Conflicts(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	inv := testInvoice(t, "INV-300", uuid.New(), testIssueDate, testDueDate)
	_, err := repo.Save(ctx, inv, 0)
	require.NoError(t, err)

	t.Run("inserting the same invoice twice is a concurrency conflict", func(t *testing.T) {
		_, err := repo.Save(ctx, inv, 0)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})

	t.Run("duplicate invoice number is a conflict", func(t *testing.T) {
		other := testInvoice(t, "INV-300", uuid.New(), testIssueDate, testDueDate)
		_, err := repo.Save(ctx, other, 0)

		require.Error(t, err)
		assert.Equal(t, shared.KindConflict, shared.KindOf(err))
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, invoicing.CodeDuplicateInvoiceNumber, de.Code)

		_, _, err = repo.FindByID(ctx, other.ID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormInvoiceRepository_PaymentIDReusedAcrossInvoices(t *testing.T) {
	db := setupInvoiceTestDB(t)
	repo := NewGormInvoiceRepository(db)
	ctx := context.Background()

	paymentID := uuid.New()
	paymentWith := func(amount string) invoicing.Payment {
		p, err := invoicing.NewPayment(paymentID, valueobject.MustMoney(amount, valueobject.USD),
			time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), invoicing.PaymentMethodBankTransfer, "wire-1")
		require.NoError(t, err)
		return p
	}

	first := testInvoice(t, "INV-400", uuid.New(), testIssueDate, testDueDate)
	require.NoError(t, first.RecordPayment(paymentWith("10.00")))
	_, err := repo.Save(ctx, first, 0)
	require.NoError(t, err)

	second := testInvoice(t, "INV-401", uuid.New(), testIssueDate, testDueDate)
	v1, err := repo.Save(ctx, second, 0)
	require.NoError(t, err)

	loaded, _, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.Send())
	require.NoError(t, loaded.RecordPayment(paymentWith("275.00")))
	require.Equal(t, invoicing.StatusPaid, loaded.Status())

	_, err = repo.Save(ctx, loaded, v1)

	require.Error(t, err)
	assert.Equal(t, shared.KindConflict, shared.KindOf(err))
	assert.NotErrorIs(t, err, shared.ErrConcurrencyConflict)
	var de *shared.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, invoicing.CodeDuplicatePayment, de.Code)

	stored, v, err := repo.FindByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, v1, v, "the whole save rolls back")
	assert.Equal(t, invoicing.StatusDraft, stored.Status())
	assert.Empty(t, stored.Payments())
	assert.Equal(t, "275.00 USD", stored.CalculateBalance().String())

	owner, _, err := repo.FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, owner.Payments(), 1)
	assert.Equal(t, "10.00 USD", owner.AmountPaid().String())
}
