package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements invoicing.InvoiceRepository using GORM.
// When an outbox saver is configured, the invoice's buffered events are
// written to the outbox in the same transaction as the invoice rows.
type GormInvoiceRepository struct {
	db     *gorm.DB
	outbox shared.OutboxEventSaver
}

// InvoiceRepositoryOption configures a GormInvoiceRepository
type InvoiceRepositoryOption func(*GormInvoiceRepository)

// WithOutbox enables the transactional outbox
func WithOutbox(saver shared.OutboxEventSaver) InvoiceRepositoryOption {
	return func(r *GormInvoiceRepository) {
		r.outbox = saver
	}
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB, opts ...InvoiceRepositoryOption) *GormInvoiceRepository {
	r := &GormInvoiceRepository{db: db}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ invoicing.InvoiceRepository = (*GormInvoiceRepository)(nil)

// NextIdentity returns a fresh invoice id
func (r *GormInvoiceRepository) NextIdentity() uuid.UUID {
	return uuid.New()
}

// FindByID loads an invoice with its line items and payments
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*invoicing.Invoice, invoicing.Version, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByInvoiceNumber loads an invoice by its unique number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, number string) (*invoicing.Invoice, invoicing.Version, error) {
	return r.findOne(ctx, "invoice_number = ?", number)
}

func (r *GormInvoiceRepository) findOne(ctx context.Context, query string, arg any) (*invoicing.Invoice, invoicing.Version, error) {
	var model models.InvoiceModel
	err := r.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Where(query, arg).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, 0, shared.ErrNotFound
		}
		return nil, 0, fmt.Errorf("load invoice: %w", err)
	}
	inv, err := model.ToDomain()
	if err != nil {
		return nil, 0, err
	}
	return inv, invoicing.Version(model.Version), nil
}

// Save persists the invoice. expected == 0 inserts a new invoice; any
// other value updates only if the stored version still equals expected.
func (r *GormInvoiceRepository) Save(ctx context.Context, inv *invoicing.Invoice, expected invoicing.Version) (invoicing.Version, error) {
	model := models.InvoiceModelFromDomain(inv)
	model.Version = int(expected) + 1

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if expected == 0 {
			if err := r.insertHeader(tx, model); err != nil {
				return err
			}
		} else {
			if err := r.updateHeader(tx, model, expected); err != nil {
				return err
			}
		}

		if err := tx.Where("invoice_id = ?", model.ID).Delete(&models.InvoiceLineItemModel{}).Error; err != nil {
			return fmt.Errorf("clear line items: %w", err)
		}
		if len(model.LineItems) > 0 {
			if err := tx.Create(&model.LineItems).Error; err != nil {
				return fmt.Errorf("insert line items: %w", err)
			}
		}
		if err := r.insertNewPayments(tx, model); err != nil {
			return err
		}

		if r.outbox != nil {
			if events := inv.DomainEvents(); len(events) > 0 {
				if err := r.outbox.SaveEvents(ctx, tx, events...); err != nil {
					return fmt.Errorf("write outbox: %w", err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return invoicing.Version(model.Version), nil
}

func (r *GormInvoiceRepository) insertHeader(tx *gorm.DB, model *models.InvoiceModel) error {
	var existing int64
	if err := tx.Model(&models.InvoiceModel{}).Where("id = ?", model.ID).Count(&existing).Error; err != nil {
		return fmt.Errorf("check invoice: %w", err)
	}
	if existing > 0 {
		return shared.ErrConcurrencyConflict
	}
	if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.KindConflict, invoicing.CodeDuplicateInvoiceNumber,
				fmt.Sprintf("invoice number %s already exists", model.InvoiceNumber))
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

func (r *GormInvoiceRepository) updateHeader(tx *gorm.DB, model *models.InvoiceModel, expected invoicing.Version) error {
	result := tx.Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", model.ID, int(expected)).
		Updates(map[string]any{
			"customer_id": model.CustomerID,
			"due_date":    model.DueDate,
			"status":      model.Status,
			"currency":    model.Currency,
			"notes":       model.Notes,
			"tax_rate":    model.TaxRate,
			"version":     model.Version,
			"updated_at":  model.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update invoice: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// insertNewPayments appends the payments not yet stored for this invoice.
// Payments are append-only, so stored rows are never rewritten. A payment id
// already used by another invoice fails the save.
func (r *GormInvoiceRepository) insertNewPayments(tx *gorm.DB, model *models.InvoiceModel) error {
	if len(model.Payments) == 0 {
		return nil
	}

	var stored []uuid.UUID
	if err := tx.Model(&models.InvoicePaymentModel{}).
		Where("invoice_id = ?", model.ID).
		Pluck("id", &stored).Error; err != nil {
		return fmt.Errorf("load payment ids: %w", err)
	}
	known := make(map[uuid.UUID]struct{}, len(stored))
	for _, id := range stored {
		known[id] = struct{}{}
	}

	fresh := make([]models.InvoicePaymentModel, 0, len(model.Payments))
	for _, p := range model.Payments {
		if _, ok := known[p.ID]; !ok {
			fresh = append(fresh, p)
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := tx.Create(&fresh).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.NewDomainError(shared.KindConflict, invoicing.CodeDuplicatePayment,
				"payment id is already recorded on another invoice")
		}
		return fmt.Errorf("insert payments: %w", err)
	}
	return nil
}
