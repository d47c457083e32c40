package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared/valueobject"
	"go.uber.org/zap"
)

// DefaultMaxConflictRetries bounds how often a command is replayed after a
// concurrency conflict
const DefaultMaxConflictRetries = 3

// InvoiceService handles invoice commands. Each command loads the
// aggregate, applies one mutation, saves it against the loaded version and
// publishes the drained events.
type InvoiceService struct {
	repo            invoicing.InvoiceRepository
	eventPublisher  shared.EventPublisher
	logger          *zap.Logger
	maxRetries      int
	defaultCurrency valueobject.Currency
	now             func() time.Time
}

// ServiceOption configures an InvoiceService
type ServiceOption func(*InvoiceService)

// WithEventPublisher sets the publisher that receives events after a save
func WithEventPublisher(publisher shared.EventPublisher) ServiceOption {
	return func(s *InvoiceService) {
		s.eventPublisher = publisher
	}
}

// WithMaxConflictRetries sets how often a conflicting command is replayed
func WithMaxConflictRetries(n int) ServiceOption {
	return func(s *InvoiceService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithDefaultCurrency sets the currency used when a request omits one
func WithDefaultCurrency(c valueobject.Currency) ServiceOption {
	return func(s *InvoiceService) {
		if c != "" {
			s.defaultCurrency = c
		}
	}
}

// WithClock overrides the time source used for overdue evaluation
func WithClock(now func() time.Time) ServiceOption {
	return func(s *InvoiceService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(repo invoicing.InvoiceRepository, logger *zap.Logger, opts ...ServiceOption) *InvoiceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &InvoiceService{
		repo:            repo,
		logger:          logger,
		maxRetries:      DefaultMaxConflictRetries,
		defaultCurrency: valueobject.DefaultCurrency,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetEventPublisher sets the event publisher for cross-context communication
func (s *InvoiceService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create creates a new draft invoice
func (s *InvoiceService) Create(ctx context.Context, req CreateInvoiceRequest) (*InvoiceResponse, error) {
	currency := s.defaultCurrency
	if req.Currency != "" {
		c, err := valueobject.ParseCurrency(req.Currency)
		if err != nil {
			return nil, shared.NewValidationError(invoicing.CodeInvalidInvoice, err.Error())
		}
		currency = c
	}
	issueDate, err := parseDate("issue_date", req.IssueDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	items, err := buildLineItems(req.LineItems, currency)
	if err != nil {
		return nil, err
	}

	inv, err := invoicing.NewInvoice(
		s.repo.NextIdentity(),
		req.CustomerID,
		req.InvoiceNumber,
		issueDate,
		dueDate,
		items,
		req.Notes,
		req.TaxRate,
	)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.Save(ctx, inv, 0)
	if err != nil {
		s.logger.Debug("invoice create rejected",
			zap.String("invoice_number", req.InvoiceNumber),
			zap.Error(err),
		)
		return nil, err
	}
	s.publish(ctx, inv)

	s.logger.Info("invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.String("invoice_number", inv.InvoiceNumber()),
		zap.String("customer_id", inv.CustomerID().String()),
	)
	resp := ToInvoiceResponse(inv, version, s.now())
	return &resp, nil
}

// GetByID retrieves an invoice by ID
func (s *InvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	inv, version, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, version, s.now())
	return &resp, nil
}

// GetByNumber retrieves an invoice by its invoice number
func (s *InvoiceService) GetByNumber(ctx context.Context, number string) (*InvoiceResponse, error) {
	inv, version, err := s.repo.FindByInvoiceNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	resp := ToInvoiceResponse(inv, version, s.now())
	return &resp, nil
}

// UpdateLineItems replaces the line items of a draft invoice
func (s *InvoiceService) UpdateLineItems(ctx context.Context, id uuid.UUID, req UpdateLineItemsRequest) (*InvoiceResponse, error) {
	return s.execute(ctx, id, "update_line_items", func(inv *invoicing.Invoice) error {
		items, err := buildLineItems(req.LineItems, inv.Currency())
		if err != nil {
			return err
		}
		return inv.UpdateLineItems(items)
	})
}

// UpdateDueDate changes the due date of a draft invoice
func (s *InvoiceService) UpdateDueDate(ctx context.Context, id uuid.UUID, req UpdateDueDateRequest) (*InvoiceResponse, error) {
	dueDate, err := parseDate("due_date", req.DueDate)
	if err != nil {
		return nil, err
	}
	return s.execute(ctx, id, "update_due_date", func(inv *invoicing.Invoice) error {
		return inv.UpdateDueDate(dueDate)
	})
}

// UpdateTaxRate changes the tax rate of a draft invoice
func (s *InvoiceService) UpdateTaxRate(ctx context.Context, id uuid.UUID, req UpdateTaxRateRequest) (*InvoiceResponse, error) {
	return s.execute(ctx, id, "update_tax_rate", func(inv *invoicing.Invoice) error {
		return inv.UpdateTaxRate(req.TaxRate)
	})
}

// UpdateNotes changes the notes of a draft invoice
func (s *InvoiceService) UpdateNotes(ctx context.Context, id uuid.UUID, req UpdateNotesRequest) (*InvoiceResponse, error) {
	return s.execute(ctx, id, "update_notes", func(inv *invoicing.Invoice) error {
		return inv.UpdateNotes(req.Notes)
	})
}

// Send issues a draft invoice to the customer
func (s *InvoiceService) Send(ctx context.Context, id uuid.UUID) (*InvoiceResponse, error) {
	return s.execute(ctx, id, "send", func(inv *invoicing.Invoice) error {
		return inv.Send()
	})
}

// RecordPayment applies a payment to an invoice. The payment id is fixed
// before the first attempt so a replay after a conflict records the same
// payment.
func (s *InvoiceService) RecordPayment(ctx context.Context, id uuid.UUID, req RecordPaymentRequest) (*InvoiceResponse, error) {
	paymentDate, err := parseDate("payment_date", req.PaymentDate)
	if err != nil {
		return nil, err
	}
	method, err := invoicing.ParsePaymentMethod(req.Method)
	if err != nil {
		return nil, shared.NewValidationError(invoicing.CodeInvalidPayment, err.Error())
	}
	paymentID := uuid.New()
	if req.PaymentID != nil && *req.PaymentID != uuid.Nil {
		paymentID = *req.PaymentID
	}

	return s.execute(ctx, id, "record_payment", func(inv *invoicing.Invoice) error {
		currency := inv.Currency()
		if req.Currency != "" {
			c, err := valueobject.ParseCurrency(req.Currency)
			if err != nil {
				return shared.NewValidationError(invoicing.CodeInvalidPayment, err.Error())
			}
			currency = c
		}
		amount, err := valueobject.NewMoney(req.Amount, currency)
		if err != nil {
			return shared.NewValidationError(invoicing.CodeInvalidPayment, err.Error())
		}
		payment, err := invoicing.NewPayment(paymentID, amount, paymentDate, method, req.Reference)
		if err != nil {
			return err
		}
		return inv.RecordPayment(payment)
	})
}

// execute runs one command against the latest stored invoice, replaying it
// on concurrency conflicts up to maxRetries times
func (s *InvoiceService) execute(
	ctx context.Context,
	id uuid.UUID,
	command string,
	mutate func(*invoicing.Invoice) error,
) (*InvoiceResponse, error) {
	for attempt := 0; ; attempt++ {
		inv, version, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := mutate(inv); err != nil {
			s.logger.Debug("invoice command rejected",
				zap.String("command", command),
				zap.String("invoice_id", id.String()),
				zap.String("status", inv.Status().String()),
				zap.Error(err),
			)
			return nil, err
		}

		newVersion, err := s.repo.Save(ctx, inv, version)
		if errors.Is(err, shared.ErrConcurrencyConflict) && attempt < s.maxRetries {
			s.logger.Debug("invoice save conflicted, retrying",
				zap.String("command", command),
				zap.String("invoice_id", id.String()),
				zap.Int("attempt", attempt+1),
			)
			continue
		}
		if err != nil {
			return nil, err
		}

		s.publish(ctx, inv)

		s.logger.Info("invoice command applied",
			zap.String("command", command),
			zap.String("invoice_id", id.String()),
			zap.String("status", inv.Status().String()),
			zap.Int("version", int(newVersion)),
		)
		resp := ToInvoiceResponse(inv, newVersion, s.now())
		return &resp, nil
	}
}

// publish drains the aggregate's events and hands them to the publisher.
// The state change is already committed, so a publish failure is logged
// and left to the outbox relay.
func (s *InvoiceService) publish(ctx context.Context, inv *invoicing.Invoice) {
	events := inv.PullDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish invoice events",
			zap.String("invoice_id", inv.ID.String()),
			zap.Int("event_count", len(events)),
			zap.Error(err),
		)
	}
}

func parseDate(field, value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, shared.NewValidationError(
			shared.ErrInvalidInput.Code,
			fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field),
		)
	}
	return t, nil
}

func buildLineItems(inputs []LineItemInput, currency valueobject.Currency) ([]invoicing.LineItem, error) {
	items := make([]invoicing.LineItem, 0, len(inputs))
	for i, in := range inputs {
		price, err := valueobject.NewMoney(in.UnitPrice, currency)
		if err != nil {
			return nil, shared.NewValidationError(invoicing.CodeInvalidLineItem,
				fmt.Sprintf("line item %d: %v", i+1, err))
		}
		item, err := invoicing.NewLineItem(in.Description, in.Quantity, price)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}
