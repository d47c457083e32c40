package handler

import (
	"github.com/gin-gonic/gin"
	invoicingapp "github.com/lousydropout/invoice-me-sub000/internal/application/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice-related API endpoints
type InvoiceHandler struct {
	BaseHandler
	invoiceService *invoicingapp.InvoiceService
	queryService   *invoicingapp.InvoiceQueryService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoiceService *invoicingapp.InvoiceService, queryService *invoicingapp.InvoiceQueryService) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		queryService:   queryService,
	}
}

// Create godoc
// @ID           createInvoice
// @Summary      Create an invoice
// @Description  Create a DRAFT invoice from line items, dates and a tax rate
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        request body invoicing.CreateInvoiceRequest true "Invoice to create"
// @Success      201 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices [post]
func (h *InvoiceHandler) Create(c *gin.Context) {
	var req invoicingapp.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// List godoc
// @ID           listInvoices
// @Summary      List invoice summaries
// @Description  Paginated summaries filtered by customer, status or overdue
// @Tags         invoices
// @Produce      json
// @Param        customer_id query string false "Customer ID" format(uuid)
// @Param        status query string false "Invoice status" Enums(DRAFT, SENT, PAID, CANCELED)
// @Param        overdue query bool false "Only overdue invoices"
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Success      200 {object} dto.Response{data=[]invoicing.InvoiceSummaryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices [get]
func (h *InvoiceHandler) List(c *gin.Context) {
	var filter invoicingapp.ListInvoicesFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	page, err := h.queryService.List(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListOverdue godoc
// @ID           listOverdueInvoices
// @Summary      List overdue invoices
// @Description  Invoices past their due date that are not paid
// @Tags         invoices
// @Produce      json
// @Success      200 {object} dto.Response{data=[]invoicing.InvoiceSummaryResponse}
// @Failure      500 {object} dto.Response
// @Router       /invoices/overdue [get]
func (h *InvoiceHandler) ListOverdue(c *gin.Context) {
	invoices, err := h.queryService.ListOverdue(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoices)
}

// GetByID godoc
// @ID           getInvoice
// @Summary      Get an invoice
// @Description  Invoice detail with computed subtotal, tax, total and balance
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id} [get]
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetByNumber godoc
// @ID           getInvoiceByNumber
// @Summary      Get an invoice by number
// @Description  Invoice detail looked up by its unique invoice number
// @Tags         invoices
// @Produce      json
// @Param        number path string true "Invoice number"
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/number/{number} [get]
func (h *InvoiceHandler) GetByNumber(c *gin.Context) {
	invoice, err := h.invoiceService.GetByNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// GetSummary godoc
// @ID           getInvoiceSummary
// @Summary      Get an invoice summary
// @Description  Read-model summary computed from stored rows as of now
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicing.InvoiceSummaryResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/summary [get]
func (h *InvoiceHandler) GetSummary(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	summary, err := h.queryService.GetSummary(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, summary)
}

// UpdateLineItems godoc
// @ID           updateInvoiceLineItems
// @Summary      Replace line items
// @Description  Replace every line item of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicing.UpdateLineItemsRequest true "New line items"
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/line-items [put]
func (h *InvoiceHandler) UpdateLineItems(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req invoicingapp.UpdateLineItemsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateLineItems(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateDueDate godoc
// @ID           updateInvoiceDueDate
// @Summary      Change the due date
// @Description  Change the due date of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicing.UpdateDueDateRequest true "New due date"
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/due-date [put]
func (h *InvoiceHandler) UpdateDueDate(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req invoicingapp.UpdateDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateDueDate(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateTaxRate godoc
// @ID           updateInvoiceTaxRate
// @Summary      Change the tax rate
// @Description  Change the tax rate of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicing.UpdateTaxRateRequest true "New tax rate"
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/tax-rate [put]
func (h *InvoiceHandler) UpdateTaxRate(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req invoicingapp.UpdateTaxRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateTaxRate(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// UpdateNotes godoc
// @ID           updateInvoiceNotes
// @Summary      Change the notes
// @Description  Change the notes of a DRAFT invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicing.UpdateNotesRequest true "New notes"
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/notes [put]
func (h *InvoiceHandler) UpdateNotes(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req invoicingapp.UpdateNotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.UpdateNotes(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// Send godoc
// @ID           sendInvoice
// @Summary      Send an invoice
// @Description  Move a DRAFT invoice to SENT
// @Tags         invoices
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/send [post]
func (h *InvoiceHandler) Send(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	invoice, err := h.invoiceService.Send(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, invoice)
}

// RecordPayment godoc
// @ID           recordInvoicePayment
// @Summary      Record a payment
// @Description  Apply a payment against the outstanding balance; settles the invoice when the balance reaches zero
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id path string true "Invoice ID" format(uuid)
// @Param        request body invoicing.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=invoicing.InvoiceResponse}
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /invoices/{id}/payments [post]
func (h *InvoiceHandler) RecordPayment(c *gin.Context) {
	id, ok := h.parseID(c, "id", "invoice")
	if !ok {
		return
	}

	var req invoicingapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleBindError(c, err)
		return
	}

	invoice, err := h.invoiceService.RecordPayment(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, invoice)
}

// CustomerStatement godoc
// @ID           getCustomerStatement
// @Summary      Get a customer statement
// @Description  Outstanding and overdue balances per currency for one customer
// @Tags         customers
// @Produce      json
// @Param        id path string true "Customer ID" format(uuid)
// @Success      200 {object} dto.Response{data=invoicing.CustomerStatementResponse}
// @Failure      400 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Router       /customers/{id}/statement [get]
func (h *InvoiceHandler) CustomerStatement(c *gin.Context) {
	customerID, ok := h.parseID(c, "id", "customer")
	if !ok {
		return
	}

	statement, err := h.queryService.CustomerStatement(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, statement)
}
