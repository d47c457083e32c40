package router

import (
	"github.com/gin-gonic/gin"
	"github.com/lousydropout/invoice-me-sub000/internal/interfaces/http/handler"
)

// InvoiceRoutes maps the invoice commands and queries
func InvoiceRoutes(h *handler.InvoiceHandler) *DomainGroup {
	return NewDomainGroup("invoices", "/invoices").
		POST("", h.Create).
		GET("", h.List).
		GET("/overdue", h.ListOverdue).
		GET("/number/:number", h.GetByNumber).
		GET("/:id", h.GetByID).
		GET("/:id/summary", h.GetSummary).
		PUT("/:id/line-items", h.UpdateLineItems).
		PUT("/:id/due-date", h.UpdateDueDate).
		PUT("/:id/tax-rate", h.UpdateTaxRate).
		PUT("/:id/notes", h.UpdateNotes).
		POST("/:id/send", h.Send).
		POST("/:id/payments", h.RecordPayment)
}

// CustomerRoutes maps the per-customer read views
func CustomerRoutes(h *handler.InvoiceHandler) *DomainGroup {
	return NewDomainGroup("customers", "/customers").
		GET("/:id/statement", h.CustomerStatement)
}

// OutboxRoutes maps the operator endpoints for the event outbox
func OutboxRoutes(h *handler.OutboxHandler) *DomainGroup {
	return NewDomainGroup("outbox", "/admin/outbox").
		GET("/stats", h.GetStats).
		GET("/dead", h.ListDeadLetters).
		POST("/retry-dead", h.RetryAll).
		GET("/:id", h.GetEntry).
		POST("/:id/retry", h.RetryEntry)
}

// Mount registers the health check at the root and the invoicing API
// under /api/v1. The outbox endpoints are only mounted when outbox is set.
func Mount(engine *gin.Engine, health *handler.HealthHandler, invoices *handler.InvoiceHandler, outbox *handler.OutboxHandler) {
	engine.GET("/health", health.Health)

	r := NewRouter(engine, WithAPIVersion("v1")).
		Register(InvoiceRoutes(invoices)).
		Register(CustomerRoutes(invoices))
	if outbox != nil {
		r.Register(OutboxRoutes(outbox))
	}
	r.Setup()
}
