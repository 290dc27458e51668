package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/infrastructure/http/v1/dto"
	"fuelbridge/internal/infrastructure/storage/postgres"
)

// InvoiceHandler serves invoice ingestion and ledger lookups.
type InvoiceHandler struct {
	*BaseHandler
	service  *invoice.Service
	store    invoice.Store
	eventLog *postgres.EventLog
}

func NewInvoiceHandler(base *BaseHandler, service *invoice.Service, store invoice.Store, eventLog *postgres.EventLog) *InvoiceHandler {
	return &InvoiceHandler{
		BaseHandler: base,
		service:     service,
		store:       store,
		eventLog:    eventLog,
	}
}

// Ingest stores an invoice with its tank distribution.
// POST /api/v1/invoices
func (h *InvoiceHandler) Ingest(c *gin.Context) {
	var req dto.IngestInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	inv, err := req.ToDomain()
	if err != nil {
		h.Error(c, err)
		return
	}

	invoiceID, err := h.service.Ingest(c.Request.Context(), inv)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, invoiceID.String())
}

// Get returns one invoice with lines and distributions.
// GET /api/v1/invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id"))
		return
	}

	inv, err := h.store.GetByID(c.Request.Context(), invoiceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDomain(inv))
}

// Events returns the reconciliation event history of an invoice.
// GET /api/v1/invoices/:id/events
func (h *InvoiceHandler) Events(c *gin.Context) {
	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)
	events, err := h.eventLog.History(c.Request.Context(), invoiceID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"events": events})
}
