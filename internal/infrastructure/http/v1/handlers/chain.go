package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/types"
	"fuelbridge/internal/domain/chain"
	"fuelbridge/internal/infrastructure/http/v1/dto"
)

// ChainHandler drives invoices through the ERP procurement chain.
type ChainHandler struct {
	*BaseHandler
	service *chain.Service
}

func NewChainHandler(base *BaseHandler, service *chain.Service) *ChainHandler {
	return &ChainHandler{BaseHandler: base, service: service}
}

// CreateRequest creates a purchase request from an ingested invoice.
// POST /api/v1/chain/requests
func (h *ChainHandler) CreateRequest(c *gin.Context) {
	var req dto.CreateRequestRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id"))
		return
	}
	quantity, err := types.NewMoneyFromString(req.Quantity)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity").WithDetail("value", req.Quantity))
		return
	}

	doc, err := h.service.CreateRequest(c.Request.Context(), chain.CreateRequestInput{
		InvoiceID:  invoiceID,
		ItemCode:   req.ItemCode,
		Quantity:   quantity,
		Warehouse:  req.Warehouse,
		TaxCode:    req.TaxCode,
		LineVendor: req.LineVendor,
		Requester:  req.Requester,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocumentResponse{DocEntry: doc.DocEntry, DocNum: doc.DocNum})
}

// ConvertToOrder converts a purchase request into a purchase order.
// POST /api/v1/chain/orders
func (h *ChainHandler) ConvertToOrder(c *gin.Context) {
	var req dto.ConvertToOrderRequest
	if !h.BindJSON(c, &req) {
		return
	}

	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid invoice id"))
		return
	}

	doc, err := h.service.ConvertToOrder(c.Request.Context(), invoiceID, req.RequestEntry, req.CardCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocumentResponse{DocEntry: doc.DocEntry, DocNum: doc.DocNum})
}

// ConvertToDraft stages a goods receipt draft from an order.
// POST /api/v1/chain/drafts
func (h *ChainHandler) ConvertToDraft(c *gin.Context) {
	var req dto.ConvertToDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.ConvertToDraftReceipt(c.Request.Context(), req.OrderEntry)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocumentResponse{DocEntry: doc.DocEntry})
}

// UpdateCostingCodes rewrites costing dimensions on a draft.
// PATCH /api/v1/chain/drafts/costing-codes
func (h *ChainHandler) UpdateCostingCodes(c *gin.Context) {
	var req dto.CostingCodesRequest
	if !h.BindJSON(c, &req) {
		return
	}

	err := h.service.UpdateCostingCodes(c.Request.Context(), req.DraftEntry, chain.CostingCodes{
		Code1: req.Code1,
		Code2: req.Code2,
		Code3: req.Code3,
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "costing codes updated")
}

// UpdateOrderLine changes quantity and price of one order line.
// PATCH /api/v1/chain/orders/lines
func (h *ChainHandler) UpdateOrderLine(c *gin.Context) {
	var req dto.UpdateOrderLineRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quantity, err := types.NewMoneyFromString(req.Quantity)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid quantity").WithDetail("value", req.Quantity))
		return
	}
	unitPrice, err := types.NewMoneyFromString(req.UnitPrice)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid unit price").WithDetail("value", req.UnitPrice))
		return
	}

	if err := h.service.UpdateOrderLine(c.Request.Context(), req.OrderEntry, req.ItemCode, quantity, unitPrice); err != nil {
		h.Error(c, err)
		return
	}
	h.Success(c, "order line updated")
}

// PostDraft posts a staged draft as a goods receipt.
// POST /api/v1/chain/receipts/from-draft
func (h *ChainHandler) PostDraft(c *gin.Context) {
	var req dto.PostDraftRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.PostDraftReceipt(c.Request.Context(), req.DraftEntry)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocumentResponse{DocEntry: doc.DocEntry, DocNum: doc.DocNum})
}

// DirectReceipt posts a goods receipt straight from an order.
// POST /api/v1/chain/receipts/direct
func (h *ChainHandler) DirectReceipt(c *gin.Context) {
	var req dto.DirectReceiptRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.ConvertDirectToReceipt(c.Request.Context(), req.OrderEntry)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.DocumentResponse{DocEntry: doc.DocEntry, DocNum: doc.DocNum})
}
