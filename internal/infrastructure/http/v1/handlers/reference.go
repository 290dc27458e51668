package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/erp"
)

// ReferenceHandler proxies read-only ERP master data lookups.
// Responses are passed through verbatim so callers see the same shapes
// the ERP returns.
type ReferenceHandler struct {
	*BaseHandler
	client *erp.Client
}

func NewReferenceHandler(base *BaseHandler, client *erp.Client) *ReferenceHandler {
	return &ReferenceHandler{BaseHandler: base, client: client}
}

// Items lists purchasable items.
// GET /api/v1/reference/items
func (h *ReferenceHandler) Items(c *gin.Context) {
	h.proxyList(c, "Items?$select=ItemCode,ItemName,ForeignName")
}

// Vendors lists supplier business partners.
// GET /api/v1/reference/vendors
func (h *ReferenceHandler) Vendors(c *gin.Context) {
	h.proxyList(c, "BusinessPartners?$select=CardCode,CardName&$filter=CardType eq 'S'")
}

// Warehouses lists warehouses.
// GET /api/v1/reference/warehouses
func (h *ReferenceHandler) Warehouses(c *gin.Context) {
	h.proxyList(c, "Warehouses?$select=WarehouseCode,WarehouseName")
}

// TaxGroups lists VAT groups.
// GET /api/v1/reference/tax-groups
func (h *ReferenceHandler) TaxGroups(c *gin.Context) {
	h.proxyList(c, "VatGroups?$select=Code,Name,Category")
}

// LastRequest returns the most recently numbered purchase request.
// GET /api/v1/reference/last-request
func (h *ReferenceHandler) LastRequest(c *gin.Context) {
	var list erp.List[erp.Document]
	path := erp.ResourcePurchaseRequests + "?$select=DocEntry,DocNum&$orderby=DocNum desc&$top=1"
	if err := h.client.Get(c.Request.Context(), path, &list); err != nil {
		h.Error(c, err)
		return
	}
	if len(list.Value) == 0 {
		h.Error(c, apperror.NewNotFound("purchase request", "latest"))
		return
	}
	h.OK(c, list.Value[0])
}

// OpenOrders lists open purchase orders for one vendor.
// GET /api/v1/reference/open-orders?card_code=P000123
func (h *ReferenceHandler) OpenOrders(c *gin.Context) {
	cardCode := c.Query("card_code")
	if cardCode == "" {
		h.Error(c, apperror.NewValidation("card_code is required"))
		return
	}

	path := fmt.Sprintf(
		"%s?$select=DocEntry,DocNum,CardCode,DocDate,DocTotal&$filter=DocumentStatus eq 'bost_Open' and CardCode eq '%s'&$orderby=DocEntry desc",
		erp.ResourcePurchaseOrders, cardCode,
	)
	h.proxyList(c, path)
}

func (h *ReferenceHandler) proxyList(c *gin.Context, path string) {
	var list erp.List[map[string]any]
	if err := h.client.Get(c.Request.Context(), path, &list); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"value": list.Value})
}
