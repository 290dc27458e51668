package dto

// CreateRequestRequest asks for a purchase request from an ingested invoice.
type CreateRequestRequest struct {
	InvoiceID  string `json:"invoice_id" binding:"required,uuid"`
	ItemCode   string `json:"item_code" binding:"required"`
	Quantity   string `json:"quantity" binding:"required"`
	Warehouse  string `json:"warehouse" binding:"required"`
	TaxCode    string `json:"tax_code"`
	LineVendor string `json:"line_vendor"`
	Requester  string `json:"requester"`
}

// ConvertToOrderRequest converts a purchase request into a purchase order.
type ConvertToOrderRequest struct {
	InvoiceID    string `json:"invoice_id" binding:"required,uuid"`
	RequestEntry int    `json:"request_entry" binding:"required"`
	CardCode     string `json:"card_code" binding:"required"`
}

// ConvertToDraftRequest stages a goods receipt draft from an order.
type ConvertToDraftRequest struct {
	OrderEntry int `json:"order_entry" binding:"required"`
}

// CostingCodesRequest rewrites costing dimensions on a draft.
type CostingCodesRequest struct {
	DraftEntry int    `json:"draft_entry" binding:"required"`
	Code1      string `json:"costing_code"`
	Code2      string `json:"costing_code2"`
	Code3      string `json:"costing_code3"`
}

// UpdateOrderLineRequest changes quantity and price of one order line.
type UpdateOrderLineRequest struct {
	OrderEntry int    `json:"order_entry" binding:"required"`
	ItemCode   string `json:"item_code" binding:"required"`
	Quantity   string `json:"quantity" binding:"required"`
	UnitPrice  string `json:"unit_price" binding:"required"`
}

// PostDraftRequest posts a staged draft as a goods receipt.
type PostDraftRequest struct {
	DraftEntry int `json:"draft_entry" binding:"required"`
}

// DirectReceiptRequest posts a goods receipt straight from an order.
type DirectReceiptRequest struct {
	OrderEntry int `json:"order_entry" binding:"required"`
}
