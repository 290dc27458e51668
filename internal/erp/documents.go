package erp

import "fmt"

// Base document types. A derived document line carries the (type, entry, line)
// triple of its source line; this chain is the only audit trail back to the
// original purchase request and must never be re-pointed.
const (
	BaseTypePurchaseRequest = 1470000113
	BaseTypePurchaseOrder   = 22
)

// Service Layer resources consumed by this module.
const (
	ResourcePurchaseRequests      = "PurchaseRequests"
	ResourcePurchaseOrders        = "PurchaseOrders"
	ResourceDrafts                = "Drafts"
	ResourcePurchaseDeliveryNotes = "PurchaseDeliveryNotes"
	ResourceItems                 = "Items"
	ResourceBusinessPartners      = "BusinessPartners"
	ResourceWarehouses            = "Warehouses"
	ResourceVatGroups             = "VatGroups"
)

// DocObjectCodeReceipt marks a draft as a goods receipt draft.
const DocObjectCodeReceipt = "oPurchaseDeliveryNotes"

// DocumentPath builds the entity path for a single document, e.g.
// "PurchaseOrders(42)".
func DocumentPath(resource string, docEntry int) string {
	return fmt.Sprintf("%s(%d)", resource, docEntry)
}

// Document is the wire shape of a procurement document. DocEntry and DocNum
// are created by the ERP; this module only reads them from responses.
// Drafts carry no DocNum (mutable staging documents).
type Document struct {
	DocEntry      int    `json:"DocEntry,omitempty"`
	DocNum        int    `json:"DocNum,omitempty"`
	DocObjectCode string `json:"DocObjectCode,omitempty"`
	DocDate       string `json:"DocDate,omitempty"`
	DocDueDate    string `json:"DocDueDate,omitempty"`
	// RequriedDate is not a typo here: the Service Layer field is misspelled
	// upstream and must be sent as-is.
	RequriedDate string `json:"RequriedDate,omitempty"`
	Requester    string `json:"Requester,omitempty"`
	CardCode     string `json:"CardCode,omitempty"`
	CardName     string `json:"CardName,omitempty"`
	DocCurrency  string `json:"DocCurrency,omitempty"`
	Comments     string `json:"Comments,omitempty"`

	DocumentLines []DocumentLine `json:"DocumentLines,omitempty"`
}

// DocumentLine is one line of a procurement document.
type DocumentLine struct {
	LineNum         int     `json:"LineNum"`
	ItemCode        string  `json:"ItemCode,omitempty"`
	ItemDescription string  `json:"ItemDescription,omitempty"`
	Quantity        float64 `json:"Quantity,omitempty"`
	UnitPrice       float64 `json:"UnitPrice,omitempty"`
	Price           string  `json:"Price,omitempty"`
	WarehouseCode   string  `json:"WarehouseCode,omitempty"`
	TaxCode         string  `json:"TaxCode,omitempty"`
	Currency        string  `json:"Currency,omitempty"`
	UoMCode         string  `json:"UoMCode,omitempty"`
	MeasureUnit     string  `json:"MeasureUnit,omitempty"`
	AccountCode     string  `json:"AccountCode,omitempty"`
	LineVendor      string  `json:"LineVendor,omitempty"`
	RequiredDate    string  `json:"RequiredDate,omitempty"`

	// Base document lineage. BaseLine is a pointer because line zero is a
	// valid reference and must survive serialization.
	BaseType  int  `json:"BaseType,omitempty"`
	BaseEntry int  `json:"BaseEntry,omitempty"`
	BaseLine  *int `json:"BaseLine,omitempty"`

	// Costing dimensions, editable while the document is a draft.
	CostingCode  string `json:"CostingCode,omitempty"`
	CostingCode2 string `json:"CostingCode2,omitempty"`
	CostingCode3 string `json:"CostingCode3,omitempty"`

	LineTaxJurisdictions []TaxJurisdiction `json:"LineTaxJurisdictions,omitempty"`
}

// BaseRef returns the line's base document reference, or false when the line
// is not derived from another document.
func (l DocumentLine) BaseRef() (baseType, baseEntry, baseLine int, ok bool) {
	if l.BaseType == 0 || l.BaseLine == nil {
		return 0, 0, 0, false
	}
	return l.BaseType, l.BaseEntry, *l.BaseLine, true
}

// TaxJurisdiction is a line-level specific tax entry (e.g. the FUEL levy).
type TaxJurisdiction struct {
	JurisdictionCode string  `json:"JurisdictionCode"`
	JurisdictionType int     `json:"JurisdictionType"`
	TaxRate          float64 `json:"TaxRate"`
	BaseSum          float64 `json:"BaseSum"`
	TaxAmount        float64 `json:"TaxAmount"`
	TaxAmountSC      float64 `json:"TaxAmountSC"`
	TaxAmountFC      float64 `json:"TaxAmountFC"`
	TaxOnly          string  `json:"TaxOnly,omitempty"`
}

// List is the OData collection envelope returned by resource queries.
type List[T any] struct {
	Value []T `json:"value"`
}

// IntPtr is a small helper for optional wire integers.
func IntPtr(v int) *int { return &v }
