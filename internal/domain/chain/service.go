// Package chain orchestrates the ERP procurement document chain:
// purchase request, purchase order, draft goods receipt, posted goods receipt.
//
// Every mutating operation follows the same ordering rule: the remote
// document is created first, and only after the ERP acknowledged it is the
// stage number written to the local ledger, under a non-cancelable context.
// A lost local write is recovered later by the reconciliation sweep, never by
// re-posting the remote document.
package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/types"
	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/domain/proration"
	"fuelbridge/internal/erp"
	"fuelbridge/pkg/logger"
)

// Gateway is the verb-level remote access the orchestrator needs.
// Satisfied by *erp.Client.
type Gateway interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body any) error
}

// EventRecorder appends stage events to the reconciliation event log.
type EventRecorder interface {
	Record(ctx context.Context, invoiceID uuid.UUID, stage, status, comment string, payload []byte)
}

// Defaults applied to generated procurement documents.
const (
	docCurrency     = "CLP"
	fuelAccountCode = "1160304"
	fuelTaxCode     = "FUEL"
	dueDateOffset   = 30 * 24 * time.Hour
	dateLayout      = "2006-01-02"
)

// warehouseCodes maps free-form delivery site names, as they appear on
// supplier invoices, to ERP warehouse codes.
var warehouseCodes = map[string]string{
	"BODEGA SAN ANTONIO":   "BOD_SAN",
	"SAN ANTONIO":          "BOD_SAN",
	"QUEBRADA SAN ANTONIO": "BOD_SAN",
	"BODEGA LAMBERT":       "BOD_LAM",
	"LAMBERT":              "BOD_LAM",
	"AGUA GRANDE":          "BOD_LAM",
	"BODEGA TALCUNA":       "BOD_TAL",
	"TALCUNA":              "BOD_TAL",
	"MOLLE":                "BOD_TAL",
	"MARQUESA":             "BOD_TAL",
}

// NormalizeWarehouse resolves a delivery site name to its warehouse code.
func NormalizeWarehouse(name string) (string, error) {
	if code, ok := warehouseCodes[strings.ToUpper(strings.TrimSpace(name))]; ok {
		return code, nil
	}
	return "", apperror.NewValidation("unknown delivery warehouse").WithDetail("warehouse", name)
}

// Service drives invoices through the procurement chain.
type Service struct {
	gateway Gateway
	store   invoice.Store
	engine  *proration.Engine
	events  EventRecorder
	now     func() time.Time
}

func NewService(gateway Gateway, store invoice.Store, engine *proration.Engine, events EventRecorder) *Service {
	return &Service{
		gateway: gateway,
		store:   store,
		engine:  engine,
		events:  events,
		now:     time.Now,
	}
}

// CreateRequestInput describes the purchase request derived from an ingested
// invoice line.
type CreateRequestInput struct {
	InvoiceID  uuid.UUID
	ItemCode   string
	Quantity   decimal.Decimal
	Warehouse  string // free-form site name, normalized before sending
	TaxCode    string
	LineVendor string
	Requester  string
}

// CreateRequest creates the purchase request in the ERP and records its
// document number on the invoice.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (*erp.Document, error) {
	inv, err := s.store.GetByID(ctx, in.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.RequestNumber != nil {
		return nil, apperror.NewDuplicateConversion(string(invoice.StageRequest),
			fmt.Sprintf("%d", *inv.RequestNumber))
	}
	if !in.Quantity.IsPositive() {
		return nil, apperror.NewValidation("request quantity must be positive")
	}
	warehouseCode, err := NormalizeWarehouse(in.Warehouse)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(dateLayout)
	due := s.now().Add(dueDateOffset).Format(dateLayout)

	payload := erp.Document{
		DocDate:      today,
		DocDueDate:   due,
		RequriedDate: today,
		Requester:    in.Requester,
		DocCurrency:  docCurrency,
		Comments:     fmt.Sprintf("Solicitud automatica, factura %s", inv.Folio),
		DocumentLines: []erp.DocumentLine{{
			ItemCode:      in.ItemCode,
			Quantity:      in.Quantity.InexactFloat64(),
			Price:         "0",
			TaxCode:       in.TaxCode,
			WarehouseCode: warehouseCode,
			LineVendor:    in.LineVendor,
			RequiredDate:  today,
			Currency:      docCurrency,
			UoMCode:       "Manual",
			MeasureUnit:   "Litro",
			AccountCode:   fuelAccountCode,
		}},
	}

	var created erp.Document
	if err := s.gateway.Post(ctx, erp.ResourcePurchaseRequests, payload, &created); err != nil {
		s.recordFailure(ctx, inv.ID, invoice.StageRequest, err)
		return nil, err
	}

	s.commitStage(ctx, inv.ID, invoice.StageRequest, &created, func(ctx context.Context) error {
		return s.store.SetRequestNumber(ctx, inv.ID, int64(created.DocNum))
	})
	return &created, nil
}

// ConvertToOrder converts the invoice's purchase request into a purchase
// order addressed to the given vendor, then stores the order number and the
// per-unit tax figures.
func (s *Service) ConvertToOrder(ctx context.Context, invoiceID uuid.UUID, requestEntry int, cardCode string) (*erp.Document, error) {
	inv, err := s.store.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.OrderNumber != nil {
		return nil, apperror.NewDuplicateConversion(string(invoice.StageOrder),
			fmt.Sprintf("%d", *inv.OrderNumber))
	}
	if inv.RequestNumber == nil {
		return nil, apperror.NewValidation("invoice has no purchase request recorded")
	}
	if cardCode == "" {
		return nil, apperror.NewValidation("vendor card code is required")
	}

	var request erp.Document
	if err := s.gateway.Get(ctx, erp.DocumentPath(erp.ResourcePurchaseRequests, requestEntry), &request); err != nil {
		return nil, err
	}
	if len(request.DocumentLines) == 0 {
		return nil, apperror.NewValidation("purchase request has no lines").
			WithDetail("doc_entry", requestEntry)
	}

	today := s.now().Format(dateLayout)
	due := s.now().Add(dueDateOffset).Format(dateLayout)

	lines := make([]erp.DocumentLine, len(request.DocumentLines))
	for i, l := range request.DocumentLines {
		lines[i] = erp.DocumentLine{
			BaseType:      erp.BaseTypePurchaseRequest,
			BaseEntry:     request.DocEntry,
			BaseLine:      erp.IntPtr(l.LineNum),
			ItemCode:      l.ItemCode,
			Quantity:      l.Quantity,
			WarehouseCode: l.WarehouseCode,
			TaxCode:       l.TaxCode,
		}
	}

	payload := erp.Document{
		DocDate:       today,
		DocDueDate:    due,
		CardCode:      cardCode,
		Comments:      fmt.Sprintf("Pedido generado desde solicitud %d", request.DocNum),
		DocumentLines: lines,
	}

	var order erp.Document
	if err := s.gateway.Post(ctx, erp.ResourcePurchaseOrders, payload, &order); err != nil {
		s.recordFailure(ctx, inv.ID, invoice.StageOrder, err)
		return nil, err
	}

	s.commitStage(ctx, inv.ID, invoice.StageOrder, &order, func(ctx context.Context) error {
		return s.store.SetOrderNumber(ctx, *inv.RequestNumber, int64(order.DocNum))
	})
	s.updateUnitFigures(ctx, inv, request.DocumentLines[0])
	return &order, nil
}

// updateUnitFigures derives and stores the per-unit tax breakdown once the
// order quantity is settled. Best-effort alongside the stage write.
func (s *Service) updateUnitFigures(ctx context.Context, inv *invoice.Invoice, line erp.DocumentLine) {
	quantity := decimal.NewFromFloat(line.Quantity)
	figures, err := s.engine.ComputeUnitFigures(inv.BaseAfecta, inv.IEV, inv.IEF, quantity)
	if err != nil {
		logger.Warn(ctx, "unit figures not computed", "invoice_id", inv.ID, "error", err)
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.store.UpdateLineFigures(ctx, inv.ID, line.ItemCode, figures); err != nil {
		logger.Error(ctx, "unit figures not stored", "invoice_id", inv.ID, "error", err)
	}
}

// ConvertToDraftReceipt stages a goods receipt draft from a purchase order.
// Drafts carry no DocNum and stay editable until posted, so no ledger stage
// is recorded here.
func (s *Service) ConvertToDraftReceipt(ctx context.Context, orderEntry int) (*erp.Document, error) {
	var order erp.Document
	if err := s.gateway.Get(ctx, erp.DocumentPath(erp.ResourcePurchaseOrders, orderEntry), &order); err != nil {
		return nil, err
	}
	if len(order.DocumentLines) == 0 {
		return nil, apperror.NewValidation("purchase order has no lines").
			WithDetail("doc_entry", orderEntry)
	}

	lines := make([]erp.DocumentLine, len(order.DocumentLines))
	for i, l := range order.DocumentLines {
		lines[i] = erp.DocumentLine{
			BaseType:      erp.BaseTypePurchaseOrder,
			BaseEntry:     order.DocEntry,
			BaseLine:      erp.IntPtr(l.LineNum),
			ItemCode:      l.ItemCode,
			Quantity:      l.Quantity,
			WarehouseCode: l.WarehouseCode,
			TaxCode:       l.TaxCode,
		}
	}

	payload := erp.Document{
		DocObjectCode: erp.DocObjectCodeReceipt,
		DocDate:       order.DocDate,
		DocDueDate:    order.DocDueDate,
		CardCode:      order.CardCode,
		Comments:      fmt.Sprintf("Borrador creado desde pedido %d", order.DocNum),
		DocumentLines: lines,
	}

	var draft erp.Document
	if err := s.gateway.Post(ctx, erp.ResourceDrafts, payload, &draft); err != nil {
		return nil, err
	}

	logger.Info(ctx, "draft receipt created", "draft_entry", draft.DocEntry, "order_entry", orderEntry)
	return &draft, nil
}

// CostingCodes are the distribution rule dimensions editable on a draft.
type CostingCodes struct {
	Code1 string
	Code2 string
	Code3 string
}

// UpdateCostingCodes rewrites the costing dimensions on every line of a
// draft. Sent with collection-replace semantics, so the full line set is
// included.
func (s *Service) UpdateCostingCodes(ctx context.Context, draftEntry int, codes CostingCodes) error {
	path := erp.DocumentPath(erp.ResourceDrafts, draftEntry)

	var draft erp.Document
	if err := s.gateway.Get(ctx, path, &draft); err != nil {
		return err
	}

	lines := draft.DocumentLines
	for i := range lines {
		lines[i].CostingCode = codes.Code1
		lines[i].CostingCode2 = codes.Code2
		lines[i].CostingCode3 = codes.Code3
	}

	return s.gateway.Patch(ctx, path, erp.Document{DocumentLines: lines})
}

// UpdateOrderLine changes quantity and unit price of one order line and
// refreshes the stored per-unit figures to match.
func (s *Service) UpdateOrderLine(ctx context.Context, orderEntry int, itemCode string, quantity, unitPrice decimal.Decimal) error {
	if !quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}

	path := erp.DocumentPath(erp.ResourcePurchaseOrders, orderEntry)

	var order erp.Document
	if err := s.gateway.Get(ctx, path, &order); err != nil {
		return err
	}

	found := false
	lines := order.DocumentLines
	for i := range lines {
		if lines[i].ItemCode == itemCode {
			lines[i].Quantity = quantity.InexactFloat64()
			lines[i].UnitPrice = unitPrice.InexactFloat64()
			found = true
		}
	}
	if !found {
		return apperror.NewNotFound("order line", itemCode)
	}

	if err := s.gateway.Patch(ctx, path, erp.Document{DocumentLines: lines}); err != nil {
		return err
	}

	inv, err := s.store.GetByOrderNumber(ctx, int64(order.DocNum))
	if err != nil {
		if !apperror.IsNotFound(err) {
			logger.Error(ctx, "order line figures not refreshed", "order_entry", orderEntry, "error", err)
		}
		return nil
	}
	figures, err := s.engine.ComputeUnitFigures(inv.BaseAfecta, inv.IEV, inv.IEF, quantity)
	if err != nil {
		logger.Warn(ctx, "unit figures not computed", "invoice_id", inv.ID, "error", err)
		return nil
	}
	if err := s.store.UpdateLineFigures(context.WithoutCancel(ctx), inv.ID, itemCode, figures); err != nil {
		logger.Error(ctx, "unit figures not stored", "invoice_id", inv.ID, "error", err)
	}
	return nil
}

// PostDraftReceipt turns a staged draft into a posted goods receipt,
// attaching the fuel levy prorated across the draft lines, and records the
// receipt number.
func (s *Service) PostDraftReceipt(ctx context.Context, draftEntry int) (*erp.Document, error) {
	var draft erp.Document
	if err := s.gateway.Get(ctx, erp.DocumentPath(erp.ResourceDrafts, draftEntry), &draft); err != nil {
		return nil, err
	}
	if len(draft.DocumentLines) == 0 {
		return nil, apperror.NewValidation("draft has no lines").WithDetail("doc_entry", draftEntry)
	}

	orderEntry := draft.DocumentLines[0].BaseEntry
	inv, order, err := s.invoiceForOrderEntry(ctx, orderEntry)
	if err != nil {
		return nil, err
	}
	if inv.ReceiptNumber != nil {
		return nil, apperror.NewDuplicateConversion(string(invoice.StageReceipt),
			fmt.Sprintf("%d", *inv.ReceiptNumber))
	}

	lines, err := s.receiptLines(draft.DocumentLines, inv)
	if err != nil {
		return nil, err
	}

	payload := erp.Document{
		DocDate:       draft.DocDate,
		DocDueDate:    draft.DocDueDate,
		CardCode:      draft.CardCode,
		Comments:      fmt.Sprintf("Entrada generada desde borrador %d", draftEntry),
		DocumentLines: lines,
	}

	var receipt erp.Document
	if err := s.gateway.Post(ctx, erp.ResourcePurchaseDeliveryNotes, payload, &receipt); err != nil {
		s.recordFailure(ctx, inv.ID, invoice.StageReceipt, err)
		return nil, err
	}

	s.commitStage(ctx, inv.ID, invoice.StageReceipt, &receipt, func(ctx context.Context) error {
		return s.store.SetReceiptNumber(ctx, int64(order.DocNum), int64(receipt.DocNum))
	})
	return &receipt, nil
}

// ConvertDirectToReceipt posts a goods receipt straight from a purchase
// order, skipping the draft stage. Proration is identical to the staged path.
func (s *Service) ConvertDirectToReceipt(ctx context.Context, orderEntry int) (*erp.Document, error) {
	inv, order, err := s.invoiceForOrderEntry(ctx, orderEntry)
	if err != nil {
		return nil, err
	}
	if inv.ReceiptNumber != nil {
		return nil, apperror.NewDuplicateConversion(string(invoice.StageReceipt),
			fmt.Sprintf("%d", *inv.ReceiptNumber))
	}
	if len(order.DocumentLines) == 0 {
		return nil, apperror.NewValidation("purchase order has no lines").
			WithDetail("doc_entry", orderEntry)
	}

	source := make([]erp.DocumentLine, len(order.DocumentLines))
	for i, l := range order.DocumentLines {
		source[i] = erp.DocumentLine{
			BaseEntry:     order.DocEntry,
			BaseLine:      erp.IntPtr(l.LineNum),
			ItemCode:      l.ItemCode,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			WarehouseCode: l.WarehouseCode,
		}
	}
	lines, err := s.receiptLines(source, inv)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(dateLayout)
	payload := erp.Document{
		DocDate:       today,
		DocDueDate:    s.now().Add(dueDateOffset).Format(dateLayout),
		CardCode:      order.CardCode,
		Comments:      fmt.Sprintf("Entrada directa desde pedido %d", order.DocNum),
		DocumentLines: lines,
	}

	var receipt erp.Document
	if err := s.gateway.Post(ctx, erp.ResourcePurchaseDeliveryNotes, payload, &receipt); err != nil {
		s.recordFailure(ctx, inv.ID, invoice.StageReceipt, err)
		return nil, err
	}

	s.commitStage(ctx, inv.ID, invoice.StageReceipt, &receipt, func(ctx context.Context) error {
		return s.store.SetReceiptNumber(ctx, int64(order.DocNum), int64(receipt.DocNum))
	})
	return &receipt, nil
}

// invoiceForOrderEntry resolves the ledger record behind an order DocEntry.
func (s *Service) invoiceForOrderEntry(ctx context.Context, orderEntry int) (*invoice.Invoice, *erp.Document, error) {
	var order erp.Document
	if err := s.gateway.Get(ctx, erp.DocumentPath(erp.ResourcePurchaseOrders, orderEntry), &order); err != nil {
		return nil, nil, err
	}
	inv, err := s.store.GetByOrderNumber(ctx, int64(order.DocNum))
	if err != nil {
		return nil, nil, err
	}
	return inv, &order, nil
}

// receiptLines builds posted-receipt lines carrying the prorated fuel levy.
// Each line's weight is quantity times unit price; a single-line document
// carries the full figures with BaseSum equal to the taxable base.
func (s *Service) receiptLines(source []erp.DocumentLine, inv *invoice.Invoice) ([]erp.DocumentLine, error) {
	shares := make([]types.Money, len(source))
	baseSums := make([]types.Money, len(source))

	if len(source) == 1 {
		shares[0] = inv.IEF
		baseSums[0] = inv.BaseAfecta
	} else {
		bases := make([]decimal.Decimal, len(source))
		for i, l := range source {
			bases[i] = proration.LineBase(decimal.NewFromFloat(l.Quantity), decimal.NewFromFloat(l.UnitPrice))
		}
		iefAlloc, err := s.engine.Allocate(inv.IEF, bases)
		if err != nil {
			return nil, err
		}
		baseAlloc, err := s.engine.Allocate(inv.BaseAfecta, bases)
		if err != nil {
			return nil, err
		}
		for i := range source {
			shares[i] = iefAlloc[i].Share
			baseSums[i] = baseAlloc[i].Share
		}
	}

	lines := make([]erp.DocumentLine, len(source))
	for i, l := range source {
		ief := shares[i].InexactFloat64()
		lines[i] = erp.DocumentLine{
			BaseType:      erp.BaseTypePurchaseOrder,
			BaseEntry:     l.BaseEntry,
			BaseLine:      l.BaseLine,
			ItemCode:      l.ItemCode,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			WarehouseCode: l.WarehouseCode,
			TaxCode:       fuelTaxCode,
			LineTaxJurisdictions: []erp.TaxJurisdiction{{
				JurisdictionCode: fuelTaxCode,
				JurisdictionType: 2,
				TaxRate:          1.0,
				BaseSum:          baseSums[i].InexactFloat64(),
				TaxAmount:        ief,
				TaxAmountSC:      ief,
				TaxAmountFC:      ief,
				TaxOnly:          "tNO",
			}},
		}
	}
	return lines, nil
}

// commitStage writes the stage number after remote success. The write runs
// under a non-cancelable context: once the ERP acknowledged the document,
// caller cancellation must not lose the stage id. A failed write is logged
// and left to the reconciliation sweep.
func (s *Service) commitStage(ctx context.Context, invoiceID uuid.UUID, stage invoice.Stage, doc *erp.Document, write func(ctx context.Context) error) {
	ctx = context.WithoutCancel(ctx)

	payload, _ := json.Marshal(doc)
	if err := write(ctx); err != nil {
		logger.Error(ctx, "stage number not recorded, sweep will reconcile",
			"invoice_id", invoiceID, "stage", stage, "doc_num", doc.DocNum, "error", err)
		s.events.Record(ctx, invoiceID, string(stage), "local-write-failed", err.Error(), payload)
		return
	}

	logger.Info(ctx, "stage recorded", "invoice_id", invoiceID, "stage", stage, "doc_num", doc.DocNum)
	s.events.Record(ctx, invoiceID, string(stage), "ok",
		fmt.Sprintf("document %d recorded", doc.DocNum), payload)
}

func (s *Service) recordFailure(ctx context.Context, invoiceID uuid.UUID, stage invoice.Stage, err error) {
	var payload []byte
	if appErr, ok := apperror.AsAppError(err); ok {
		payload, _ = json.Marshal(appErr)
	}
	s.events.Record(ctx, invoiceID, string(stage), "error", err.Error(), payload)
}
