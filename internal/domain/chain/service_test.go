package chain

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/id"
	"fuelbridge/internal/core/types"
	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/domain/proration"
	"fuelbridge/internal/erp"
)

type postCall struct {
	path string
	doc  erp.Document
}

type patchCall struct {
	path string
	doc  erp.Document
}

// fakeGateway serves canned documents and captures every call. Payloads are
// round-tripped through JSON so wire tags apply like they would remotely.
type fakeGateway struct {
	getResponses  map[string]any
	postResponses map[string]erp.Document
	postErrs      map[string]error

	gets    []string
	posts   []postCall
	patches []patchCall
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		getResponses:  map[string]any{},
		postResponses: map[string]erp.Document{},
		postErrs:      map[string]error{},
	}
}

func (g *fakeGateway) Get(_ context.Context, path string, out any) error {
	g.gets = append(g.gets, path)
	resp, ok := g.getResponses[path]
	if !ok {
		return apperror.NewNotFound("document", path)
	}
	b, _ := json.Marshal(resp)
	return json.Unmarshal(b, out)
}

func (g *fakeGateway) Post(_ context.Context, path string, body, out any) error {
	b, _ := json.Marshal(body)
	var doc erp.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	g.posts = append(g.posts, postCall{path: path, doc: doc})

	if err := g.postErrs[path]; err != nil {
		return err
	}
	rb, _ := json.Marshal(g.postResponses[path])
	return json.Unmarshal(rb, out)
}

func (g *fakeGateway) Patch(_ context.Context, path string, body any) error {
	b, _ := json.Marshal(body)
	var doc erp.Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	g.patches = append(g.patches, patchCall{path: path, doc: doc})
	return nil
}

// fakeStore is an in-memory ledger with monotonic stage setters.
type fakeStore struct {
	invoices map[uuid.UUID]*invoice.Invoice
}

func newFakeStore() *fakeStore {
	return &fakeStore{invoices: map[uuid.UUID]*invoice.Invoice{}}
}

func (s *fakeStore) Create(_ context.Context, inv *invoice.Invoice) error {
	s.invoices[inv.ID] = inv
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, invoiceID uuid.UUID) (*invoice.Invoice, error) {
	if inv, ok := s.invoices[invoiceID]; ok {
		return inv, nil
	}
	return nil, apperror.NewNotFound("invoice", invoiceID)
}

func (s *fakeStore) GetByRequestNumber(_ context.Context, requestNumber int64) (*invoice.Invoice, error) {
	for _, inv := range s.invoices {
		if inv.RequestNumber != nil && *inv.RequestNumber == requestNumber {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", requestNumber)
}

func (s *fakeStore) GetByOrderNumber(_ context.Context, orderNumber int64) (*invoice.Invoice, error) {
	for _, inv := range s.invoices {
		if inv.OrderNumber != nil && *inv.OrderNumber == orderNumber {
			return inv, nil
		}
	}
	return nil, apperror.NewNotFound("invoice", orderNumber)
}

func (s *fakeStore) SetRequestNumber(ctx context.Context, invoiceID uuid.UUID, requestNumber int64) error {
	inv, err := s.GetByID(ctx, invoiceID)
	if err != nil {
		return err
	}
	if inv.RequestNumber != nil {
		return apperror.NewDuplicateConversion(string(invoice.StageRequest), "")
	}
	inv.RequestNumber = &requestNumber
	return nil
}

func (s *fakeStore) SetOrderNumber(ctx context.Context, requestNumber, orderNumber int64) error {
	inv, err := s.GetByRequestNumber(ctx, requestNumber)
	if err != nil {
		return err
	}
	if inv.OrderNumber != nil {
		return apperror.NewDuplicateConversion(string(invoice.StageOrder), "")
	}
	inv.OrderNumber = &orderNumber
	return nil
}

func (s *fakeStore) SetReceiptNumber(ctx context.Context, orderNumber, receiptNumber int64) error {
	inv, err := s.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if inv.ReceiptNumber != nil {
		return apperror.NewDuplicateConversion(string(invoice.StageReceipt), "")
	}
	inv.ReceiptNumber = &receiptNumber
	return nil
}

func (s *fakeStore) UpdateLineFigures(_ context.Context, invoiceID uuid.UUID, itemCode string, figures proration.UnitFigures) error {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return apperror.NewNotFound("invoice", invoiceID)
	}
	for i := range inv.Lines {
		if inv.Lines[i].ItemCode == itemCode {
			inv.Lines[i].UnitBase = figures.UnitBase
			inv.Lines[i].UnitIEV = figures.UnitIEV
			inv.Lines[i].UnitIEF = figures.UnitIEF
			inv.Lines[i].UnitTotal = figures.UnitTotal
			inv.Lines[i].Subtotal = figures.Subtotal
			return nil
		}
	}
	return apperror.NewNotFound("product line", itemCode)
}

func (s *fakeStore) ListMissingOrder(_ context.Context, limit int) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.RequestNumber != nil && inv.OrderNumber == nil && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (s *fakeStore) ListMissingReceipt(_ context.Context, limit int) ([]*invoice.Invoice, error) {
	var out []*invoice.Invoice
	for _, inv := range s.invoices {
		if inv.OrderNumber != nil && inv.ReceiptNumber == nil && len(out) < limit {
			out = append(out, inv)
		}
	}
	return out, nil
}

type eventRecord struct {
	invoiceID uuid.UUID
	stage     string
	status    string
}

type captureEvents struct {
	records []eventRecord
}

func (e *captureEvents) Record(_ context.Context, invoiceID uuid.UUID, stage, status, _ string, _ []byte) {
	e.records = append(e.records, eventRecord{invoiceID: invoiceID, stage: stage, status: status})
}

func seedInvoice(store *fakeStore) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:         id.New(),
		Folio:      "45821",
		BaseAfecta: types.MustMoney("1000000"),
		IEV:        types.MustMoney("70000"),
		IEF:        types.MustMoney("37.5"),
		IVA:        types.MustMoney("190000"),
		Lines: []invoice.ProductLine{
			{ItemCode: "DIESEL", Liters: types.MustMoney("3000"), UnitPrice: types.MustMoney("333.33")},
		},
	}
	store.invoices[inv.ID] = inv
	return inv
}

func newTestChain() (*Service, *fakeGateway, *fakeStore, *captureEvents) {
	gateway := newFakeGateway()
	store := newFakeStore()
	events := &captureEvents{}
	return NewService(gateway, store, proration.NewEngine(), events), gateway, store, events
}

func TestService_CreateRequest(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)

	gateway.postResponses[erp.ResourcePurchaseRequests] = erp.Document{DocEntry: 41, DocNum: 7001}

	created, err := service.CreateRequest(context.Background(), CreateRequestInput{
		InvoiceID:  inv.ID,
		ItemCode:   "DIESEL",
		Quantity:   types.MustMoney("3000"),
		Warehouse:  "Bodega San Antonio",
		TaxCode:    "IVA",
		LineVendor: "P001",
		Requester:  "DESCAMILLA",
	})
	require.NoError(t, err)
	assert.Equal(t, 7001, created.DocNum)

	require.Len(t, gateway.posts, 1)
	sent := gateway.posts[0].doc
	assert.Equal(t, erp.ResourcePurchaseRequests, gateway.posts[0].path)
	assert.NotEmpty(t, sent.RequriedDate)
	assert.Equal(t, "CLP", sent.DocCurrency)
	require.Len(t, sent.DocumentLines, 1)
	line := sent.DocumentLines[0]
	assert.Equal(t, "BOD_SAN", line.WarehouseCode)
	assert.Equal(t, "0", line.Price)
	assert.Equal(t, "1160304", line.AccountCode)
	assert.Equal(t, "Litro", line.MeasureUnit)

	require.NotNil(t, inv.RequestNumber)
	assert.Equal(t, int64(7001), *inv.RequestNumber)
}

func TestService_CreateRequest_UnknownWarehouse(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)

	_, err := service.CreateRequest(context.Background(), CreateRequestInput{
		InvoiceID: inv.ID,
		ItemCode:  "DIESEL",
		Quantity:  types.MustMoney("3000"),
		Warehouse: "BODEGA FANTASMA",
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Empty(t, gateway.posts)
}

func TestService_CreateRequest_DuplicateFailsFast(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	requestNumber := int64(7001)
	inv.RequestNumber = &requestNumber

	_, err := service.CreateRequest(context.Background(), CreateRequestInput{
		InvoiceID: inv.ID,
		ItemCode:  "DIESEL",
		Quantity:  types.MustMoney("3000"),
		Warehouse: "LAMBERT",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateConversion(err))
	assert.Empty(t, gateway.gets)
	assert.Empty(t, gateway.posts)
}

func TestService_ConvertToOrder(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	requestNumber := int64(7001)
	inv.RequestNumber = &requestNumber

	gateway.getResponses["PurchaseRequests(41)"] = erp.Document{
		DocEntry: 41, DocNum: 7001,
		DocumentLines: []erp.DocumentLine{
			{LineNum: 0, ItemCode: "DIESEL", Quantity: 3000, WarehouseCode: "BOD_SAN", TaxCode: "IVA"},
		},
	}
	gateway.postResponses[erp.ResourcePurchaseOrders] = erp.Document{DocEntry: 70, DocNum: 5001}

	order, err := service.ConvertToOrder(context.Background(), inv.ID, 41, "P001")
	require.NoError(t, err)
	assert.Equal(t, 5001, order.DocNum)

	require.Len(t, gateway.posts, 1)
	sent := gateway.posts[0].doc
	assert.Equal(t, "P001", sent.CardCode)
	require.Len(t, sent.DocumentLines, 1)
	line := sent.DocumentLines[0]
	assert.Equal(t, erp.BaseTypePurchaseRequest, line.BaseType)
	assert.Equal(t, 41, line.BaseEntry)
	require.NotNil(t, line.BaseLine)
	assert.Equal(t, 0, *line.BaseLine)
	assert.Equal(t, "DIESEL", line.ItemCode)

	require.NotNil(t, inv.OrderNumber)
	assert.Equal(t, int64(5001), *inv.OrderNumber)

	// Unit figures derived from invoice totals over the request quantity.
	assert.True(t, inv.Lines[0].UnitBase.Equal(types.MustMoney("333.3333")), "unit base %s", inv.Lines[0].UnitBase)
	assert.True(t, inv.Lines[0].UnitIEF.Equal(types.MustMoney("0.0125")), "unit ief %s", inv.Lines[0].UnitIEF)
}

func TestService_ConvertToOrder_DuplicateFailsFast(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	requestNumber, orderNumber := int64(7001), int64(5001)
	inv.RequestNumber = &requestNumber
	inv.OrderNumber = &orderNumber

	_, err := service.ConvertToOrder(context.Background(), inv.ID, 41, "P001")
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateConversion(err))
	assert.Empty(t, gateway.gets)
	assert.Empty(t, gateway.posts)
}

func TestService_ConvertToDraftReceipt(t *testing.T) {
	service, gateway, _, _ := newTestChain()

	gateway.getResponses["PurchaseOrders(70)"] = erp.Document{
		DocEntry: 70, DocNum: 5001, CardCode: "P001",
		DocDate: "2026-08-30", DocDueDate: "2026-09-29",
		DocumentLines: []erp.DocumentLine{
			{LineNum: 0, ItemCode: "DIESEL", Quantity: 3000, WarehouseCode: "BOD_SAN", TaxCode: "IVA"},
		},
	}
	gateway.postResponses[erp.ResourceDrafts] = erp.Document{DocEntry: 90}

	draft, err := service.ConvertToDraftReceipt(context.Background(), 70)
	require.NoError(t, err)
	assert.Equal(t, 90, draft.DocEntry)

	require.Len(t, gateway.posts, 1)
	sent := gateway.posts[0].doc
	assert.Equal(t, erp.ResourceDrafts, gateway.posts[0].path)
	assert.Equal(t, erp.DocObjectCodeReceipt, sent.DocObjectCode)
	assert.Zero(t, sent.DocNum)
	require.Len(t, sent.DocumentLines, 1)
	assert.Equal(t, erp.BaseTypePurchaseOrder, sent.DocumentLines[0].BaseType)
	assert.Equal(t, 70, sent.DocumentLines[0].BaseEntry)
}

func TestService_UpdateCostingCodes(t *testing.T) {
	service, gateway, _, _ := newTestChain()

	gateway.getResponses["Drafts(90)"] = erp.Document{
		DocEntry: 90,
		DocumentLines: []erp.DocumentLine{
			{LineNum: 0, ItemCode: "DIESEL", Quantity: 3000},
		},
	}

	err := service.UpdateCostingCodes(context.Background(), 90, CostingCodes{
		Code1: "MINA", Code2: "FLOTA", Code3: "NORTE",
	})
	require.NoError(t, err)

	require.Len(t, gateway.patches, 1)
	assert.Equal(t, "Drafts(90)", gateway.patches[0].path)
	require.Len(t, gateway.patches[0].doc.DocumentLines, 1)
	patched := gateway.patches[0].doc.DocumentLines[0]
	assert.Equal(t, "MINA", patched.CostingCode)
	assert.Equal(t, "FLOTA", patched.CostingCode2)
	assert.Equal(t, "NORTE", patched.CostingCode3)
}

func TestService_PostDraftReceipt_SingleLineCarriesFullFigures(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	orderNumber := int64(5001)
	inv.OrderNumber = &orderNumber

	gateway.getResponses["Drafts(90)"] = erp.Document{
		DocEntry: 90, CardCode: "P001",
		DocDate: "2026-08-30", DocDueDate: "2026-09-29",
		DocumentLines: []erp.DocumentLine{
			{LineNum: 0, BaseType: erp.BaseTypePurchaseOrder, BaseEntry: 70, BaseLine: erp.IntPtr(0),
				ItemCode: "DIESEL", Quantity: 3000, WarehouseCode: "BOD_SAN"},
		},
	}
	gateway.getResponses["PurchaseOrders(70)"] = erp.Document{DocEntry: 70, DocNum: 5001}
	gateway.postResponses[erp.ResourcePurchaseDeliveryNotes] = erp.Document{DocEntry: 120, DocNum: 9001}

	receipt, err := service.PostDraftReceipt(context.Background(), 90)
	require.NoError(t, err)
	assert.Equal(t, 9001, receipt.DocNum)

	require.Len(t, gateway.posts, 1)
	sent := gateway.posts[0].doc
	require.Len(t, sent.DocumentLines, 1)
	line := sent.DocumentLines[0]
	assert.Equal(t, "DIESEL", line.ItemCode)
	assert.Equal(t, "FUEL", line.TaxCode)
	require.Len(t, line.LineTaxJurisdictions, 1)
	tax := line.LineTaxJurisdictions[0]
	assert.Equal(t, "FUEL", tax.JurisdictionCode)
	assert.Equal(t, 2, tax.JurisdictionType)
	assert.Equal(t, 1000000.0, tax.BaseSum)
	assert.Equal(t, 37.5, tax.TaxAmount)
	assert.Equal(t, 37.5, tax.TaxAmountSC)

	require.NotNil(t, inv.ReceiptNumber)
	assert.Equal(t, int64(9001), *inv.ReceiptNumber)
}

func TestService_ConvertDirectToReceipt_ProratesAcrossLines(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	inv.BaseAfecta = types.MustMoney("1000")
	inv.IEF = types.MustMoney("10")
	orderNumber := int64(5001)
	inv.OrderNumber = &orderNumber

	gateway.getResponses["PurchaseOrders(70)"] = erp.Document{
		DocEntry: 70, DocNum: 5001, CardCode: "P001",
		DocumentLines: []erp.DocumentLine{
			{LineNum: 0, ItemCode: "DIESEL", Quantity: 300, UnitPrice: 1, WarehouseCode: "BOD_SAN"},
			{LineNum: 1, ItemCode: "KEROSENE", Quantity: 700, UnitPrice: 1, WarehouseCode: "BOD_LAM"},
		},
	}
	gateway.postResponses[erp.ResourcePurchaseDeliveryNotes] = erp.Document{DocEntry: 121, DocNum: 9002}

	receipt, err := service.ConvertDirectToReceipt(context.Background(), 70)
	require.NoError(t, err)
	assert.Equal(t, 9002, receipt.DocNum)

	require.Len(t, gateway.posts, 1)
	sent := gateway.posts[0].doc
	require.Len(t, sent.DocumentLines, 2)

	// Item and price travel explicitly, not by base-document inheritance.
	assert.Equal(t, "DIESEL", sent.DocumentLines[0].ItemCode)
	assert.Equal(t, "KEROSENE", sent.DocumentLines[1].ItemCode)
	assert.Equal(t, 1.0, sent.DocumentLines[0].UnitPrice)
	assert.Equal(t, 1.0, sent.DocumentLines[1].UnitPrice)

	first := sent.DocumentLines[0].LineTaxJurisdictions[0]
	second := sent.DocumentLines[1].LineTaxJurisdictions[0]
	assert.Equal(t, 3.0, first.TaxAmount)
	assert.Equal(t, 300.0, first.BaseSum)
	assert.Equal(t, 7.0, second.TaxAmount)
	assert.Equal(t, 700.0, second.BaseSum)

	require.NotNil(t, inv.ReceiptNumber)
	assert.Equal(t, int64(9002), *inv.ReceiptNumber)
}

func TestService_ConvertDirectToReceipt_DuplicateFailsBeforePost(t *testing.T) {
	service, gateway, store, _ := newTestChain()
	inv := seedInvoice(store)
	orderNumber, receiptNumber := int64(5001), int64(9001)
	inv.OrderNumber = &orderNumber
	inv.ReceiptNumber = &receiptNumber

	gateway.getResponses["PurchaseOrders(70)"] = erp.Document{DocEntry: 70, DocNum: 5001}

	_, err := service.ConvertDirectToReceipt(context.Background(), 70)
	require.Error(t, err)
	assert.True(t, apperror.IsDuplicateConversion(err))
	assert.Empty(t, gateway.posts)
}

func TestService_RemoteFailureLeavesLedgerUntouched(t *testing.T) {
	service, gateway, store, events := newTestChain()
	inv := seedInvoice(store)

	gateway.postErrs[erp.ResourcePurchaseRequests] = apperror.NewRemoteBusiness("Item missing", nil)

	_, err := service.CreateRequest(context.Background(), CreateRequestInput{
		InvoiceID: inv.ID,
		ItemCode:  "DIESEL",
		Quantity:  types.MustMoney("3000"),
		Warehouse: "TALCUNA",
	})
	require.Error(t, err)
	assert.Nil(t, inv.RequestNumber)

	require.Len(t, events.records, 1)
	assert.Equal(t, "error", events.records[0].status)
}

// failingWriteStore rejects every stage write while the rest of the ledger
// keeps working.
type failingWriteStore struct {
	*fakeStore
}

func (s *failingWriteStore) SetRequestNumber(context.Context, uuid.UUID, int64) error {
	return errors.New("connection reset")
}

func (s *failingWriteStore) SetReceiptNumber(context.Context, int64, int64) error {
	return errors.New("connection reset")
}

func TestService_StageWriteFailureKeepsRemoteDocument(t *testing.T) {
	gateway := newFakeGateway()
	store := newFakeStore()
	events := &captureEvents{}
	service := NewService(gateway, &failingWriteStore{fakeStore: store}, proration.NewEngine(), events)
	inv := seedInvoice(store)

	gateway.postResponses[erp.ResourcePurchaseRequests] = erp.Document{DocEntry: 41, DocNum: 7001}

	created, err := service.CreateRequest(context.Background(), CreateRequestInput{
		InvoiceID: inv.ID,
		ItemCode:  "DIESEL",
		Quantity:  types.MustMoney("3000"),
		Warehouse: "SAN ANTONIO",
	})

	// The ERP accepted the document, so the operation succeeds even though
	// the stage number never landed. The sweep picks it up later.
	require.NoError(t, err)
	assert.Equal(t, 7001, created.DocNum)
	assert.Nil(t, inv.RequestNumber)

	require.Len(t, events.records, 1)
	assert.Equal(t, inv.ID, events.records[0].invoiceID)
	assert.Equal(t, string(invoice.StageRequest), events.records[0].stage)
	assert.Equal(t, "local-write-failed", events.records[0].status)
}

// cancelAwareStore fails stage writes whenever the context it receives is
// already done.
type cancelAwareStore struct {
	*fakeStore
}

func (s *cancelAwareStore) SetRequestNumber(ctx context.Context, invoiceID uuid.UUID, requestNumber int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.fakeStore.SetRequestNumber(ctx, invoiceID, requestNumber)
}

func TestService_CallerCancellationDoesNotLoseStageWrite(t *testing.T) {
	gateway := newFakeGateway()
	store := newFakeStore()
	events := &captureEvents{}
	service := NewService(gateway, &cancelAwareStore{fakeStore: store}, proration.NewEngine(), events)
	inv := seedInvoice(store)

	gateway.postResponses[erp.ResourcePurchaseRequests] = erp.Document{DocEntry: 41, DocNum: 7001}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	created, err := service.CreateRequest(ctx, CreateRequestInput{
		InvoiceID: inv.ID,
		ItemCode:  "DIESEL",
		Quantity:  types.MustMoney("3000"),
		Warehouse: "SAN ANTONIO",
	})
	require.NoError(t, err)
	assert.Equal(t, 7001, created.DocNum)

	// The ledger write ran detached from the cancelled caller context.
	require.NotNil(t, inv.RequestNumber)
	assert.Equal(t, int64(7001), *inv.RequestNumber)

	require.Len(t, events.records, 1)
	assert.Equal(t, "ok", events.records[0].status)
}

func TestSweeper_BackfillsMissingReceipt(t *testing.T) {
	gateway := newFakeGateway()
	store := newFakeStore()
	events := &captureEvents{}
	sweeper := NewSweeper(gateway, store, events)

	inv := seedInvoice(store)
	requestNumber, orderNumber := int64(7001), int64(5001)
	inv.RequestNumber = &requestNumber
	inv.OrderNumber = &orderNumber

	gateway.getResponses["PurchaseDeliveryNotes?$select=DocEntry,DocNum,DocumentLines&$orderby=DocEntry desc&$top=200"] = erp.List[erp.Document]{
		Value: []erp.Document{
			{DocEntry: 120, DocNum: 9001, DocumentLines: []erp.DocumentLine{
				{BaseType: erp.BaseTypePurchaseOrder, BaseEntry: 70, BaseLine: erp.IntPtr(0)},
			}},
		},
	}
	gateway.getResponses["PurchaseOrders?$select=DocEntry,DocNum&$filter=DocNum eq 5001"] = erp.List[erp.Document]{
		Value: []erp.Document{{DocEntry: 70, DocNum: 5001}},
	}

	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ReceiptsBackfilled)
	assert.Equal(t, 0, result.OrdersBackfilled)

	require.NotNil(t, inv.ReceiptNumber)
	assert.Equal(t, int64(9001), *inv.ReceiptNumber)
	assert.Empty(t, gateway.posts, "sweep must never post")

	require.Len(t, events.records, 1)
	assert.Equal(t, "backfilled", events.records[0].status)
}

func TestSweeper_NoMatchLeavesRecordAlone(t *testing.T) {
	gateway := newFakeGateway()
	store := newFakeStore()
	sweeper := NewSweeper(gateway, store, &captureEvents{})

	inv := seedInvoice(store)
	requestNumber, orderNumber := int64(7001), int64(5001)
	inv.RequestNumber = &requestNumber
	inv.OrderNumber = &orderNumber

	gateway.getResponses["PurchaseDeliveryNotes?$select=DocEntry,DocNum,DocumentLines&$orderby=DocEntry desc&$top=200"] = erp.List[erp.Document]{}
	gateway.getResponses["PurchaseOrders?$select=DocEntry,DocNum&$filter=DocNum eq 5001"] = erp.List[erp.Document]{
		Value: []erp.Document{{DocEntry: 70, DocNum: 5001}},
	}

	result, err := sweeper.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ReceiptsBackfilled)
	assert.Nil(t, inv.ReceiptNumber)
}
