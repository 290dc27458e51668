package chain

import (
	"context"
	"fmt"

	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/erp"
	"fuelbridge/pkg/logger"
)

const (
	sweepBatchSize   = 50
	sweepScanWindow  = 200
	sweepEventStatus = "backfilled"
)

// Sweeper closes the gap eventual consistency leaves open: a remote document
// was created but the process died before the stage number reached the
// ledger. It scans recent ERP documents, matches them to stale records by
// base-document lineage, and backfills the missing number. It never posts
// anything to the ERP.
type Sweeper struct {
	gateway Gateway
	store   invoice.Store
	events  EventRecorder
}

func NewSweeper(gateway Gateway, store invoice.Store, events EventRecorder) *Sweeper {
	return &Sweeper{gateway: gateway, store: store, events: events}
}

// Result counts the backfills one run performed.
type Result struct {
	OrdersBackfilled   int
	ReceiptsBackfilled int
}

// Run executes one sweep pass.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	var result Result

	n, err := s.backfillOrders(ctx)
	if err != nil {
		return result, err
	}
	result.OrdersBackfilled = n

	n, err = s.backfillReceipts(ctx)
	if err != nil {
		return result, err
	}
	result.ReceiptsBackfilled = n

	logger.Info(ctx, "sweep finished",
		"orders_backfilled", result.OrdersBackfilled,
		"receipts_backfilled", result.ReceiptsBackfilled)
	return result, nil
}

// backfillOrders fills numero_pedido for records stuck at the request stage.
func (s *Sweeper) backfillOrders(ctx context.Context) (int, error) {
	records, err := s.store.ListMissingOrder(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	byBaseEntry, err := s.indexByBaseEntry(ctx, erp.ResourcePurchaseOrders, erp.BaseTypePurchaseRequest)
	if err != nil {
		return 0, err
	}

	backfilled := 0
	for _, rec := range records {
		requestEntry, ok := s.resolveDocEntry(ctx, erp.ResourcePurchaseRequests, *rec.RequestNumber)
		if !ok {
			continue
		}
		orderNum, ok := byBaseEntry[requestEntry]
		if !ok {
			continue
		}
		if err := s.store.SetOrderNumber(ctx, *rec.RequestNumber, int64(orderNum)); err != nil {
			logger.Error(ctx, "order backfill failed", "invoice_id", rec.ID, "error", err)
			continue
		}
		s.events.Record(ctx, rec.ID, string(invoice.StageOrder), sweepEventStatus,
			fmt.Sprintf("order %d matched by sweep", orderNum), nil)
		backfilled++
	}
	return backfilled, nil
}

// backfillReceipts fills entrada_mercancia for records stuck at the order stage.
func (s *Sweeper) backfillReceipts(ctx context.Context) (int, error) {
	records, err := s.store.ListMissingReceipt(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	byBaseEntry, err := s.indexByBaseEntry(ctx, erp.ResourcePurchaseDeliveryNotes, erp.BaseTypePurchaseOrder)
	if err != nil {
		return 0, err
	}

	backfilled := 0
	for _, rec := range records {
		orderEntry, ok := s.resolveDocEntry(ctx, erp.ResourcePurchaseOrders, *rec.OrderNumber)
		if !ok {
			continue
		}
		receiptNum, ok := byBaseEntry[orderEntry]
		if !ok {
			continue
		}
		if err := s.store.SetReceiptNumber(ctx, *rec.OrderNumber, int64(receiptNum)); err != nil {
			logger.Error(ctx, "receipt backfill failed", "invoice_id", rec.ID, "error", err)
			continue
		}
		s.events.Record(ctx, rec.ID, string(invoice.StageReceipt), sweepEventStatus,
			fmt.Sprintf("receipt %d matched by sweep", receiptNum), nil)
		backfilled++
	}
	return backfilled, nil
}

// indexByBaseEntry fetches the most recent documents of a resource and maps
// each referenced base DocEntry to the document's DocNum.
func (s *Sweeper) indexByBaseEntry(ctx context.Context, resource string, baseType int) (map[int]int, error) {
	path := fmt.Sprintf("%s?$select=DocEntry,DocNum,DocumentLines&$orderby=DocEntry desc&$top=%d",
		resource, sweepScanWindow)

	var docs erp.List[erp.Document]
	if err := s.gateway.Get(ctx, path, &docs); err != nil {
		return nil, err
	}

	index := make(map[int]int)
	for _, doc := range docs.Value {
		for _, line := range doc.DocumentLines {
			bt, baseEntry, _, ok := line.BaseRef()
			if ok && bt == baseType {
				index[baseEntry] = doc.DocNum
			}
		}
	}
	return index, nil
}

// resolveDocEntry looks up a document's DocEntry by its DocNum.
func (s *Sweeper) resolveDocEntry(ctx context.Context, resource string, docNum int64) (int, bool) {
	path := fmt.Sprintf("%s?$select=DocEntry,DocNum&$filter=DocNum eq %d", resource, docNum)

	var docs erp.List[erp.Document]
	if err := s.gateway.Get(ctx, path, &docs); err != nil {
		logger.Warn(ctx, "document lookup failed during sweep", "resource", resource, "doc_num", docNum, "error", err)
		return 0, false
	}
	if len(docs.Value) == 0 {
		return 0, false
	}
	return docs.Value[0].DocEntry, true
}
