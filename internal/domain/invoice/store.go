package invoice

import (
	"context"

	"github.com/google/uuid"

	"fuelbridge/internal/domain/proration"
)

// Store is the reconciliation ledger contract.
//
// Stage setters are monotonic: they fill a NULL column and fail with
// DUPLICATE_CONVERSION when the column is already set, regardless of value.
// Records are never deleted; a mistaken invoice is corrected by a new one.
type Store interface {
	// Create persists the invoice with its product lines and tank
	// distributions in one transaction.
	Create(ctx context.Context, inv *Invoice) error

	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	GetByRequestNumber(ctx context.Context, requestNumber int64) (*Invoice, error)
	GetByOrderNumber(ctx context.Context, orderNumber int64) (*Invoice, error)

	// SetRequestNumber records the purchase request number on an invoice.
	SetRequestNumber(ctx context.Context, id uuid.UUID, requestNumber int64) error

	// SetOrderNumber records the purchase order number on the invoice
	// holding the given request number.
	SetOrderNumber(ctx context.Context, requestNumber, orderNumber int64) error

	// SetReceiptNumber records the goods receipt number on the invoice
	// holding the given order number.
	SetReceiptNumber(ctx context.Context, orderNumber, receiptNumber int64) error

	// UpdateLineFigures stores the per-unit tax breakdown for a product line.
	UpdateLineFigures(ctx context.Context, invoiceID uuid.UUID, itemCode string, figures proration.UnitFigures) error

	// ListMissingOrder returns invoices with a request number recorded but
	// no order yet, oldest first. Sweep input.
	ListMissingOrder(ctx context.Context, limit int) ([]*Invoice, error)

	// ListMissingReceipt returns invoices with an order number recorded but
	// no goods receipt yet, oldest first. Sweep input.
	ListMissingReceipt(ctx context.Context, limit int) ([]*Invoice, error)
}
