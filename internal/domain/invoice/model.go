// Package invoice holds the local ledger of supplier fuel invoices and their
// reconciliation against the ERP procurement chain.
package invoice

import (
	"time"

	"github.com/google/uuid"

	"fuelbridge/internal/core/types"
	"fuelbridge/internal/domain/distribution"
)

// Stage names the procurement stages an invoice moves through. Each stage,
// once recorded, is immutable.
type Stage string

const (
	StageRequest Stage = "request"
	StageOrder   Stage = "order"
	StageReceipt Stage = "receipt"
)

// Invoice is a supplier fuel invoice with its reconciliation state.
//
// RequestNumber, OrderNumber and ReceiptNumber hold the ERP document numbers
// of the corresponding stages. They start NULL and are filled exactly once,
// in order; a filled column is never overwritten. ReceiptNumber may also be
// backfilled by the reconciliation sweep when a crash lost the local write.
type Invoice struct {
	ID uuid.UUID `db:"id"`

	EmitterRUT   string `db:"emitter_rut"`
	EmitterName  string `db:"emitter_name"`
	ReceiverRUT  string `db:"receiver_rut"`
	ReceiverName string `db:"receiver_name"`
	Folio        string `db:"folio"`
	IssueDate    string `db:"issue_date"`

	// Payment detail, full precision.
	BaseAfecta types.Money `db:"base_afecta"`
	FEEP       types.Money `db:"feep"`
	IEV        types.Money `db:"iev"`
	IEF        types.Money `db:"ief"`
	IVA        types.Money `db:"iva"`
	Total      types.Money `db:"total"`

	TotalLiters types.Liters `db:"total_liters"`

	RequestNumber *int64 `db:"numero_solicitud"`
	OrderNumber   *int64 `db:"numero_pedido"`
	ReceiptNumber *int64 `db:"entrada_mercancia"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Lines         []ProductLine                   `db:"-"`
	Distributions []distribution.TankDistribution `db:"-"`
}

// ProductLine is one fuel product on the invoice.
//
// The unit figure columns are empty at ingestion and filled once the purchase
// order exists, from the invoice-level totals divided per unit and truncated
// at 4 decimals.
type ProductLine struct {
	ID        uuid.UUID `db:"id"`
	InvoiceID uuid.UUID `db:"invoice_id"`

	ItemCode    string       `db:"item_code"`
	Description string       `db:"description"`
	Liters      types.Liters `db:"liters"`
	UnitPrice   types.Money  `db:"unit_price"`

	UnitBase  types.Money `db:"unit_base"`
	UnitIEV   types.Money `db:"unit_iev"`
	UnitIEF   types.Money `db:"unit_ief"`
	UnitTotal types.Money `db:"unit_total"`
	Subtotal  types.Money `db:"subtotal"`
}

// StageNumber returns the recorded document number for a stage, or nil.
func (i *Invoice) StageNumber(stage Stage) *int64 {
	switch stage {
	case StageRequest:
		return i.RequestNumber
	case StageOrder:
		return i.OrderNumber
	case StageReceipt:
		return i.ReceiptNumber
	}
	return nil
}

// LiterSum returns the total liters across product lines.
func (i *Invoice) LiterSum() types.Liters {
	sum := types.Zero()
	for _, line := range i.Lines {
		sum = sum.Add(line.Liters)
	}
	return sum
}
