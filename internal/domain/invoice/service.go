package invoice

import (
	"context"

	"github.com/google/uuid"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/id"
	"fuelbridge/internal/core/tx"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/pkg/logger"
)

// EventRecorder appends stage events to the reconciliation event log.
// Recording is best-effort: implementations log failures and never return them.
type EventRecorder interface {
	Record(ctx context.Context, invoiceID uuid.UUID, stage, status, comment string, payload []byte)
}

// Service ingests supplier invoices into the local ledger.
type Service struct {
	store     Store
	validator *distribution.Validator
	txManager tx.Manager
	events    EventRecorder
}

func NewService(store Store, validator *distribution.Validator, txManager tx.Manager, events EventRecorder) *Service {
	return &Service{
		store:     store,
		validator: validator,
		txManager: txManager,
		events:    events,
	}
}

// Ingest validates and persists an invoice with its product lines and tank
// distribution. Validation happens entirely before the transaction: a
// rejected invoice leaves no trace in the ledger.
func (s *Service) Ingest(ctx context.Context, inv *Invoice) (uuid.UUID, error) {
	if len(inv.Lines) == 0 {
		return uuid.Nil, apperror.NewValidation("invoice has no product lines")
	}
	for _, line := range inv.Lines {
		if line.ItemCode == "" {
			return uuid.Nil, apperror.NewValidation("product line is missing item code")
		}
		if !line.Liters.IsPositive() {
			return uuid.Nil, apperror.NewValidation("product line liters must be positive").
				WithDetail("item_code", line.ItemCode)
		}
	}

	totalLiters := inv.LiterSum()
	if err := s.validator.Validate(ctx, inv.Distributions, totalLiters); err != nil {
		return uuid.Nil, err
	}

	if inv.RequestNumber != nil {
		existing, err := s.store.GetByRequestNumber(ctx, *inv.RequestNumber)
		if err != nil && !apperror.IsNotFound(err) {
			return uuid.Nil, err
		}
		if existing != nil {
			return uuid.Nil, apperror.NewDuplicate("invoice", "request number", existing.ID.String())
		}
	}

	inv.ID = id.New()
	inv.TotalLiters = totalLiters
	for i := range inv.Lines {
		inv.Lines[i].ID = id.New()
		inv.Lines[i].InvoiceID = inv.ID
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.store.Create(ctx, inv)
	})
	if err != nil {
		return uuid.Nil, err
	}

	logger.Info(ctx, "invoice ingested",
		"invoice_id", inv.ID,
		"emitter", inv.EmitterRUT,
		"total_liters", totalLiters.String(),
	)
	s.events.Record(ctx, inv.ID, "ingest", "ok", "invoice ingested", nil)
	return inv.ID, nil
}
