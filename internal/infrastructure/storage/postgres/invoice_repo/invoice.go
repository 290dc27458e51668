// Package invoice_repo is the PostgreSQL implementation of the
// reconciliation ledger.
package invoice_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/internal/domain/invoice"
	"fuelbridge/internal/domain/proration"
	"fuelbridge/internal/infrastructure/storage/postgres"
)

const (
	invoicesTable      = "invoices"
	linesTable         = "invoice_lines"
	distributionsTable = "tank_distributions"
)

var invoiceColumns = []string{
	"id", "emitter_rut", "emitter_name", "receiver_rut", "receiver_name",
	"folio", "issue_date",
	"base_afecta", "feep", "iev", "ief", "iva", "total", "total_liters",
	"numero_solicitud", "numero_pedido", "entrada_mercancia",
	"created_at", "updated_at",
}

// Compile-time check.
var _ invoice.Store = (*Repo)(nil)

// Repo persists invoices, product lines and tank distributions.
type Repo struct {
	txManager *postgres.TxManager
}

func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the invoice with its lines and distributions. Callers wrap
// this in a transaction via tx.Manager; the querier picks it up from context.
func (r *Repo) Create(ctx context.Context, inv *invoice.Invoice) error {
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder().
		Insert(invoicesTable).
		Columns(invoiceColumns...).
		Values(
			inv.ID, inv.EmitterRUT, inv.EmitterName, inv.ReceiverRUT, inv.ReceiverName,
			inv.Folio, inv.IssueDate,
			inv.BaseAfecta, inv.FEEP, inv.IEV, inv.IEF, inv.IVA, inv.Total, inv.TotalLiters,
			inv.RequestNumber, inv.OrderNumber, inv.ReceiptNumber,
			inv.CreatedAt, inv.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build invoice insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for _, line := range inv.Lines {
		sql, args, err := r.builder().
			Insert(linesTable).
			Columns("id", "invoice_id", "item_code", "description", "liters", "unit_price",
				"unit_base", "unit_iev", "unit_ief", "unit_total", "subtotal").
			Values(line.ID, line.InvoiceID, line.ItemCode, line.Description, line.Liters, line.UnitPrice,
				line.UnitBase, line.UnitIEV, line.UnitIEF, line.UnitTotal, line.Subtotal).
			ToSql()
		if err != nil {
			return fmt.Errorf("build line insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert invoice line: %w", err)
		}
	}

	for _, dist := range inv.Distributions {
		sql, args, err := r.builder().
			Insert(distributionsTable).
			Columns("invoice_id", "tank_id", "liters").
			Values(inv.ID, dist.TankID, dist.Liters).
			ToSql()
		if err != nil {
			return fmt.Errorf("build distribution insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert tank distribution: %w", err)
		}
	}
	return nil
}

// GetByID loads an invoice with its lines and distributions.
func (r *Repo) GetByID(ctx context.Context, invoiceID uuid.UUID) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"id": invoiceID}, invoiceID)
}

// GetByRequestNumber loads the invoice holding a purchase request number.
func (r *Repo) GetByRequestNumber(ctx context.Context, requestNumber int64) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"numero_solicitud": requestNumber}, requestNumber)
}

// GetByOrderNumber loads the invoice holding a purchase order number.
func (r *Repo) GetByOrderNumber(ctx context.Context, orderNumber int64) (*invoice.Invoice, error) {
	return r.getOne(ctx, squirrel.Eq{"numero_pedido": orderNumber}, orderNumber)
}

func (r *Repo) getOne(ctx context.Context, where squirrel.Eq, key any) (*invoice.Invoice, error) {
	sql, args, err := r.builder().
		Select(invoiceColumns...).
		From(invoicesTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice select: %w", err)
	}

	var inv invoice.Invoice
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &inv, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("invoice", key)
		}
		return nil, fmt.Errorf("select invoice: %w", err)
	}

	if err := r.loadChildren(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *Repo) loadChildren(ctx context.Context, inv *invoice.Invoice) error {
	querier := r.txManager.GetQuerier(ctx)

	sql, args, err := r.builder().
		Select("id", "invoice_id", "item_code", "description", "liters", "unit_price",
			"unit_base", "unit_iev", "unit_ief", "unit_total", "subtotal").
		From(linesTable).
		Where(squirrel.Eq{"invoice_id": inv.ID}).
		OrderBy("item_code").
		ToSql()
	if err != nil {
		return fmt.Errorf("build lines select: %w", err)
	}
	if err := pgxscan.Select(ctx, querier, &inv.Lines, sql, args...); err != nil {
		return fmt.Errorf("select invoice lines: %w", err)
	}

	sql, args, err = r.builder().
		Select("tank_id", "liters").
		From(distributionsTable).
		Where(squirrel.Eq{"invoice_id": inv.ID}).
		OrderBy("tank_id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build distributions select: %w", err)
	}

	rows, err := querier.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("select tank distributions: %w", err)
	}
	defer rows.Close()

	inv.Distributions = nil
	for rows.Next() {
		var d distribution.TankDistribution
		if err := rows.Scan(&d.TankID, &d.Liters); err != nil {
			return fmt.Errorf("scan tank distribution: %w", err)
		}
		inv.Distributions = append(inv.Distributions, d)
	}
	return rows.Err()
}

// SetRequestNumber fills numero_solicitud once.
func (r *Repo) SetRequestNumber(ctx context.Context, invoiceID uuid.UUID, requestNumber int64) error {
	return r.setStage(ctx, string(invoice.StageRequest), "numero_solicitud", requestNumber,
		squirrel.Eq{"id": invoiceID}, invoiceID)
}

// SetOrderNumber fills numero_pedido once, keyed by the request number.
func (r *Repo) SetOrderNumber(ctx context.Context, requestNumber, orderNumber int64) error {
	return r.setStage(ctx, string(invoice.StageOrder), "numero_pedido", orderNumber,
		squirrel.Eq{"numero_solicitud": requestNumber}, requestNumber)
}

// SetReceiptNumber fills entrada_mercancia once, keyed by the order number.
func (r *Repo) SetReceiptNumber(ctx context.Context, orderNumber, receiptNumber int64) error {
	return r.setStage(ctx, string(invoice.StageReceipt), "entrada_mercancia", receiptNumber,
		squirrel.Eq{"numero_pedido": orderNumber}, orderNumber)
}

// setStage fills a NULL stage column. The IS NULL guard makes the write
// monotonic at the database level, so concurrent setters cannot both win.
func (r *Repo) setStage(ctx context.Context, stage, column string, value int64, where squirrel.Eq, key any) error {
	sql, args, err := r.builder().
		Update(invoicesTable).
		Set(column, value).
		Set("updated_at", time.Now().UTC()).
		Where(where).
		Where(squirrel.Expr(column + " IS NULL")).
		ToSql()
	if err != nil {
		return fmt.Errorf("build stage update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing updated: either the record is unknown or the stage is taken.
	existing, err := r.getOne(ctx, where, key)
	if err != nil {
		return err
	}
	return apperror.NewDuplicateConversion(stage, fmt.Sprintf("%d", *existing.StageNumber(invoice.Stage(stage))))
}

// UpdateLineFigures stores the per-unit tax breakdown for a product line.
func (r *Repo) UpdateLineFigures(ctx context.Context, invoiceID uuid.UUID, itemCode string, figures proration.UnitFigures) error {
	sql, args, err := r.builder().
		Update(linesTable).
		Set("unit_base", figures.UnitBase).
		Set("unit_iev", figures.UnitIEV).
		Set("unit_ief", figures.UnitIEF).
		Set("unit_total", figures.UnitTotal).
		Set("subtotal", figures.Subtotal).
		Where(squirrel.Eq{"invoice_id": invoiceID, "item_code": itemCode}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build figures update: %w", err)
	}

	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update line figures: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product line", itemCode)
	}
	return nil
}

// ListMissingOrder returns invoices stuck at the request stage.
func (r *Repo) ListMissingOrder(ctx context.Context, limit int) ([]*invoice.Invoice, error) {
	return r.list(ctx, squirrel.And{
		squirrel.NotEq{"numero_solicitud": nil},
		squirrel.Eq{"numero_pedido": nil},
	}, limit)
}

// ListMissingReceipt returns invoices stuck at the order stage.
func (r *Repo) ListMissingReceipt(ctx context.Context, limit int) ([]*invoice.Invoice, error) {
	return r.list(ctx, squirrel.And{
		squirrel.NotEq{"numero_pedido": nil},
		squirrel.Eq{"entrada_mercancia": nil},
	}, limit)
}

func (r *Repo) list(ctx context.Context, where squirrel.And, limit int) ([]*invoice.Invoice, error) {
	sql, args, err := r.builder().
		Select(invoiceColumns...).
		From(invoicesTable).
		Where(where).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build invoice list: %w", err)
	}

	var invoices []*invoice.Invoice
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &invoices, sql, args...); err != nil {
		return nil, fmt.Errorf("select invoices: %w", err)
	}
	return invoices, nil
}
