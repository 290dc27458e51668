// Package tank_repo is the PostgreSQL tank registry.
package tank_repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/internal/infrastructure/storage/postgres"
)

const tanksTable = "tanks"

// Compile-time check.
var _ distribution.TankRegistry = (*Repo)(nil)

// tankRow mirrors the tanks table.
type tankRow struct {
	ID            string          `db:"id"`
	WarehouseCode string          `db:"warehouse_code"`
	Capacity      decimal.Decimal `db:"capacity"`
	Active        bool            `db:"active"`
}

func (row tankRow) toDomain() *distribution.Tank {
	return &distribution.Tank{
		ID:            row.ID,
		WarehouseCode: row.WarehouseCode,
		Capacity:      row.Capacity,
	}
}

// Repo resolves tanks for distribution validation.
type Repo struct {
	txManager *postgres.TxManager
}

func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{txManager: txManager}
}

func (r *Repo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GetTank returns an active tank by id.
func (r *Repo) GetTank(ctx context.Context, tankID string) (*distribution.Tank, error) {
	sql, args, err := r.builder().
		Select("id", "warehouse_code", "capacity", "active").
		From(tanksTable).
		Where(squirrel.Eq{"id": tankID, "active": true}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tank select: %w", err)
	}

	var row tankRow
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NewNotFound("tank", tankID)
		}
		return nil, fmt.Errorf("select tank: %w", err)
	}
	return row.toDomain(), nil
}

// ListByWarehouse returns the active tanks of a warehouse.
func (r *Repo) ListByWarehouse(ctx context.Context, warehouseCode string) ([]*distribution.Tank, error) {
	sql, args, err := r.builder().
		Select("id", "warehouse_code", "capacity", "active").
		From(tanksTable).
		Where(squirrel.Eq{"warehouse_code": warehouseCode, "active": true}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build tank list: %w", err)
	}

	var rows []tankRow
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("select tanks: %w", err)
	}

	tanks := make([]*distribution.Tank, 0, len(rows))
	for _, row := range rows {
		tanks = append(tanks, row.toDomain())
	}
	return tanks, nil
}
