// Package proration distributes an invoice-level tax amount across document
// lines in proportion to each line's taxable base.
package proration

import (
	"github.com/shopspring/decimal"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/types"
)

// Allocation is one line's prorated share.
type Allocation struct {
	// Base is the line's taxable base used as the proration weight.
	Base decimal.Decimal
	// Share is the line's portion of the total, truncated at 4 decimals.
	Share decimal.Decimal
}

// Engine computes prorated tax shares. Stateless and safe for concurrent use.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Allocate splits total across lines proportionally to their bases:
//
//	share_i = truncate4(total * base_i / sum(bases))
//
// Truncation, never rounding. The residue lost to truncation is NOT
// redistributed: existing reconciled records were produced this way and the
// figures must stay comparable. The sum of shares may therefore fall short
// of total by less than lines * 1e-4.
func (e *Engine) Allocate(total decimal.Decimal, lineBases []decimal.Decimal) ([]Allocation, error) {
	if len(lineBases) == 0 {
		return nil, apperror.NewValidation("no lines to prorate across")
	}

	sum := decimal.Zero
	for _, base := range lineBases {
		if base.IsNegative() {
			return nil, apperror.NewValidation("line base must not be negative").
				WithDetail("base", base.String())
		}
		sum = sum.Add(base)
	}
	if !sum.IsPositive() {
		return nil, apperror.NewValidation("sum of line bases must be positive")
	}

	allocations := make([]Allocation, len(lineBases))
	for i, base := range lineBases {
		allocations[i] = Allocation{
			Base:  base,
			Share: types.Truncate4(total.Mul(base).Div(sum)),
		}
	}
	return allocations, nil
}

// LineBase returns the proration weight of a document line.
func LineBase(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice)
}

// UnitFigures is the per-unit tax breakdown recorded for an invoice product
// line once its purchase order exists. Subtotal is recomputed from the
// truncated unit total, so it can differ from the invoice total by the
// accumulated truncation residue.
type UnitFigures struct {
	UnitBase  decimal.Decimal
	UnitIEV   decimal.Decimal
	UnitIEF   decimal.Decimal
	UnitTotal decimal.Decimal
	Subtotal  decimal.Decimal
}

// ComputeUnitFigures derives per-unit figures from invoice-level totals.
// Every intermediate value is truncated at 4 decimals.
func (e *Engine) ComputeUnitFigures(baseTaxable, iev, ief, quantity decimal.Decimal) (UnitFigures, error) {
	if !quantity.IsPositive() {
		return UnitFigures{}, apperror.NewValidation("quantity must be positive").
			WithDetail("quantity", quantity.String())
	}

	unitBase := types.Truncate4(baseTaxable.Div(quantity))
	unitIEV := types.Truncate4(iev.Div(quantity))
	unitIEF := types.Truncate4(ief.Div(quantity))
	unitTotal := types.Truncate4(unitBase.Add(unitIEV).Add(unitIEF))

	return UnitFigures{
		UnitBase:  unitBase,
		UnitIEV:   unitIEV,
		UnitIEF:   unitIEF,
		UnitTotal: unitTotal,
		Subtotal:  types.Truncate4(unitTotal.Mul(quantity)),
	}, nil
}
