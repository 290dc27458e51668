package distribution

import (
	"context"

	"github.com/shopspring/decimal"

	"fuelbridge/internal/core/apperror"
)

// Validator checks a proposed tank distribution against the tank registry and
// the invoice quantity. Validation is all-or-nothing: the first violation
// rejects the whole batch, and nothing is persisted here.
type Validator struct {
	registry TankRegistry
}

func NewValidator(registry TankRegistry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks the batch in order, so repeated calls with the same input
// fail on the same entry:
//
//  1. every referenced tank exists,
//  2. no allocation exceeds its tank's capacity,
//  3. the allocations sum to the invoice total within Tolerance.
//
// At least one allocation must be positive.
func (v *Validator) Validate(ctx context.Context, dists []TankDistribution, invoiceTotal decimal.Decimal) error {
	if len(dists) == 0 {
		return apperror.NewValidation("tank distribution is empty")
	}

	assigned := decimal.Zero
	hasPositive := false
	for _, d := range dists {
		if d.Liters.IsNegative() {
			return apperror.NewValidation("distributed liters must not be negative").
				WithDetail("tank_id", d.TankID).
				WithDetail("liters", d.Liters.String())
		}
		if d.Liters.IsPositive() {
			hasPositive = true
		}

		tank, err := v.registry.GetTank(ctx, d.TankID)
		if err != nil {
			return err
		}
		if d.Liters.GreaterThan(tank.Capacity) {
			return apperror.NewCapacityExceeded(tank.ID, d.Liters.String(), tank.Capacity.String())
		}
		assigned = assigned.Add(d.Liters)
	}
	if !hasPositive {
		return apperror.NewValidation("tank distribution assigns no liters")
	}

	if assigned.Sub(invoiceTotal).Abs().GreaterThan(Tolerance) {
		return apperror.NewQuantityMismatch(invoiceTotal.String(), assigned.String())
	}
	return nil
}
