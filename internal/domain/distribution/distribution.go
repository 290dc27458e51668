// Package distribution validates proposed fuel allocations across storage tanks.
package distribution

import (
	"context"

	"github.com/shopspring/decimal"
)

// TankDistribution is one proposed allocation: a quantity of liters assigned
// to a named tank.
type TankDistribution struct {
	TankID string
	Liters decimal.Decimal
}

// Tank is a storage tank as known to the registry.
type Tank struct {
	ID            string
	WarehouseCode string
	Capacity      decimal.Decimal
}

// TankRegistry resolves tanks referenced by a distribution.
type TankRegistry interface {
	// GetTank returns the tank or a not-found error.
	GetTank(ctx context.Context, tankID string) (*Tank, error)
}

// Tolerance is the maximum absolute difference allowed between the sum of
// distributed liters and the invoice total. Measurement noise below a
// thousandth of a liter is accepted; anything above is a data error.
var Tolerance = decimal.New(1, -3)
