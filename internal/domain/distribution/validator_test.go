package distribution

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/types"
)

// fakeRegistry serves tanks from a map and counts lookups.
type fakeRegistry struct {
	tanks   map[string]*Tank
	lookups int
}

func (r *fakeRegistry) GetTank(_ context.Context, tankID string) (*Tank, error) {
	r.lookups++
	if tank, ok := r.tanks[tankID]; ok {
		return tank, nil
	}
	return nil, apperror.NewNotFound("tank", tankID)
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{tanks: map[string]*Tank{
		"TK-SAN-01": {ID: "TK-SAN-01", WarehouseCode: "BOD_SAN", Capacity: types.MustMoney("5000")},
		"TK-LAM-01": {ID: "TK-LAM-01", WarehouseCode: "BOD_LAM", Capacity: types.MustMoney("12000")},
	}}
}

func dist(tankID, liters string) TankDistribution {
	return TankDistribution{TankID: tankID, Liters: types.MustMoney(liters)}
}

func TestValidator_AcceptsExactMatch(t *testing.T) {
	validator := NewValidator(newFakeRegistry())

	err := validator.Validate(context.Background(),
		[]TankDistribution{dist("TK-SAN-01", "3000"), dist("TK-LAM-01", "7000")},
		types.MustMoney("10000"))
	assert.NoError(t, err)
}

func TestValidator_ToleranceBoundary(t *testing.T) {
	validator := NewValidator(newFakeRegistry())
	ctx := context.Background()

	// Within tolerance: |1000.0005 - 1000| <= 0.001.
	err := validator.Validate(ctx,
		[]TankDistribution{dist("TK-LAM-01", "1000.0005")},
		types.MustMoney("1000"))
	assert.NoError(t, err)

	// At the boundary exactly: still accepted.
	err = validator.Validate(ctx,
		[]TankDistribution{dist("TK-LAM-01", "1000.001")},
		types.MustMoney("1000"))
	assert.NoError(t, err)

	// Beyond tolerance: rejected.
	err = validator.Validate(ctx,
		[]TankDistribution{dist("TK-LAM-01", "1000.002")},
		types.MustMoney("1000"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeQuantityMismatch, appErr.Code)
	assert.Equal(t, "1000", appErr.Details["expected"])
	assert.Equal(t, "1000.002", appErr.Details["assigned"])
}

func TestValidator_UnknownTank(t *testing.T) {
	registry := newFakeRegistry()
	validator := NewValidator(registry)

	err := validator.Validate(context.Background(),
		[]TankDistribution{dist("TK-SAN-01", "1000"), dist("TK-GHOST", "500")},
		types.MustMoney("1500"))
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeNotFound, appErr.Code)
	assert.Equal(t, "TK-GHOST", appErr.Details["id"])
}

func TestValidator_CapacityExceeded(t *testing.T) {
	validator := NewValidator(newFakeRegistry())

	err := validator.Validate(context.Background(),
		[]TankDistribution{dist("TK-SAN-01", "5000.5")},
		types.MustMoney("5000.5"))
	require.Error(t, err)

	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeCapacityExceeded, appErr.Code)
	assert.Equal(t, "TK-SAN-01", appErr.Details["tank_id"])
	assert.Equal(t, "5000", appErr.Details["capacity"])
}

func TestValidator_CapacityAtLimitAccepted(t *testing.T) {
	validator := NewValidator(newFakeRegistry())

	err := validator.Validate(context.Background(),
		[]TankDistribution{dist("TK-SAN-01", "5000")},
		types.MustMoney("5000"))
	assert.NoError(t, err)
}

func TestValidator_DeterministicFirstFailure(t *testing.T) {
	// Two violations in one batch: the earlier entry wins every time.
	registry := newFakeRegistry()
	validator := NewValidator(registry)
	batch := []TankDistribution{
		dist("TK-SAN-01", "9999"), // over capacity
		dist("TK-GHOST", "1"),     // unknown tank
	}

	for i := 0; i < 3; i++ {
		err := validator.Validate(context.Background(), batch, types.MustMoney("10000"))
		require.Error(t, err)
		appErr, ok := apperror.AsAppError(err)
		require.True(t, ok)
		assert.Equal(t, apperror.CodeCapacityExceeded, appErr.Code)
	}
}

func TestValidator_EmptyAndZeroBatches(t *testing.T) {
	validator := NewValidator(newFakeRegistry())
	ctx := context.Background()

	err := validator.Validate(ctx, nil, types.MustMoney("100"))
	require.Error(t, err)

	err = validator.Validate(ctx,
		[]TankDistribution{dist("TK-SAN-01", "0"), dist("TK-LAM-01", "0")},
		decimal.Zero)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestValidator_NegativeLitersRejected(t *testing.T) {
	validator := NewValidator(newFakeRegistry())

	err := validator.Validate(context.Background(),
		[]TankDistribution{dist("TK-SAN-01", "-10")},
		types.MustMoney("-10"))
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}
