package dto

import "fuelbridge/internal/domain/distribution"

// TankResponse is one registered tank. Capacity travels as a string to
// preserve precision.
type TankResponse struct {
	ID            string `json:"id"`
	WarehouseCode string `json:"warehouse_code"`
	Capacity      string `json:"capacity"`
}

// FromTanks converts registry tanks into their response shape.
func FromTanks(tanks []*distribution.Tank) []TankResponse {
	out := make([]TankResponse, 0, len(tanks))
	for _, tank := range tanks {
		out = append(out, TankResponse{
			ID:            tank.ID,
			WarehouseCode: tank.WarehouseCode,
			Capacity:      tank.Capacity.String(),
		})
	}
	return out
}
