package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/internal/infrastructure/http/v1/dto"
)

// TankDirectory lists registered tanks per warehouse.
// Satisfied by *tank_repo.Repo.
type TankDirectory interface {
	ListByWarehouse(ctx context.Context, warehouseCode string) ([]*distribution.Tank, error)
}

// TankHandler serves the tank registry behind distribution validation.
type TankHandler struct {
	*BaseHandler
	directory TankDirectory
}

func NewTankHandler(base *BaseHandler, directory TankDirectory) *TankHandler {
	return &TankHandler{BaseHandler: base, directory: directory}
}

// List returns the active tanks of one warehouse.
// GET /api/v1/tanks?warehouse=BOD_SAN
func (h *TankHandler) List(c *gin.Context) {
	warehouseCode := c.Query("warehouse")
	if warehouseCode == "" {
		h.Error(c, apperror.NewValidation("warehouse is required"))
		return
	}

	tanks, err := h.directory.ListByWarehouse(c.Request.Context(), warehouseCode)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, gin.H{"tanks": dto.FromTanks(tanks)})
}
