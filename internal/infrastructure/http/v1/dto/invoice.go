package dto

import (
	"fmt"

	"fuelbridge/internal/core/apperror"
	"fuelbridge/internal/core/types"
	"fuelbridge/internal/domain/distribution"
	"fuelbridge/internal/domain/invoice"
)

// TankDistributionRequest is one proposed tank allocation.
type TankDistributionRequest struct {
	TankID string `json:"tank_id" binding:"required"`
	Liters string `json:"liters" binding:"required"`
}

// ProductLineRequest is one fuel product on the invoice.
type ProductLineRequest struct {
	ItemCode    string `json:"item_code" binding:"required"`
	Description string `json:"description"`
	Liters      string `json:"liters" binding:"required"`
	UnitPrice   string `json:"unit_price"`
}

// IngestInvoiceRequest is the OCR-extracted invoice plus distribution.
// Monetary amounts travel as strings to preserve precision.
type IngestInvoiceRequest struct {
	EmitterRUT   string `json:"emitter_rut" binding:"required"`
	EmitterName  string `json:"emitter_name"`
	ReceiverRUT  string `json:"receiver_rut"`
	ReceiverName string `json:"receiver_name"`
	Folio        string `json:"folio" binding:"required"`
	IssueDate    string `json:"issue_date"`

	BaseAfecta string `json:"base_afecta" binding:"required"`
	FEEP       string `json:"feep"`
	IEV        string `json:"iev"`
	IEF        string `json:"ief"`
	IVA        string `json:"iva"`
	Total      string `json:"total" binding:"required"`

	RequestNumber *int64 `json:"request_number"`

	Lines         []ProductLineRequest      `json:"lines" binding:"required,dive"`
	Distributions []TankDistributionRequest `json:"distributions" binding:"required,dive"`
}

// ToDomain converts the request into the domain model.
func (r IngestInvoiceRequest) ToDomain() (*invoice.Invoice, error) {
	inv := &invoice.Invoice{
		EmitterRUT:    r.EmitterRUT,
		EmitterName:   r.EmitterName,
		ReceiverRUT:   r.ReceiverRUT,
		ReceiverName:  r.ReceiverName,
		Folio:         r.Folio,
		IssueDate:     r.IssueDate,
		RequestNumber: r.RequestNumber,
	}

	var err error
	if inv.BaseAfecta, err = parseAmount("base_afecta", r.BaseAfecta); err != nil {
		return nil, err
	}
	if inv.FEEP, err = parseOptionalAmount("feep", r.FEEP); err != nil {
		return nil, err
	}
	if inv.IEV, err = parseOptionalAmount("iev", r.IEV); err != nil {
		return nil, err
	}
	if inv.IEF, err = parseOptionalAmount("ief", r.IEF); err != nil {
		return nil, err
	}
	if inv.IVA, err = parseOptionalAmount("iva", r.IVA); err != nil {
		return nil, err
	}
	if inv.Total, err = parseAmount("total", r.Total); err != nil {
		return nil, err
	}

	for _, line := range r.Lines {
		liters, err := parseAmount("liters", line.Liters)
		if err != nil {
			return nil, err
		}
		unitPrice, err := parseOptionalAmount("unit_price", line.UnitPrice)
		if err != nil {
			return nil, err
		}
		inv.Lines = append(inv.Lines, invoice.ProductLine{
			ItemCode:    line.ItemCode,
			Description: line.Description,
			Liters:      liters,
			UnitPrice:   unitPrice,
		})
	}

	for _, dist := range r.Distributions {
		liters, err := parseAmount("liters", dist.Liters)
		if err != nil {
			return nil, err
		}
		inv.Distributions = append(inv.Distributions, distribution.TankDistribution{
			TankID: dist.TankID,
			Liters: liters,
		})
	}
	return inv, nil
}

func parseAmount(field, value string) (types.Money, error) {
	d, err := types.NewMoneyFromString(value)
	if err != nil {
		return types.Zero(), apperror.NewValidation(fmt.Sprintf("invalid amount in %s", field)).
			WithDetail("field", field).
			WithDetail("value", value)
	}
	return d, nil
}

func parseOptionalAmount(field, value string) (types.Money, error) {
	if value == "" {
		return types.Zero(), nil
	}
	return parseAmount(field, value)
}

// InvoiceResponse is the ledger view of an invoice.
type InvoiceResponse struct {
	ID           string `json:"id"`
	EmitterRUT   string `json:"emitter_rut"`
	EmitterName  string `json:"emitter_name"`
	ReceiverRUT  string `json:"receiver_rut,omitempty"`
	ReceiverName string `json:"receiver_name,omitempty"`
	Folio        string `json:"folio"`
	IssueDate    string `json:"issue_date,omitempty"`

	BaseAfecta  string `json:"base_afecta"`
	FEEP        string `json:"feep"`
	IEV         string `json:"iev"`
	IEF         string `json:"ief"`
	IVA         string `json:"iva"`
	Total       string `json:"total"`
	TotalLiters string `json:"total_liters"`

	RequestNumber *int64 `json:"request_number"`
	OrderNumber   *int64 `json:"order_number"`
	ReceiptNumber *int64 `json:"receipt_number"`

	Lines         []ProductLineResponse      `json:"lines,omitempty"`
	Distributions []TankDistributionResponse `json:"distributions,omitempty"`
}

// ProductLineResponse is the ledger view of a product line.
type ProductLineResponse struct {
	ItemCode    string `json:"item_code"`
	Description string `json:"description,omitempty"`
	Liters      string `json:"liters"`
	UnitPrice   string `json:"unit_price"`
	UnitBase    string `json:"unit_base"`
	UnitIEV     string `json:"unit_iev"`
	UnitIEF     string `json:"unit_ief"`
	UnitTotal   string `json:"unit_total"`
	Subtotal    string `json:"subtotal"`
}

// TankDistributionResponse is the ledger view of a tank allocation.
type TankDistributionResponse struct {
	TankID string `json:"tank_id"`
	Liters string `json:"liters"`
}

// FromDomain converts a domain invoice into its response shape.
func FromDomain(inv *invoice.Invoice) InvoiceResponse {
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		EmitterRUT:    inv.EmitterRUT,
		EmitterName:   inv.EmitterName,
		ReceiverRUT:   inv.ReceiverRUT,
		ReceiverName:  inv.ReceiverName,
		Folio:         inv.Folio,
		IssueDate:     inv.IssueDate,
		BaseAfecta:    inv.BaseAfecta.String(),
		FEEP:          inv.FEEP.String(),
		IEV:           inv.IEV.String(),
		IEF:           inv.IEF.String(),
		IVA:           inv.IVA.String(),
		Total:         inv.Total.String(),
		TotalLiters:   inv.TotalLiters.String(),
		RequestNumber: inv.RequestNumber,
		OrderNumber:   inv.OrderNumber,
		ReceiptNumber: inv.ReceiptNumber,
	}
	for _, line := range inv.Lines {
		resp.Lines = append(resp.Lines, ProductLineResponse{
			ItemCode:    line.ItemCode,
			Description: line.Description,
			Liters:      line.Liters.String(),
			UnitPrice:   line.UnitPrice.String(),
			UnitBase:    line.UnitBase.String(),
			UnitIEV:     line.UnitIEV.String(),
			UnitIEF:     line.UnitIEF.String(),
			UnitTotal:   line.UnitTotal.String(),
			Subtotal:    line.Subtotal.String(),
		})
	}
	for _, dist := range inv.Distributions {
		resp.Distributions = append(resp.Distributions, TankDistributionResponse{
			TankID: dist.TankID,
			Liters: dist.Liters.String(),
		})
	}
	return resp
}
