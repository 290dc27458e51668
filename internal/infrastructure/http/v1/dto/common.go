// Package dto defines request and response shapes for the HTTP API.
package dto

// IDResponse is returned on resource creation.
type IDResponse struct {
	ID string `json:"id"`
}

// SuccessResponse is a generic success message.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// DocumentResponse identifies an ERP document created by an operation.
type DocumentResponse struct {
	DocEntry int `json:"doc_entry"`
	DocNum   int `json:"doc_num,omitempty"`
}
