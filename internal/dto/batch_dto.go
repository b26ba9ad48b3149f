package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchInfo identifies one purchase-import event. Carried unchanged onto every
// history entry the import appends.
type BatchInfo struct {
	BatchNumber string    `json:"batchNumber" validate:"required"`
	ImportDate  time.Time `json:"importDate" validate:"required"`
	Note        string    `json:"note"`
}

// VariantSelector targets one declared (attribute, value) pair on a product.
// Matching is exact — no case normalization, no partial matches.
type VariantSelector struct {
	AttributeName string `json:"attributeName" validate:"required"`
	Value         string `json:"value" validate:"required"`
}

// BatchLine is one product line of an import request. Quantity must be a
// positive integer and UnitCost non-negative; the reconciler checks both and
// reports violations per line, so no validator tags constrain them here —
// a zero quantity belongs in the response's errors array, not a 422.
type BatchLine struct {
	ProductID       string           `json:"productId" validate:"required"`
	UnitCost        decimal.Decimal  `json:"unitCost"`
	Quantity        int              `json:"quantity"`
	VariantSelector *VariantSelector `json:"variantSelector,omitempty"`
}

// BatchImportRequest is the caller-supplied import payload.
type BatchImportRequest struct {
	BatchInfo BatchInfo   `json:"batchInfo" validate:"required"`
	Products  []BatchLine `json:"products" validate:"required,min=1,dive"`
}

// BatchResult reports one product whose whole line set was applied.
type BatchResult struct {
	ProductID string `json:"productId"`
	Status    string `json:"status"` // always "applied"
}

// BatchError reports one product whose line set was rejected. Line is the
// 1-based position (in the request's products array) of the offending line,
// when a single line can be blamed.
type BatchError struct {
	ProductID string `json:"productId,omitempty"`
	Line      int    `json:"line,omitempty"`
	Message   string `json:"message"`
}

// BatchImportResponse is the partial-success report: products succeed or fail
// independently of their siblings in the same request.
type BatchImportResponse struct {
	Results []BatchResult `json:"results"`
	Errors  []BatchError  `json:"errors"`
}
