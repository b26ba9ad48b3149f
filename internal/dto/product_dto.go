package dto

import (
	"github.com/shopspring/decimal"
)

// VariantDeclaration declares (or grows) one variant axis on a product and
// optionally seeds the per-value ledgers.
type VariantDeclaration struct {
	AttributeName string   `json:"attributeName" validate:"required"`
	Values        []string `json:"values" validate:"required,min=1,dive,required"`
	// Optional seed applied to every declared value's ledger
	Price    *decimal.Decimal `json:"price,omitempty"`
	Quantity int              `json:"quantity,omitempty"`
}

// CreateProductRequest creates a simple product, or a variant product when
// Variants is non-empty (Price is then ignored — variant products have no
// product-level price).
type CreateProductRequest struct {
	Name     string               `json:"name" validate:"required"`
	Price    *decimal.Decimal     `json:"price,omitempty"`
	Variants []VariantDeclaration `json:"variants,omitempty" validate:"omitempty,dive"`
}

// DeclareVariantRequest grows a variant axis on an existing product.
type DeclareVariantRequest struct {
	VariantDeclaration
}

// VariantSlotResponse echoes a resolved axis back to the caller.
type VariantSlotResponse struct {
	AttributeName string   `json:"attributeName"`
	Values        []string `json:"values"`
	VariantRef    string   `json:"variantRef"`
}
