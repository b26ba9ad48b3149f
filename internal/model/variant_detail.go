package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VariantDetail is the price/quantity ledger for one concrete attribute value
// under one product's variant axis. It is the unit the batch reconciler
// mutates: quantity is additive, price is overwritten (latest wins — blending
// happens at the product level, not here).
//
// Invariants: Quantity >= 0, Price >= 0.
type VariantDetail struct {
	VariantRef string          `json:"variant_ref"`
	Value      string          `json:"value"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// DetailID builds the document id for a (variantRef, value) pair. Detail ids
// share the ref as a prefix so a single prefix scan fetches every value ledger
// of one axis.
func DetailID(variantRef, value string) string {
	return variantRef + ":" + value
}
