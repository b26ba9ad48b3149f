package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus reflects sellable availability derived from stock.
type ProductStatus string

const (
	StatusAvailable   ProductStatus = "available"
	StatusUnavailable ProductStatus = "unavailable"
)

// AttributeSlot binds one catalog attribute to one product. The slot carries
// the values this product declares for the axis and the VariantRef under which
// the per-value price/quantity ledgers (VariantDetail) are keyed. VariantRef
// is minted when the slot is first added and never changes afterwards.
type AttributeSlot struct {
	Name       string   `json:"name"`
	Values     []string `json:"values"`
	VariantRef string   `json:"variant_ref"`
}

// MergeValues unions incoming into the slot's declared values, first
// appearance order preserved, and reports how many were added.
func (s *AttributeSlot) MergeValues(incoming []string) int {
	seen := make(map[string]bool, len(s.Values))
	for _, v := range s.Values {
		seen[v] = true
	}
	added := 0
	for _, v := range incoming {
		if seen[v] {
			continue
		}
		seen[v] = true
		s.Values = append(s.Values, v)
		added++
	}
	return added
}

// HasValue reports whether value is declared on the slot. Exact match — no
// case normalization, no trimming.
func (s *AttributeSlot) HasValue(value string) bool {
	for _, v := range s.Values {
		if v == value {
			return true
		}
	}
	return false
}

// Product is the stored product document.
//
// When HasVariants is true, Price is nil and TotalQuantity/TotalPrice are a
// projection over the product's VariantDetail ledgers. When false, Price,
// TotalQuantity and TotalPrice are the product's own ledger, maintained
// incrementally by the batch reconciler.
type Product struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	HasVariants   bool             `json:"has_variants"`
	Attributes    []AttributeSlot  `json:"attributes,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	TotalQuantity int              `json:"total_quantity"`
	TotalPrice    decimal.Decimal  `json:"total_price"`
	Status        ProductStatus    `json:"status"`
	BatchHistory  []BatchEntry     `json:"batch_history,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// Slot returns the attribute slot with the given name, or nil. Matching is
// case-sensitive exact string equality.
func (p *Product) Slot(name string) *AttributeSlot {
	for i := range p.Attributes {
		if p.Attributes[i].Name == name {
			return &p.Attributes[i]
		}
	}
	return nil
}

// VariantRefs lists the refs of every attribute slot, in declaration order.
func (p *Product) VariantRefs() []string {
	refs := make([]string, 0, len(p.Attributes))
	for i := range p.Attributes {
		refs = append(refs, p.Attributes[i].VariantRef)
	}
	return refs
}

// RefreshStatus recomputes Status from TotalQuantity.
func (p *Product) RefreshStatus() {
	if p.TotalQuantity > 0 {
		p.Status = StatusAvailable
	} else {
		p.Status = StatusUnavailable
	}
}
