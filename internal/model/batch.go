package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchEntry is one line of a purchase batch as it was applied to a product.
// Entries are append-only: once written to a product's BatchHistory they are
// never mutated or removed. Quantity and UnitCost record the line's own
// contribution, not the running aggregate — this is the audit trail the
// weighted average can be reconstructed from.
type BatchEntry struct {
	BatchNumber string          `json:"batch_number"`
	BatchDate   time.Time       `json:"batch_date"`
	Quantity    int             `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Note        string          `json:"note,omitempty"`
}
