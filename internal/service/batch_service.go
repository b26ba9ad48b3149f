package service

import (
	"context"
	"errors"
	"time"

	"sellsmart/internal/dto"
	"sellsmart/internal/model"
	"sellsmart/internal/store"

	"github.com/bsm/redislock"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// indexedLine pairs a batch line with its 1-based position in the request, so
// rejections can point at the offending line.
type indexedLine struct {
	pos  int
	line dto.BatchLine
}

type lineError struct {
	pos int
	err error
}

func (s *inventoryService) ApplyBatch(ctx context.Context, req dto.BatchImportRequest) (*dto.BatchImportResponse, error) {
	resp := &dto.BatchImportResponse{
		Results: []dto.BatchResult{},
		Errors:  []dto.BatchError{},
	}

	// Lines are grouped per product, caller order preserved both across
	// products and within each product's group. Order matters: the weighted
	// average is folded against the stored state at the moment each line
	// lands.
	order, groups := groupLines(req.Products)

	for _, productID := range order {
		le := s.applyProductLines(ctx, productID, req.BatchInfo, groups[productID])
		if le == nil {
			resp.Results = append(resp.Results, dto.BatchResult{ProductID: productID, Status: "applied"})
			continue
		}
		log.Warn().
			Str("batch", req.BatchInfo.BatchNumber).
			Str("product_id", productID).
			Int("line", le.pos).
			Err(le.err).
			Msg("batch lines rejected for product")
		resp.Errors = append(resp.Errors, dto.BatchError{
			ProductID: productID,
			Line:      le.pos,
			Message:   le.err.Error(),
		})
	}

	log.Info().
		Str("batch", req.BatchInfo.BatchNumber).
		Int("applied", len(resp.Results)).
		Int("rejected", len(resp.Errors)).
		Msg("batch import finished")
	return resp, nil
}

// applyProductLines applies one product's full line set, or nothing at all.
//
// Three phases, per CAS attempt 1 and 2 run together:
//  1. validate every line against the product's current state — any failure
//     rejects the set before a single write;
//  2. the product document absorbs the non-variant folds, the history entries
//     and the aggregates (projected with the variant deltas overlaid) under
//     one CAS loop. The history entry doubles as the commit marker: a replay
//     of an already-recorded batch number is answered as applied without
//     re-folding anything;
//  3. only after the product commit do variant lines land on their value
//     ledgers. A CAS exhaustion in phase 2 therefore leaves the ledgers
//     untouched — the batch fails with nothing applied, and retrying it is
//     safe.
func (s *inventoryService) applyProductLines(ctx context.Context, productID string, info dto.BatchInfo, lines []indexedLine) *lineError {
	if s.locker != nil {
		lock, err := s.locker.Obtain(ctx, "sellsmart:import:"+productID, 10*time.Second, &redislock.Options{
			RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 10),
		})
		if err == nil {
			defer func() { _ = lock.Release(context.WithoutCancel(ctx)) }()
		}
		// lock acquisition failure is non-fatal: the version checks below
		// still guarantee no lost update, just with more retries
	}

	var p *model.Product
	for attempt := 1; ; attempt++ {
		var version int64
		var err error
		p, version, err = s.products.Find(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return &lineError{lines[0].pos, &model.ProductNotFoundError{ID: productID}}
		}
		if err != nil {
			return &lineError{lines[0].pos, &model.StorageError{Op: "product read", Err: err}}
		}

		if alreadyRecorded(p, info.BatchNumber) {
			// replay of a batch whose commit already landed
			return nil
		}
		if le := validateLines(p, lines); le != nil {
			return le
		}

		pending := pendingLedgerDeltas(p, lines)
		for _, il := range lines {
			l := il.line
			if !p.HasVariants {
				foldWeightedAverage(p, l.Quantity, l.UnitCost)
			}
			// the entry records the line's own contribution, never the
			// running aggregate
			p.BatchHistory = append(p.BatchHistory, model.BatchEntry{
				BatchNumber: info.BatchNumber,
				BatchDate:   info.ImportDate,
				Quantity:    l.Quantity,
				UnitCost:    l.UnitCost,
				Note:        info.Note,
			})
		}

		if p.HasVariants {
			if err := s.projectAggregates(ctx, p, pending); err != nil {
				return &lineError{lines[0].pos, err}
			}
		} else {
			p.RefreshStatus()
		}
		p.UpdatedAt = time.Now()

		_, err = s.products.Update(ctx, p, version)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return &lineError{lines[0].pos, &model.StorageError{Op: "product update", Err: err}}
		}
		if attempt >= s.attempts {
			return &lineError{lines[0].pos, &model.VersionConflictError{Collection: "products", ID: productID, Attempts: attempt}}
		}
		if err := backoff(ctx, attempt); err != nil {
			return &lineError{lines[0].pos, err}
		}
	}

	// product committed — land the variant deltas on their ledgers
	for _, il := range lines {
		sel := il.line.VariantSelector
		if sel == nil {
			continue
		}
		slot := p.Slot(sel.AttributeName) // non-nil, validated above
		if _, err := s.UpsertDetail(ctx, slot.VariantRef, sel.Value, il.line.UnitCost, il.line.Quantity); err != nil {
			return &lineError{il.pos, err}
		}
	}
	return nil
}

// alreadyRecorded reports whether the product's audit trail carries the batch.
func alreadyRecorded(p *model.Product, batchNumber string) bool {
	for i := range p.BatchHistory {
		if p.BatchHistory[i].BatchNumber == batchNumber {
			return true
		}
	}
	return false
}

// pendingLedgerDeltas accumulates the variant lines' contributions per
// (variantRef, value) ledger, in line order so the last price wins — the same
// outcome the per-line upserts produce once the product commit lands.
func pendingLedgerDeltas(p *model.Product, lines []indexedLine) map[string]ledgerDelta {
	var pending map[string]ledgerDelta
	for _, il := range lines {
		sel := il.line.VariantSelector
		if sel == nil {
			continue
		}
		if pending == nil {
			pending = make(map[string]ledgerDelta)
		}
		key := model.DetailID(p.Slot(sel.AttributeName).VariantRef, sel.Value)
		d := pending[key]
		d.quantity += il.line.Quantity
		d.price = il.line.UnitCost
		pending[key] = d
	}
	return pending
}

// validateLines checks one product's whole line set before any mutation.
func validateLines(p *model.Product, lines []indexedLine) *lineError {
	for _, il := range lines {
		l := il.line
		if l.Quantity <= 0 {
			return &lineError{il.pos, &model.InvalidQuantityError{
				Delta:  l.Quantity,
				Reason: "batch line quantity must be a positive integer",
			}}
		}
		if l.UnitCost.IsNegative() {
			return &lineError{il.pos, &model.InvalidPriceError{Price: l.UnitCost}}
		}

		sel := l.VariantSelector
		if p.HasVariants {
			if sel == nil {
				return &lineError{il.pos, &model.VariantMismatchError{
					ProductID: p.ID,
					Reason:    "product has variants; a variant selector is required",
				}}
			}
			slot := p.Slot(sel.AttributeName)
			if slot == nil {
				return &lineError{il.pos, &model.VariantMismatchError{
					ProductID:     p.ID,
					AttributeName: sel.AttributeName,
					Value:         sel.Value,
					Reason:        "attribute is not declared on the product",
				}}
			}
			if !slot.HasValue(sel.Value) {
				return &lineError{il.pos, &model.VariantMismatchError{
					ProductID:     p.ID,
					AttributeName: sel.AttributeName,
					Value:         sel.Value,
					Reason:        "value is not declared for the attribute",
				}}
			}
		} else if sel != nil {
			return &lineError{il.pos, &model.VariantMismatchError{
				ProductID:     p.ID,
				AttributeName: sel.AttributeName,
				Value:         sel.Value,
				Reason:        "product has no variants",
			}}
		}
	}
	return nil
}

// foldWeightedAverage merges one purchase line into a non-variant product's
// own ledger:
//
//	newQty = oldQty + qty
//	newAvg = newQty > 0 ? (oldQty*oldAvg + qty*cost) / newQty : cost
//
// The zero guard falls back to the line's unit cost instead of dividing by
// zero.
func foldWeightedAverage(p *model.Product, quantity int, unitCost decimal.Decimal) {
	oldQty := p.TotalQuantity
	newQty := oldQty + quantity
	if newQty > 0 {
		oldTotal := p.TotalPrice.Mul(decimal.NewFromInt(int64(oldQty)))
		lineTotal := unitCost.Mul(decimal.NewFromInt(int64(quantity)))
		p.TotalPrice = oldTotal.Add(lineTotal).Div(decimal.NewFromInt(int64(newQty)))
	} else {
		p.TotalPrice = unitCost
	}
	p.TotalQuantity = newQty
}

func groupLines(lines []dto.BatchLine) ([]string, map[string][]indexedLine) {
	order := make([]string, 0, len(lines))
	groups := make(map[string][]indexedLine, len(lines))
	for i, l := range lines {
		if _, ok := groups[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		groups[l.ProductID] = append(groups[l.ProductID], indexedLine{pos: i + 1, line: l})
	}
	return order, groups
}
