package service

import (
	"context"
	"errors"
	"time"

	"sellsmart/internal/dto"
	"sellsmart/internal/model"
	"sellsmart/internal/repository"
	"sellsmart/internal/store"

	"github.com/bsm/redislock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const defaultRetryAttempts = 3

// InventoryService is the variant-aware costing core: it resolves variant
// identities, maintains the per-value ledgers, reconciles purchase batches
// under weighted-average costing and projects product-level aggregates.
type InventoryService interface {
	// ResolveVariant ensures the attribute exists in the catalog, then finds
	// or creates the product's slot for it, unioning candidateValues in.
	// Idempotent: repeating a call neither duplicates values nor re-mints the
	// variantRef.
	ResolveVariant(ctx context.Context, productID, attributeName string, candidateValues []string) (*model.AttributeSlot, error)

	// UpsertDetail applies an additive quantity delta and a price overwrite to
	// the (variantRef, value) ledger, creating it when absent.
	UpsertDetail(ctx context.Context, variantRef, value string, price decimal.Decimal, quantityDelta int) (*model.VariantDetail, error)

	// ApplyBatch reconciles a purchase batch. Per product the line set is
	// all-or-nothing; across products the response reports partial success.
	// Replaying a batch number a product's history already carries is a
	// no-op answered as applied, so client retries are safe.
	ApplyBatch(ctx context.Context, req dto.BatchImportRequest) (*dto.BatchImportResponse, error)

	// RecomputeAggregates re-projects totals from the variant ledgers and
	// persists the snapshot. Pure projection: repeated calls with no
	// intervening mutation produce identical numbers.
	RecomputeAggregates(ctx context.Context, productID string) (*model.Product, error)
}

type inventoryService struct {
	products repository.ProductRepository
	details  repository.VariantDetailRepository
	catalog  CatalogService
	attempts int
	locker   *redislock.Client // optional cross-process import lock
}

// NewInventoryService wires the costing core. locker may be nil; when present
// ApplyBatch serializes per-product work across processes, which keeps
// version-conflict retries rare under concurrent imports.
func NewInventoryService(
	products repository.ProductRepository,
	details repository.VariantDetailRepository,
	catalog CatalogService,
	retryAttempts int,
	locker *redislock.Client,
) InventoryService {
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}
	return &inventoryService{
		products: products,
		details:  details,
		catalog:  catalog,
		attempts: retryAttempts,
		locker:   locker,
	}
}

// backoff sleeps briefly before the next optimistic-write attempt, honoring
// context cancellation.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * 20 * time.Millisecond)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *inventoryService) ResolveVariant(ctx context.Context, productID, attributeName string, candidateValues []string) (*model.AttributeSlot, error) {
	if _, err := s.catalog.EnsureAttribute(ctx, attributeName, candidateValues); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		p, version, err := s.products.Find(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &model.ProductNotFoundError{ID: productID}
		}
		if err != nil {
			return nil, &model.StorageError{Op: "product read", Err: err}
		}

		slot := p.Slot(attributeName)
		if slot != nil {
			if slot.MergeValues(candidateValues) == 0 {
				out := cloneSlot(slot)
				return &out, nil
			}
		} else {
			p.Attributes = append(p.Attributes, model.AttributeSlot{
				Name:       attributeName,
				Values:     model.DedupValues(candidateValues),
				VariantRef: uuid.NewString(),
			})
			slot = &p.Attributes[len(p.Attributes)-1]
			// first axis turns the product into a variant product: the
			// product-level price gives way to per-value ledgers
			p.HasVariants = true
			p.Price = nil
		}
		p.UpdatedAt = time.Now()

		_, err = s.products.Update(ctx, p, version)
		if err == nil {
			out := cloneSlot(slot)
			return &out, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, &model.StorageError{Op: "product update", Err: err}
		}
		if attempt >= s.attempts {
			return nil, &model.VersionConflictError{Collection: "products", ID: productID, Attempts: attempt}
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func cloneSlot(s *model.AttributeSlot) model.AttributeSlot {
	return model.AttributeSlot{
		Name:       s.Name,
		Values:     append([]string(nil), s.Values...),
		VariantRef: s.VariantRef,
	}
}

func (s *inventoryService) UpsertDetail(ctx context.Context, variantRef, value string, price decimal.Decimal, quantityDelta int) (*model.VariantDetail, error) {
	if price.IsNegative() {
		return nil, &model.InvalidPriceError{Price: price}
	}

	for attempt := 1; ; attempt++ {
		d, version, err := s.details.Find(ctx, variantRef, value)
		switch {
		case errors.Is(err, store.ErrNotFound):
			qty := quantityDelta
			if qty < 0 {
				qty = 0
			}
			fresh := &model.VariantDetail{
				VariantRef: variantRef,
				Value:      value,
				Price:      price,
				Quantity:   qty,
				UpdatedAt:  time.Now(),
			}
			_, err := s.details.Put(ctx, fresh, store.VersionNew)
			if err == nil {
				return fresh, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return nil, &model.StorageError{Op: "variant detail create", Err: err}
			}
		case err != nil:
			return nil, &model.StorageError{Op: "variant detail read", Err: err}
		default:
			newQty := d.Quantity + quantityDelta
			if newQty < 0 {
				return nil, &model.InvalidQuantityError{
					VariantRef: variantRef,
					Value:      value,
					Current:    d.Quantity,
					Delta:      quantityDelta,
					Reason:     "resulting quantity would be negative",
				}
			}
			d.Quantity = newQty
			d.Price = price // latest price wins; blending happens product-level
			d.UpdatedAt = time.Now()
			_, err := s.details.Put(ctx, d, version)
			if err == nil {
				return d, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return nil, &model.StorageError{Op: "variant detail update", Err: err}
			}
		}

		if attempt >= s.attempts {
			return nil, &model.VersionConflictError{Collection: "variant_details", ID: model.DetailID(variantRef, value), Attempts: attempt}
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *inventoryService) RecomputeAggregates(ctx context.Context, productID string) (*model.Product, error) {
	for attempt := 1; ; attempt++ {
		p, version, err := s.products.Find(ctx, productID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, &model.ProductNotFoundError{ID: productID}
		}
		if err != nil {
			return nil, &model.StorageError{Op: "product read", Err: err}
		}

		if !p.HasVariants {
			// non-variant aggregates ARE the ledger the reconciler maintains;
			// there is nothing to project, and no write is needed
			return p, nil
		}

		if err := s.projectAggregates(ctx, p, nil); err != nil {
			return nil, err
		}
		p.UpdatedAt = time.Now()

		_, err = s.products.Update(ctx, p, version)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, store.ErrVersionConflict) {
			return nil, &model.StorageError{Op: "product update", Err: err}
		}
		if attempt >= s.attempts {
			return nil, &model.VersionConflictError{Collection: "products", ID: productID, Attempts: attempt}
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

// ledgerDelta is one (variantRef, value) ledger's not-yet-persisted
// contribution: an additive quantity and the price that will overwrite the
// stored one.
type ledgerDelta struct {
	quantity int
	price    decimal.Decimal
}

// projectAggregates recomputes p's totals in place from every variant detail
// reachable through its slots, overlaid with pending (keyed by detail id) —
// deltas the batch reconciler commits on the product before they land on the
// ledgers. Always a full recompute, never incremental — incremental
// maintenance drifts when a mutation path is missed.
func (s *inventoryService) projectAggregates(ctx context.Context, p *model.Product, pending map[string]ledgerDelta) error {
	totalQty := 0
	totalCost := decimal.Zero
	folded := make(map[string]bool, len(pending))

	for _, ref := range p.VariantRefs() {
		details, err := s.details.ListByRef(ctx, ref)
		if err != nil {
			return &model.StorageError{Op: "variant detail list", Err: err}
		}
		for i := range details {
			qty := details[i].Quantity
			price := details[i].Price
			key := model.DetailID(details[i].VariantRef, details[i].Value)
			if delta, ok := pending[key]; ok {
				qty += delta.quantity
				price = delta.price
				folded[key] = true
			}
			totalQty += qty
			totalCost = totalCost.Add(price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	// pending deltas whose ledger does not exist yet
	for key, delta := range pending {
		if folded[key] {
			continue
		}
		totalQty += delta.quantity
		totalCost = totalCost.Add(delta.price.Mul(decimal.NewFromInt(int64(delta.quantity))))
	}

	p.TotalQuantity = totalQty
	if totalQty > 0 {
		p.TotalPrice = totalCost.Div(decimal.NewFromInt(int64(totalQty)))
	} else {
		p.TotalPrice = decimal.Zero
	}
	p.Price = nil
	p.RefreshStatus()
	return nil
}
