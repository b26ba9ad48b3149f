package service

import (
	"context"
	"errors"
	"time"

	"sellsmart/internal/dto"
	"sellsmart/internal/model"
	"sellsmart/internal/repository"
	"sellsmart/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductService is the thin admin surface over the costing core: product
// creation, reads, the manual variant-declaration path and the audit trail.
type ProductService interface {
	Create(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error)
	Get(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context) ([]model.Product, error)
	BatchHistory(ctx context.Context, id string) ([]model.BatchEntry, error)
	DeclareVariant(ctx context.Context, productID string, req dto.DeclareVariantRequest) (*model.AttributeSlot, error)
}

type productService struct {
	products repository.ProductRepository
	inv      InventoryService
}

func NewProductService(products repository.ProductRepository, inv InventoryService) ProductService {
	return &productService{products: products, inv: inv}
}

func (s *productService) Create(ctx context.Context, req dto.CreateProductRequest) (*model.Product, error) {
	if req.Price != nil && req.Price.IsNegative() {
		return nil, &model.InvalidPriceError{Price: *req.Price}
	}

	now := time.Now()
	p := &model.Product{
		ID:         uuid.NewString(),
		Name:       req.Name,
		TotalPrice: decimal.Zero,
		Status:     model.StatusUnavailable,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if len(req.Variants) == 0 {
		p.Price = req.Price
	}

	if _, err := s.products.Create(ctx, p); err != nil {
		return nil, &model.StorageError{Op: "product create", Err: err}
	}

	for _, v := range req.Variants {
		if _, err := s.DeclareVariant(ctx, p.ID, dto.DeclareVariantRequest{VariantDeclaration: v}); err != nil {
			return nil, err
		}
	}
	if len(req.Variants) > 0 {
		// re-read: variant declaration rewrote the document
		return s.Get(ctx, p.ID)
	}
	return p, nil
}

func (s *productService) Get(ctx context.Context, id string) (*model.Product, error) {
	p, _, err := s.products.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &model.ProductNotFoundError{ID: id}
	}
	if err != nil {
		return nil, &model.StorageError{Op: "product read", Err: err}
	}
	return p, nil
}

func (s *productService) List(ctx context.Context) ([]model.Product, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, &model.StorageError{Op: "product list", Err: err}
	}
	return products, nil
}

func (s *productService) BatchHistory(ctx context.Context, id string) ([]model.BatchEntry, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.BatchHistory, nil
}

// DeclareVariant grows a variant axis and optionally seeds the value ledgers
// with a starting price/quantity, then re-projects the product's aggregates.
func (s *productService) DeclareVariant(ctx context.Context, productID string, req dto.DeclareVariantRequest) (*model.AttributeSlot, error) {
	slot, err := s.inv.ResolveVariant(ctx, productID, req.AttributeName, req.Values)
	if err != nil {
		return nil, err
	}

	if req.Price != nil || req.Quantity > 0 {
		price := decimal.Zero
		if req.Price != nil {
			price = *req.Price
		}
		for _, value := range model.DedupValues(req.Values) {
			if _, err := s.inv.UpsertDetail(ctx, slot.VariantRef, value, price, req.Quantity); err != nil {
				return nil, err
			}
		}
		if _, err := s.inv.RecomputeAggregates(ctx, productID); err != nil {
			return nil, err
		}
	}
	return slot, nil
}
