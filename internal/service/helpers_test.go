package service

import (
	"context"
	"testing"

	"sellsmart/internal/model"
	"sellsmart/internal/repository"
	"sellsmart/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// testEnv wires the full service stack over the in-memory store.
type testEnv struct {
	store    store.Store
	attrs    repository.AttributeRepository
	products repository.ProductRepository
	details  repository.VariantDetailRepository
	catalog  CatalogService
	inv      InventoryService
	prodSvc  ProductService
}

func newTestEnv(t *testing.T, retryAttempts int) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, store.NewMemory(), retryAttempts)
}

func newTestEnvWithStore(t *testing.T, st store.Store, retryAttempts int) *testEnv {
	t.Helper()

	attrs := repository.NewAttributeRepository(st)
	products := repository.NewProductRepository(st)
	details := repository.NewVariantDetailRepository(st)

	catalog := NewCatalogService(attrs, retryAttempts)
	inv := NewInventoryService(products, details, catalog, retryAttempts, nil)
	return &testEnv{
		store:    st,
		attrs:    attrs,
		products: products,
		details:  details,
		catalog:  catalog,
		inv:      inv,
		prodSvc:  NewProductService(products, inv),
	}
}

// seedProduct stores a bare product and returns it.
func (e *testEnv) seedProduct(t *testing.T, id, name string, price *decimal.Decimal) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:         id,
		Name:       name,
		Price:      price,
		TotalPrice: decimal.Zero,
		Status:     model.StatusUnavailable,
	}
	_, err := e.products.Create(context.Background(), p)
	require.NoError(t, err)
	return p
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}
