package repository

import (
	"context"
	"encoding/json"

	"sellsmart/internal/model"
	"sellsmart/internal/store"
)

const colProducts = "products"

// ProductRepository is the data access contract for product documents.
// Every read hands back the version token the caller must present on the
// matching update — services run CAS loops on top of this.
type ProductRepository interface {
	Find(ctx context.Context, id string) (*model.Product, int64, error)
	Create(ctx context.Context, p *model.Product) (int64, error)
	Update(ctx context.Context, p *model.Product, expectedVersion int64) (int64, error)
	List(ctx context.Context) ([]model.Product, error)
}

type productRepo struct{ st store.Store }

func NewProductRepository(st store.Store) ProductRepository {
	return &productRepo{st: st}
}

func (r *productRepo) Find(ctx context.Context, id string) (*model.Product, int64, error) {
	var p model.Product
	version, err := r.st.Get(ctx, colProducts, id, &p)
	if err != nil {
		return nil, 0, err
	}
	return &p, version, nil
}

func (r *productRepo) Create(ctx context.Context, p *model.Product) (int64, error) {
	return r.st.Put(ctx, colProducts, p.ID, p, store.VersionNew)
}

func (r *productRepo) Update(ctx context.Context, p *model.Product, expectedVersion int64) (int64, error) {
	return r.st.Put(ctx, colProducts, p.ID, p, expectedVersion)
}

func (r *productRepo) List(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	err := r.st.List(ctx, colProducts, "", func(_ string, raw json.RawMessage) error {
		var p model.Product
		if err := json.Unmarshal(raw, &p); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	})
	return products, err
}
