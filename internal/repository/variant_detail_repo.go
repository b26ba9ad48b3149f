package repository

import (
	"context"
	"encoding/json"

	"sellsmart/internal/model"
	"sellsmart/internal/store"
)

const colVariantDetails = "variant_details"

// VariantDetailRepository is the data access contract for per-value ledgers.
// Detail ids are "<variantRef>:<value>", so ListByRef is a prefix scan over
// one axis.
type VariantDetailRepository interface {
	Find(ctx context.Context, variantRef, value string) (*model.VariantDetail, int64, error)
	Put(ctx context.Context, d *model.VariantDetail, expectedVersion int64) (int64, error)
	ListByRef(ctx context.Context, variantRef string) ([]model.VariantDetail, error)
}

type variantDetailRepo struct{ st store.Store }

func NewVariantDetailRepository(st store.Store) VariantDetailRepository {
	return &variantDetailRepo{st: st}
}

func (r *variantDetailRepo) Find(ctx context.Context, variantRef, value string) (*model.VariantDetail, int64, error) {
	var d model.VariantDetail
	version, err := r.st.Get(ctx, colVariantDetails, model.DetailID(variantRef, value), &d)
	if err != nil {
		return nil, 0, err
	}
	return &d, version, nil
}

func (r *variantDetailRepo) Put(ctx context.Context, d *model.VariantDetail, expectedVersion int64) (int64, error) {
	return r.st.Put(ctx, colVariantDetails, model.DetailID(d.VariantRef, d.Value), d, expectedVersion)
}

func (r *variantDetailRepo) ListByRef(ctx context.Context, variantRef string) ([]model.VariantDetail, error) {
	var details []model.VariantDetail
	err := r.st.List(ctx, colVariantDetails, variantRef+":", func(_ string, raw json.RawMessage) error {
		var d model.VariantDetail
		if err := json.Unmarshal(raw, &d); err != nil {
			return err
		}
		details = append(details, d)
		return nil
	})
	return details, err
}
