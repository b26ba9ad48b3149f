package repository

import (
	"context"
	"encoding/json"

	"sellsmart/internal/model"
	"sellsmart/internal/store"
)

const colAttributes = "attributes"

// AttributeRepository is the data access contract for the shared attribute
// catalog. Records are keyed by attribute name, so upsert-by-name is a plain
// versioned put and concurrent creates collapse into a version conflict the
// service resolves by re-reading.
type AttributeRepository interface {
	Find(ctx context.Context, name string) (*model.Attribute, int64, error)
	Put(ctx context.Context, attr *model.Attribute, expectedVersion int64) (int64, error)
	List(ctx context.Context) ([]model.Attribute, error)
}

type attributeRepo struct{ st store.Store }

func NewAttributeRepository(st store.Store) AttributeRepository {
	return &attributeRepo{st: st}
}

func (r *attributeRepo) Find(ctx context.Context, name string) (*model.Attribute, int64, error) {
	var attr model.Attribute
	version, err := r.st.Get(ctx, colAttributes, name, &attr)
	if err != nil {
		return nil, 0, err
	}
	return &attr, version, nil
}

func (r *attributeRepo) Put(ctx context.Context, attr *model.Attribute, expectedVersion int64) (int64, error) {
	return r.st.Put(ctx, colAttributes, attr.Name, attr, expectedVersion)
}

func (r *attributeRepo) List(ctx context.Context) ([]model.Attribute, error) {
	var attrs []model.Attribute
	err := r.st.List(ctx, colAttributes, "", func(_ string, raw json.RawMessage) error {
		var attr model.Attribute
		if err := json.Unmarshal(raw, &attr); err != nil {
			return err
		}
		attrs = append(attrs, attr)
		return nil
	})
	return attrs, err
}
