package service

import (
	"context"
	"errors"
	"time"

	"sellsmart/internal/model"
	"sellsmart/internal/repository"
	"sellsmart/internal/store"
)

// CatalogService manages the shared attribute catalog: named variation axes
// and the values ever seen for them. Value sets only grow; nothing here
// deletes an attribute or removes a value.
type CatalogService interface {
	// EnsureAttribute upserts the attribute by exact name, appending any
	// previously-unseen values in encounter order. Total over any string
	// input — the only failures are storage ones.
	EnsureAttribute(ctx context.Context, name string, incomingValues []string) (*model.Attribute, error)
	ListAttributes(ctx context.Context) ([]model.Attribute, error)
}

type catalogService struct {
	attrs    repository.AttributeRepository
	attempts int
}

func NewCatalogService(attrs repository.AttributeRepository, retryAttempts int) CatalogService {
	if retryAttempts <= 0 {
		retryAttempts = defaultRetryAttempts
	}
	return &catalogService{attrs: attrs, attempts: retryAttempts}
}

func (s *catalogService) EnsureAttribute(ctx context.Context, name string, incomingValues []string) (*model.Attribute, error) {
	incoming := model.DedupValues(incomingValues)

	for attempt := 1; ; attempt++ {
		attr, version, err := s.attrs.Find(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			now := time.Now()
			fresh := &model.Attribute{Name: name, Values: incoming, CreatedAt: now, UpdatedAt: now}
			_, err := s.attrs.Put(ctx, fresh, store.VersionNew)
			if err == nil {
				return fresh, nil
			}
			// lost the creation race: the winner's record exists now, so the
			// next iteration merges into it instead
			if !errors.Is(err, store.ErrVersionConflict) {
				return nil, &model.StorageError{Op: "attribute create", Err: err}
			}
		case err != nil:
			return nil, &model.StorageError{Op: "attribute read", Err: err}
		default:
			if attr.MergeValues(incoming) == 0 {
				// nothing new — one read, zero writes
				return attr, nil
			}
			attr.UpdatedAt = time.Now()
			_, err := s.attrs.Put(ctx, attr, version)
			if err == nil {
				return attr, nil
			}
			if !errors.Is(err, store.ErrVersionConflict) {
				return nil, &model.StorageError{Op: "attribute update", Err: err}
			}
		}

		if attempt >= s.attempts {
			return nil, &model.VersionConflictError{Collection: "attributes", ID: name, Attempts: attempt}
		}
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}
}

func (s *catalogService) ListAttributes(ctx context.Context) ([]model.Attribute, error) {
	attrs, err := s.attrs.List(ctx)
	if err != nil {
		return nil, &model.StorageError{Op: "attribute list", Err: err}
	}
	return attrs, nil
}
