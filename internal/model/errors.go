package model

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Typed domain errors. Handlers and the batch reconciler rely on errors.As to
// classify them, so every type implements Is against its own kind.

// ProductNotFoundError is returned when a product id does not resolve.
type ProductNotFoundError struct {
	ID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: id=%s", e.ID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// InvalidQuantityError is returned when a quantity is non-positive where a
// positive one is required, or when a delta would drive a ledger negative.
type InvalidQuantityError struct {
	VariantRef string
	Value      string
	Current    int
	Delta      int
	Reason     string
}

func (e *InvalidQuantityError) Error() string {
	if e.VariantRef != "" {
		return fmt.Sprintf("invalid quantity: ref=%s value=%s current=%d delta=%d: %s",
			e.VariantRef, e.Value, e.Current, e.Delta, e.Reason)
	}
	return fmt.Sprintf("invalid quantity: delta=%d: %s", e.Delta, e.Reason)
}

func (e *InvalidQuantityError) Is(target error) bool {
	_, ok := target.(*InvalidQuantityError)
	return ok
}

// InvalidPriceError is returned for negative prices or unit costs.
type InvalidPriceError struct {
	Price decimal.Decimal
}

func (e *InvalidPriceError) Error() string {
	return fmt.Sprintf("invalid price: %s is negative", e.Price)
}

func (e *InvalidPriceError) Is(target error) bool {
	_, ok := target.(*InvalidPriceError)
	return ok
}

// VariantMismatchError is returned when a batch line's variant selector does
// not resolve to exactly one declared (attribute, value) pair on the product.
type VariantMismatchError struct {
	ProductID     string
	AttributeName string
	Value         string
	Reason        string
}

func (e *VariantMismatchError) Error() string {
	return fmt.Sprintf("variant mismatch: product=%s attribute=%q value=%q: %s",
		e.ProductID, e.AttributeName, e.Value, e.Reason)
}

func (e *VariantMismatchError) Is(target error) bool {
	_, ok := target.(*VariantMismatchError)
	return ok
}

// VersionConflictError is surfaced when the bounded retry on optimistic writes
// is exhausted for one product.
type VersionConflictError struct {
	Collection string
	ID         string
	Attempts   int
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: %s/%s still contended after %d attempts",
		e.Collection, e.ID, e.Attempts)
}

func (e *VersionConflictError) Is(target error) bool {
	_, ok := target.(*VersionConflictError)
	return ok
}

// StorageError wraps any persistence failure that is not a not-found or a
// version conflict. It is never retried automatically.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool {
	_, ok := target.(*StorageError)
	return ok
}

// IsValidation reports whether err is one of the pre-mutation validation
// kinds, i.e. safe to surface per-line without aborting sibling products.
func IsValidation(err error) bool {
	var (
		iq *InvalidQuantityError
		ip *InvalidPriceError
		vm *VariantMismatchError
		pn *ProductNotFoundError
	)
	return errors.As(err, &iq) || errors.As(err, &ip) || errors.As(err, &vm) || errors.As(err, &pn)
}
