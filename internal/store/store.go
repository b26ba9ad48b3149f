// Package store provides the generic key-addressed record store the inventory
// core persists into. Every backend offers the same contract: JSON documents
// addressed by (collection, id), guarded by an optimistic version token on
// writes. Single-document compare-and-swap is the correctness property the
// batch reconciler depends on — without it, concurrent imports lose deltas.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound is returned by Get when no record exists under the id.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned by Put when the stored version no longer
	// matches the expected one (or a create-only put found an existing record).
	// Callers resolve it by re-reading and retrying the read-modify-write.
	ErrVersionConflict = errors.New("version conflict")
)

// VersionNew is the expected version for create-only puts: the write succeeds
// only if no record exists yet under the id.
const VersionNew int64 = 0

// Store is the document-record store contract.
//
// Put semantics: expectedVersion == VersionNew creates the record and fails
// with ErrVersionConflict if the id is taken; expectedVersion > 0 replaces the
// record only while the stored version still matches. The returned version is
// the one now stored.
//
// List streams records whose id starts with prefix, in ascending id order.
// Returning an error from fn stops the scan and propagates the error.
type Store interface {
	Get(ctx context.Context, collection, id string, out any) (int64, error)
	Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error)
	List(ctx context.Context, collection, prefix string, fn func(id string, raw json.RawMessage) error) error
	Close(ctx context.Context) error
}
