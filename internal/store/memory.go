package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// Memory is a thread-safe in-memory Store. Documents are held as their JSON
// encoding so readers always get an isolated copy — a caller mutating what it
// read can never corrupt the stored record. Default backend for unit tests
// and local development.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]memRecord
}

type memRecord struct {
	version int64
	data    []byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]memRecord)}
}

func (s *Memory) Get(ctx context.Context, collection, id string, out any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	rec, ok := s.collections[collection][id]
	s.mu.RUnlock()

	if !ok {
		return 0, ErrNotFound
	}
	if err := json.Unmarshal(rec.data, out); err != nil {
		return 0, err
	}
	return rec.version, nil
}

func (s *Memory) Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	col, ok := s.collections[collection]
	if !ok {
		col = make(map[string]memRecord)
		s.collections[collection] = col
	}

	current, exists := col[id]
	switch {
	case expectedVersion == VersionNew && exists:
		return 0, ErrVersionConflict
	case expectedVersion != VersionNew && (!exists || current.version != expectedVersion):
		return 0, ErrVersionConflict
	}

	next := expectedVersion + 1
	col[id] = memRecord{version: next, data: data}
	return next, nil
}

func (s *Memory) List(ctx context.Context, collection, prefix string, fn func(id string, raw json.RawMessage) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	col := s.collections[collection]
	ids := make([]string, 0, len(col))
	for id := range col {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			ids = append(ids, id)
		}
	}
	// copy out under the lock so fn runs unlocked
	records := make([]json.RawMessage, len(ids))
	sort.Strings(ids)
	for i, id := range ids {
		records[i] = append(json.RawMessage(nil), col[id].data...)
	}
	s.mu.RUnlock()

	for i, id := range ids {
		if err := fn(id, records[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Memory) Close(ctx context.Context) error { return nil }
