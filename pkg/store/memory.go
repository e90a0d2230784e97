package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-process content-addressed store, used by unit
// tests and as the facade's default when no external store is wired.
// Concurrent writes are idempotent by construction (content hashing),
// so MemoryStore only needs a single mutex guarding its maps, not a
// per-record lock.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	// reverse[targetType][sourceID] = ordered ids of targetType records
	// referencing sourceID.
	reverse map[RecordType]map[string][]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		reverse: make(map[RecordType]map[string][]string),
	}
}

// PutUnversioned implements Adapter.
func (s *MemoryStore) PutUnversioned(ctx context.Context, record Record) (string, bool, error) {
	id := record.ID()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[id]; exists {
		return id, false, nil
	}
	s.records[id] = record

	for _, ref := range record.References {
		byType, ok := s.reverse[record.Type]
		if !ok {
			byType = make(map[string][]string)
			s.reverse[record.Type] = byType
		}
		byType[ref] = append(byType[ref], id)
	}

	return id, true, nil
}

// Get implements Adapter.
func (s *MemoryStore) Get(ctx context.Context, id string) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	return r, ok, nil
}

// ReverseMap implements Adapter.
func (s *MemoryStore) ReverseMap(ctx context.Context, sourceID string, targetType RecordType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byType, ok := s.reverse[targetType]
	if !ok {
		return nil, nil
	}
	ids := byType[sourceID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out, nil
}
