package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryStore is an in-process RecordStore. Documents are returned in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]Document
	failures    map[string]error
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string][]Document),
		failures:    make(map[string]error),
	}
}

// Insert appends documents to a collection.
func (s *MemoryStore) Insert(collection string, docs ...Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], docs...)
}

// FailCollection makes every query on collection return err (nil clears it).
func (s *MemoryStore) FailCollection(collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, collection)
		return
	}
	s.failures[collection] = err
}

// Query implements RecordStore.
func (s *MemoryStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.failures[q.Collection]; err != nil {
		return nil, err
	}

	var out []Document
	for _, doc := range s.collections[q.Collection] {
		if !matchesEquals(doc, q.Equals) || !matchesRange(doc, q.Range) {
			continue
		}
		fields := make(map[string]any, len(doc.Fields))
		for k, v := range doc.Fields {
			fields[k] = v
		}
		out = append(out, Document{ID: doc.ID, Fields: fields})
	}
	return out, nil
}

// Ping implements RecordStore.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close implements RecordStore.
func (s *MemoryStore) Close() error {
	return nil
}

func matchesEquals(doc Document, equals map[string]any) bool {
	for field, want := range equals {
		got, ok := doc.Fields[field]
		if !ok || fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func matchesRange(doc Document, r *DateRange) bool {
	if r.Empty() {
		return true
	}

	switch v := doc.Fields[r.Field].(type) {
	case string:
		lower, upper := r.Bounds()
		if lower != "" && v < lower {
			return false
		}
		if upper != "" && v >= upper {
			return false
		}
		return true
	case time.Time:
		lower, upper := r.TimeBounds()
		if lower != nil && v.Before(*lower) {
			return false
		}
		if upper != nil && !v.Before(*upper) {
			return false
		}
		return true
	default:
		return false
	}
}
