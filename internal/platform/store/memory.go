package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory is an in-process Store used by tests and by dev mode when no
// database is reachable. Insertion order is preserved per collection so
// Load is deterministic.
type Memory struct {
	mu          sync.RWMutex
	collections map[string][]Record
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string][]Record)}
}

func (m *Memory) Load(_ context.Context, collection string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	records := make([]Record, len(m.collections[collection]))
	copy(records, m.collections[collection])
	return records, nil
}

func (m *Memory) Upsert(_ context.Context, collection, id string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal document %s/%s: %w", collection, id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.collections[collection]
	for i, r := range records {
		if r.ID == id {
			records[i].Data = raw
			return nil
		}
	}
	m.collections[collection] = append(records, Record{ID: id, Data: raw})
	return nil
}

func (m *Memory) Delete(_ context.Context, collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	records := m.collections[collection]
	for i, r := range records {
		if r.ID == id {
			m.collections[collection] = append(records[:i], records[i+1:]...)
			return nil
		}
	}
	return nil
}
