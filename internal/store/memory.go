package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. Ids start at 1 and are never reused.
type Memory struct {
	mu      sync.RWMutex
	lastID  int64
	records map[int64]Record
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[int64]Record)}
}

func (m *Memory) Create(ctx context.Context, filename, data string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastID++
	rec := Record{ID: m.lastID, Filename: filename, Data: data}
	m.records[rec.ID] = rec
	return rec, nil
}

func (m *Memory) Get(ctx context.Context, id int64) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Close() {}
