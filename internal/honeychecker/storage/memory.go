// Package storage provides honeychecker record stores.
package storage

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/honeykeeper/internal/common"
)

type Memory struct {
	mu      sync.RWMutex
	records map[string]int
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]int)}
}

func (m *Memory) Upsert(_ context.Context, userID string, realIndex int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[userID] = realIndex
	return nil
}

func (m *Memory) RealIndex(_ context.Context, userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.records[userID]
	if !ok {
		return 0, common.ErrorNotFound
	}
	return idx, nil
}
