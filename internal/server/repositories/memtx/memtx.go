// Package memtx gives the in-memory repositories the one transactional
// property the services rely on: row locks that are held until the
// transaction function returns.
//
// There is no rollback. Memory repositories only fail on programmer error,
// so partially applied writes are not expected in practice.
package memtx

import "sync"

// Keyed hands out one mutex per key.
type Keyed struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewKeyed() *Keyed {
	return &Keyed{locks: make(map[string]*sync.Mutex)}
}

func (k *Keyed) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

// Tx records the keys locked during one transaction.
type Tx struct {
	keyed *Keyed
	held  map[string]*sync.Mutex
	order []string
}

func (k *Keyed) Begin() *Tx {
	return &Tx{keyed: k, held: make(map[string]*sync.Mutex)}
}

// Lock acquires key for the rest of the transaction. Re-locking a key the
// transaction already holds is a no-op. A nil Tx does nothing, which is what
// repositories used outside a transaction get.
func (t *Tx) Lock(key string) {
	if t == nil {
		return
	}
	if _, ok := t.held[key]; ok {
		return
	}
	m := t.keyed.get(key)
	m.Lock()
	t.held[key] = m
	t.order = append(t.order, key)
}

// Release unlocks everything in reverse acquisition order.
func (t *Tx) Release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.held = map[string]*sync.Mutex{}
	t.order = nil
}
