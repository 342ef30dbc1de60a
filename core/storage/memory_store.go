package storage

import (
	"sync"

	"medchain/core/block"
)

// MemoryStore keeps the snapshot in process memory. It backs ephemeral nodes
// and tests.
type MemoryStore struct {
	mu    sync.Mutex
	chain []block.Block
	saves int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]block.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chain == nil {
		return nil, ErrNoSnapshot
	}
	out := make([]block.Block, len(s.chain))
	copy(out, s.chain)
	return out, nil
}

func (s *MemoryStore) Save(chain []block.Block) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain = make([]block.Block, len(chain))
	copy(s.chain, chain)
	s.saves++
	return nil
}

// Saves returns how many snapshots have been written.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *MemoryStore) Close() error {
	return nil
}
