package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
)

// MemoryTable is a SideTable held in process memory.
type MemoryTable struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryTable() *MemoryTable {
	return &MemoryTable{entries: make(map[string]Entry)}
}

func (t *MemoryTable) Remember(ref string, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[ref]; !ok {
		t.entries[ref] = e
	}
	return nil
}

func (t *MemoryTable) Lookup(ref string) (Entry, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[ref]
	if !ok {
		return Entry{}, ErrUnknownReference
	}
	return e, nil
}

// LevelTable stores entries under "ident:<ref>" in a LevelDB database. It
// can share the database used by the chain store.
type LevelTable struct {
	db *leveldb.DB
	mu sync.Mutex
}

func NewLevelTable(db *leveldb.DB) *LevelTable {
	return &LevelTable{db: db}
}

func identKey(ref string) []byte {
	return []byte("ident:" + ref)
}

func (t *LevelTable) Remember(ref string, e Entry) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := identKey(ref)
	ok, err := t.db.Has(key, nil)
	if err != nil {
		return fmt.Errorf("identity: lookup %s: %w", ref, err)
	}
	if ok {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	if err := t.db.Put(key, data, nil); err != nil {
		return fmt.Errorf("identity: store %s: %w", ref, err)
	}
	return nil
}

func (t *LevelTable) Lookup(ref string) (Entry, error) {
	data, err := t.db.Get(identKey(ref), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return Entry{}, ErrUnknownReference
	}
	if err != nil {
		return Entry{}, fmt.Errorf("identity: lookup %s: %w", ref, err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("identity: decode %s: %w", ref, err)
	}
	return e, nil
}
