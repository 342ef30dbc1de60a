// Package storage holds the durable chain store adapters. Every Save writes
// the complete chain; a failed Save leaves the previous snapshot readable.
package storage

import (
	"errors"

	"medchain/core/block"
)

var (
	// ErrNoSnapshot is returned by Load when nothing has been persisted yet.
	ErrNoSnapshot = errors.New("storage: no chain snapshot")
	// ErrPersistence wraps every read/write failure of the durable medium.
	ErrPersistence = errors.New("storage: persistence failure")
)

// ChainStore loads and saves full ledger snapshots.
type ChainStore interface {
	Load() ([]block.Block, error)
	Save(chain []block.Block) error
	Close() error
}
