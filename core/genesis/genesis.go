package genesis

import (
	"time"

	"medchain/core/block"
)

// Proof is the puzzle solution recorded on the genesis block; the first
// real block solves against it.
const Proof int64 = 1

// NewBlock materializes the one-block chain head. Its Hash is a fixed
// placeholder rather than a digest.
func NewBlock(now time.Time) block.Block {
	return block.Block{
		Index:        1,
		Timestamp:    now.UTC(),
		Proof:        Proof,
		PreviousHash: block.GenesisPrevHash,
		Hash:         block.GenesisHash,
		Data:         block.GenesisEvent(),
	}
}

// IsGenesis reports whether b has the exact shape NewBlock produces.
func IsGenesis(b block.Block) bool {
	return b.Index == 1 &&
		b.PreviousHash == block.GenesisPrevHash &&
		b.Hash == block.GenesisHash &&
		b.Data.Type == block.EventGenesis
}
