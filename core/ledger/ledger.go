// Package ledger owns the append-only block sequence.
//
// Writers are serialized by a single mutex held for the whole
// solve + append + persist path. The chain slice itself is guarded by a
// separate RWMutex that is only held long enough to read or swap the slice,
// so queries keep running while a proof is being searched. A new block is
// published to readers only after the store has accepted the snapshot that
// contains it.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"medchain/core/block"
	"medchain/core/genesis"
	"medchain/core/pow"
	"medchain/core/storage"
)

// Builder produces the payload of the next block from the chain as it is at
// the moment the writer lock is taken. Returning an error aborts the write.
type Builder func(chain []block.Block) (block.Event, error)

// Ledger is the in-process owner of the chain.
type Ledger struct {
	store        storage.ChainStore
	solver       pow.Solver
	now          func() time.Time
	solveTimeout time.Duration
	log          zerolog.Logger

	writeMu sync.Mutex

	mu    sync.RWMutex
	chain []block.Block
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now for block timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithSolveTimeout bounds each proof-of-work search. Zero means no deadline
// beyond the caller's context.
func WithSolveTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.solveTimeout = d }
}

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) Option {
	return func(l *Ledger) { l.log = log }
}

// Open loads the chain from store, materializing and persisting a genesis
// block when the store is empty.
func Open(store storage.ChainStore, solver pow.Solver, opts ...Option) (*Ledger, error) {
	l := &Ledger{
		store:  store,
		solver: solver,
		now:    time.Now,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if _, err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load reads the persisted snapshot into memory and returns it. When no
// snapshot exists, a genesis chain is created and saved first. Calling Load
// again with a snapshot present never recreates genesis.
func (l *Ledger) Load() ([]block.Block, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain, err := l.store.Load()
	switch {
	case errors.Is(err, storage.ErrNoSnapshot):
		chain = []block.Block{genesis.NewBlock(l.now())}
		if err := l.store.Save(chain); err != nil {
			return nil, fmt.Errorf("ledger: persist genesis: %w", err)
		}
		l.log.Info().Msg("no chain snapshot found, genesis block created")
	case err != nil:
		return nil, fmt.Errorf("ledger: load chain: %w", err)
	case len(chain) == 0:
		return nil, fmt.Errorf("ledger: load chain: %w: empty snapshot", storage.ErrPersistence)
	default:
		l.log.Info().Int("blocks", len(chain)).Msg("chain loaded")
	}

	l.mu.Lock()
	l.chain = chain
	l.mu.Unlock()
	return l.Snapshot(), nil
}

// Snapshot returns a copy of the chain as of the call.
func (l *Ledger) Snapshot() []block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]block.Block, len(l.chain))
	copy(out, l.chain)
	return out
}

// Latest returns the last block.
func (l *Ledger) Latest() block.Block {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.chain[len(l.chain)-1]
}

// Len returns the number of blocks.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chain)
}

// Solver returns the proof-of-work strategy the ledger writes with.
func (l *Ledger) Solver() pow.Solver {
	return l.solver
}

// Append adds a block carrying payload. The caller supplies a proof and the
// hash of the latest block; neither is re-verified here.
func (l *Ledger) Append(proof int64, previousHash string, payload block.Event) (block.Block, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.appendLocked(proof, previousHash, payload)
}

// Commit runs the full write path: build the payload against the current
// chain, solve the puzzle against the latest proof, then append.
func (l *Ledger) Commit(ctx context.Context, build Builder) (block.Block, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	chain := l.Snapshot()
	payload, err := build(chain)
	if err != nil {
		return block.Block{}, err
	}
	prev := chain[len(chain)-1]

	if l.solveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.solveTimeout)
		defer cancel()
	}
	res, err := l.solver.Solve(ctx, prev.Proof)
	if err != nil {
		l.log.Warn().Err(err).Uint64("index", prev.Index+1).Msg("proof of work failed")
		return block.Block{}, fmt.Errorf("ledger: solve block %d: %w", prev.Index+1, err)
	}
	l.log.Debug().
		Uint64("index", prev.Index+1).
		Int64("proof", res.Proof).
		Uint64("attempts", res.Attempts).
		Dur("elapsed", res.Elapsed).
		Msg("proof found")
	return l.appendLocked(res.Proof, prev.ComputeHash(), payload)
}

func (l *Ledger) appendLocked(proof int64, previousHash string, payload block.Event) (block.Block, error) {
	if err := payload.Validate(); err != nil {
		return block.Block{}, fmt.Errorf("ledger: invalid payload: %w", err)
	}

	l.mu.RLock()
	current := l.chain
	l.mu.RUnlock()
	latest := current[len(current)-1]

	ts := l.now().UTC()
	if ts.Before(latest.Timestamp) {
		ts = latest.Timestamp.UTC()
	}
	blk := block.Block{
		Index:        latest.Index + 1,
		Timestamp:    ts,
		Proof:        proof,
		PreviousHash: previousHash,
		Data:         payload,
	}
	blk.Hash = blk.ComputeHash()

	candidate := make([]block.Block, len(current), len(current)+1)
	copy(candidate, current)
	candidate = append(candidate, blk)

	if err := l.store.Save(candidate); err != nil {
		l.log.Error().Err(err).Uint64("index", blk.Index).Msg("persist failed, block discarded")
		return block.Block{}, fmt.Errorf("ledger: append block %d: %w", blk.Index, err)
	}

	l.mu.Lock()
	l.chain = candidate
	l.mu.Unlock()

	l.log.Info().
		Uint64("index", blk.Index).
		Str("hash", blk.Hash).
		Int64("proof", blk.Proof).
		Str("event", string(blk.Data.Type)).
		Msg("block appended")
	return blk, nil
}
