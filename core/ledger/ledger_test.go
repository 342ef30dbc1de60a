package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"medchain/core/block"
	"medchain/core/genesis"
	"medchain/core/pow"
	"medchain/core/storage"
	"medchain/core/validation"
)

// MockStore is a testify mock of storage.ChainStore.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load() ([]block.Block, error) {
	args := m.Called()
	chain, _ := args.Get(0).([]block.Block)
	return chain, args.Error(1)
}

func (m *MockStore) Save(chain []block.Block) error {
	return m.Called(chain).Error(0)
}

func (m *MockStore) Close() error {
	return m.Called().Error(0)
}

func fixedClock() func() time.Time {
	t := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func openMemory(t *testing.T, difficulty int) (*Ledger, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	l, err := Open(store, pow.NewEngine(difficulty), WithClock(fixedClock()))
	require.NoError(t, err)
	return l, store
}

func TestOpenCreatesGenesis(t *testing.T) {
	l, store := openMemory(t, 0)

	chain := l.Snapshot()
	require.Len(t, chain, 1)
	assert.True(t, genesis.IsGenesis(chain[0]))
	assert.Equal(t, 1, store.Saves(), "genesis must be persisted immediately")
}

func TestLoadIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFileStore(filepath.Join(dir, "ledger.json"))
	require.NoError(t, err)

	first, err := Open(store, pow.NewEngine(0))
	require.NoError(t, err)
	gen := first.Latest()

	second, err := Open(store, pow.NewEngine(0))
	require.NoError(t, err)
	again, err := second.Load()
	require.NoError(t, err)

	require.Len(t, again, 1)
	assert.True(t, gen.Timestamp.Equal(again[0].Timestamp))
}

func TestAppendIsMonotonic(t *testing.T) {
	l, store := openMemory(t, 0)

	for i := 0; i < 5; i++ {
		prev := l.Latest()
		blk, err := l.Append(1, prev.ComputeHash(), block.RequestCreated("D1", "P1", ""))
		require.NoError(t, err)

		assert.Equal(t, prev.Index+1, blk.Index)
		assert.Equal(t, prev.Index+1, l.Latest().Index)
		assert.Equal(t, blk.ComputeHash(), blk.Hash)
		assert.False(t, blk.Timestamp.Before(prev.Timestamp))
		assert.True(t, validation.NewWithDifficulty(0).Validate(l.Snapshot()), "chain invalid after block %d", blk.Index)
	}
	assert.Equal(t, 6, l.Len())
	assert.Equal(t, 6, store.Saves())
}

func TestAppendRejectsInvalidPayload(t *testing.T) {
	l, _ := openMemory(t, 0)
	_, err := l.Append(1, l.Latest().ComputeHash(), block.RequestApproved(0))
	assert.Error(t, err)
	assert.Equal(t, 1, l.Len())
}

func TestAppendKeepsTimestampsNonDecreasing(t *testing.T) {
	store := storage.NewMemoryStore()
	past := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	l, err := Open(store, pow.NewEngine(0))
	require.NoError(t, err)
	l.now = func() time.Time { return past }

	blk, err := l.Append(1, l.Latest().ComputeHash(), block.RequestCreated("D1", "P1", ""))
	require.NoError(t, err)
	assert.False(t, blk.Timestamp.Before(l.Snapshot()[0].Timestamp))
}

func TestFailedPersistLeavesChainUntouched(t *testing.T) {
	store := new(MockStore)
	store.On("Load").Return(nil, storage.ErrNoSnapshot).Once()
	store.On("Save", mock.MatchedBy(func(c []block.Block) bool { return len(c) == 1 })).Return(nil).Once()
	store.On("Save", mock.Anything).Return(storage.ErrPersistence).Once()

	l, err := Open(store, pow.NewEngine(0), WithClock(fixedClock()))
	require.NoError(t, err)

	_, err = l.Append(1, l.Latest().ComputeHash(), block.RequestCreated("D1", "P1", ""))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrPersistence))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, uint64(1), l.Latest().Index)
	store.AssertExpectations(t)
}

func TestOpenFailsOnUnreadableStore(t *testing.T) {
	store := new(MockStore)
	store.On("Load").Return(nil, storage.ErrPersistence)

	_, err := Open(store, pow.NewEngine(0))
	assert.ErrorIs(t, err, storage.ErrPersistence)
}

func TestCommitSolvesAgainstLatestProof(t *testing.T) {
	l, _ := openMemory(t, 2)
	engine := pow.NewEngine(2)

	for i := 0; i < 3; i++ {
		prev := l.Latest()
		blk, err := l.Commit(context.Background(), func([]block.Block) (block.Event, error) {
			return block.RequestCreated("D1", "P1", "follow_up"), nil
		})
		require.NoError(t, err)
		assert.True(t, engine.Verify(blk.Proof, prev.Proof))
		assert.Equal(t, prev.ComputeHash(), blk.PreviousHash)
	}
}

func TestCommitBuilderSeesCurrentChain(t *testing.T) {
	l, _ := openMemory(t, 0)
	var seen int
	_, err := l.Commit(context.Background(), func(chain []block.Block) (block.Event, error) {
		seen = len(chain)
		return block.RequestCreated("D1", "P1", ""), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)

	boom := errors.New("refused")
	_, err = l.Commit(context.Background(), func([]block.Block) (block.Event, error) {
		return block.Event{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, l.Len())
}

func TestCommitSurfacesPuzzleBudget(t *testing.T) {
	store := storage.NewMemoryStore()
	l, err := Open(store, pow.NewEngine(64, pow.WithMaxAttempts(5)))
	require.NoError(t, err)

	_, err = l.Commit(context.Background(), func([]block.Block) (block.Event, error) {
		return block.RequestCreated("D1", "P1", ""), nil
	})
	assert.ErrorIs(t, err, pow.ErrPuzzleNotFound)
	assert.Equal(t, 1, l.Len())
}

func TestCommitHonorsSolveTimeout(t *testing.T) {
	store := storage.NewMemoryStore()
	l, err := Open(store, pow.NewEngine(64), WithSolveTimeout(20*time.Millisecond))
	require.NoError(t, err)

	_, err = l.Commit(context.Background(), func([]block.Block) (block.Event, error) {
		return block.RequestCreated("D1", "P1", ""), nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadsProceedWhileSolving(t *testing.T) {
	store := storage.NewMemoryStore()
	l, err := Open(store, pow.NewEngine(64))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := l.Commit(ctx, func([]block.Block) (block.Event, error) {
			return block.RequestCreated("D1", "P1", ""), nil
		})
		done <- err
	}()

	// Snapshot must not block behind the writer.
	deadline := time.After(2 * time.Second)
	for i := 0; i < 100; i++ {
		select {
		case <-deadline:
			t.Fatal("reads blocked by solver")
		default:
		}
		assert.Len(t, l.Snapshot(), 1)
	}
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestSnapshotIsACopy(t *testing.T) {
	l, _ := openMemory(t, 0)
	snap := l.Snapshot()
	snap[0].Proof = 999
	assert.Equal(t, genesis.Proof, l.Latest().Proof)
}
