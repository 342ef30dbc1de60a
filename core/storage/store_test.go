package storage

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medchain/core/block"
	"medchain/core/genesis"
)

func sampleChain(n int) []block.Block {
	start := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	chain := []block.Block{genesis.NewBlock(start)}
	for i := 1; i < n; i++ {
		prev := chain[len(chain)-1]
		b := block.Block{
			Index:        prev.Index + 1,
			Timestamp:    start.Add(time.Duration(i) * time.Minute),
			Proof:        int64(i * 7),
			PreviousHash: prev.ComputeHash(),
			Data:         block.RequestCreated("D1", "P1", ""),
		}
		b.Hash = b.ComputeHash()
		chain = append(chain, b)
	}
	return chain
}

func newDEK(t *testing.T) string {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(key)
}

func storesUnderTest(t *testing.T) map[string]ChainStore {
	dir := t.TempDir()
	fileStore, err := NewFileStore(filepath.Join(dir, "ledger.json"))
	require.NoError(t, err)

	plain, err := NewLevelStore(filepath.Join(dir, "plain"), nil)
	require.NoError(t, err)

	c, err := NewCipher(newDEK(t))
	require.NoError(t, err)
	sealed, err := NewLevelStore(filepath.Join(dir, "sealed"), c)
	require.NoError(t, err)

	t.Cleanup(func() {
		plain.Close()
		sealed.Close()
	})
	return map[string]ChainStore{"file": fileStore, "leveldb": plain, "leveldb-encrypted": sealed}
}

func TestStoresReportMissingSnapshot(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load()
			assert.ErrorIs(t, err, ErrNoSnapshot)
		})
	}
}

func TestStoresRoundTripChain(t *testing.T) {
	for name, store := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			chain := sampleChain(4)
			require.NoError(t, store.Save(chain[:2]))
			require.NoError(t, store.Save(chain))

			loaded, err := store.Load()
			require.NoError(t, err)
			require.Len(t, loaded, 4)
			for i := range chain {
				assert.Equal(t, chain[i].Hash, loaded[i].Hash)
				assert.Equal(t, chain[i].ComputeHash(), loaded[i].ComputeHash())
				assert.True(t, chain[i].Timestamp.Equal(loaded[i].Timestamp))
			}
		})
	}
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "ledger.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleChain(3)))
	require.NoError(t, store.Save(sampleChain(5)))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ledger.json", entries[0].Name())
}

func TestFileStoreFailedSaveKeepsSnapshot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(filepath.Join(dir, "ledger.json"))
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleChain(2)))

	// A save that cannot create its temp file must not touch the snapshot.
	broken := &FileStore{path: filepath.Join(dir, "missing", "ledger.json")}
	err = broken.Save(sampleChain(3))
	require.ErrorIs(t, err, ErrPersistence)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestFileStoreRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("[{"), 0o644))
	store, err := NewFileStore(path)
	require.NoError(t, err)

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestLevelStoreNeedsMatchingKey(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	c, err := NewCipher(newDEK(t))
	require.NoError(t, err)
	store, err := NewLevelStore(dir, c)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleChain(2)))
	require.NoError(t, store.Close())

	other, err := NewCipher(newDEK(t))
	require.NoError(t, err)
	reopened, err := NewLevelStore(dir, other)
	require.NoError(t, err)
	defer reopened.Close()

	_, err = reopened.Load()
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestReadOnlyStoresCreateNothing(t *testing.T) {
	root := t.TempDir()

	_, err := OpenLevelStoreReadOnly(filepath.Join(root, "db"), nil)
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoDirExists(t, filepath.Join(root, "db"))

	_, err = OpenFileStore(filepath.Join(root, "data", "chain.json")).Load()
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.NoDirExists(t, filepath.Join(root, "data"))
}

func TestReadOnlyLevelStoreLoadsExistingChain(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	store, err := NewLevelStore(dir, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(sampleChain(3)))
	require.NoError(t, store.Close())

	ro, err := OpenLevelStoreReadOnly(dir, nil)
	require.NoError(t, err)
	defer ro.Close()
	loaded, err := ro.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 3)
}

func TestNewCipherValidatesKey(t *testing.T) {
	c, err := NewCipher("")
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = NewCipher("not base64!")
	assert.Error(t, err)

	_, err = NewCipher(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}
