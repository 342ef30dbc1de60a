package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"

	"medchain/core/block"
)

const (
	blockPrefix = "block:"
	lengthKey   = "meta:length"
)

// LevelStore keeps one LevelDB entry per block, keyed by zero-padded index so
// iteration follows chain order. A Save replaces every block entry inside a
// single batch, which LevelDB applies atomically.
type LevelStore struct {
	db     *leveldb.DB
	cipher *Cipher
}

// NewLevelStore opens (or creates) the database at path. c may be nil.
func NewLevelStore(path string, c *Cipher) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %v", ErrPersistence, path, err)
	}
	return &LevelStore{db: db, cipher: c}, nil
}

// OpenLevelStoreReadOnly opens an existing database for reading. A missing
// database is reported as ErrNoSnapshot and nothing is created.
func OpenLevelStoreReadOnly(path string, c *Cipher) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, &opt.Options{ErrorIfMissing: true, ReadOnly: true})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open leveldb %s: %v", ErrPersistence, path, err)
	}
	return &LevelStore{db: db, cipher: c}, nil
}

func blockKey(index uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", blockPrefix, index))
}

func (s *LevelStore) Load() ([]block.Block, error) {
	raw, err := s.db.Get([]byte(lengthKey), nil)
	if err == leveldb.ErrNotFound {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read length: %v", ErrPersistence, err)
	}
	length, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad length %q", ErrPersistence, raw)
	}

	chain := make([]block.Block, 0, length)
	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		dec, err := s.cipher.Decrypt(iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%w: decrypt %s: %v", ErrPersistence, iter.Key(), err)
		}
		blk, err := block.Deserialize(dec)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s: %v", ErrPersistence, iter.Key(), err)
		}
		chain = append(chain, *blk)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("%w: iterate: %v", ErrPersistence, err)
	}
	if uint64(len(chain)) != length {
		return nil, fmt.Errorf("%w: expected %d blocks, found %d", ErrPersistence, length, len(chain))
	}
	return chain, nil
}

func (s *LevelStore) Save(chain []block.Block) error {
	batch := new(leveldb.Batch)

	iter := s.db.NewIterator(util.BytesPrefix([]byte(blockPrefix)), nil)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("%w: iterate: %v", ErrPersistence, err)
	}

	for i := range chain {
		data, err := chain[i].Serialize()
		if err != nil {
			return fmt.Errorf("%w: encode block %d: %v", ErrPersistence, chain[i].Index, err)
		}
		enc, err := s.cipher.Encrypt(data)
		if err != nil {
			return fmt.Errorf("%w: encrypt block %d: %v", ErrPersistence, chain[i].Index, err)
		}
		batch.Put(blockKey(chain[i].Index), enc)
	}
	batch.Put([]byte(lengthKey), []byte(strconv.Itoa(len(chain))))

	if err := s.db.Write(batch, nil); err != nil {
		return fmt.Errorf("%w: write batch: %v", ErrPersistence, err)
	}
	return nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying LevelDB instance
func (s *LevelStore) DB() *leveldb.DB {
	return s.db
}
