// Package badgerdb implements the ability to read and write blocks to a
// Badger key/value store. Blocks are keyed by their big endian number so
// the natural key order is chain order.
package badgerdb

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/dgraph-io/badger/v4"
)

var blockPrefix = []byte("block/")

// Badger represents the serialization implementation for reading and storing
// blocks in a Badger database. This implements the database.Serializer
// interface.
type Badger struct {
	db *badger.DB
}

// New opens or creates a Badger database at the specified path.
func New(dbPath string) (*Badger, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot acquire directory lock") {
			return nil, fmt.Errorf("database at %s is locked by another process: %w", dbPath, err)
		}
		return nil, fmt.Errorf("open database at %s: %w", dbPath, err)
	}

	return &Badger{db: db}, nil
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}

// Write stores the block under its number. Existing blocks are never
// overwritten.
func (b *Badger) Write(block database.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return err
	}

	key := blockKey(block.Header.Number)

	return b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return fmt.Errorf("block %d already stored", block.Header.Number)
		case !errors.Is(err, badger.ErrKeyNotFound):
			return fmt.Errorf("badger get: %w", err)
		}

		return txn.Set(key, data)
	})
}

// GetBlock returns the contents of the specified block by number.
func (b *Badger) GetBlock(num uint64) (database.Block, error) {
	var block database.Block

	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(blockKey(num))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &block)
		})
	})

	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return database.Block{}, database.ErrBlockNotFound
	case err != nil:
		return database.Block{}, fmt.Errorf("badger get block %d: %w", num, err)
	}

	return block, nil
}

// ForEach returns an iterator to walk through all the blocks starting with
// the genesis block.
func (b *Badger) ForEach() database.Iterator {
	return &badgerIterator{storage: b}
}

// Reset drops every stored block.
func (b *Badger) Reset() error {
	return b.db.DropPrefix(blockPrefix)
}

// blockKey forms the key for the specified block number.
func blockKey(num uint64) []byte {
	key := make([]byte, len(blockPrefix)+8)
	copy(key, blockPrefix)
	binary.BigEndian.PutUint64(key[len(blockPrefix):], num)
	return key
}

// =============================================================================

// badgerIterator walks the stored blocks by number. Each step is its own
// read transaction so a long walk doesn't pin a snapshot.
type badgerIterator struct {
	storage *Badger
	current uint64
	eoc     bool
}

// Next retrieves the next block.
func (bi *badgerIterator) Next() (database.Block, error) {
	if bi.eoc {
		return database.Block{}, errors.New("end of chain")
	}

	block, err := bi.storage.GetBlock(bi.current)
	if errors.Is(err, database.ErrBlockNotFound) {
		bi.eoc = true
	}

	bi.current++

	return block, err
}

// Done returns the end of chain value.
func (bi *badgerIterator) Done() bool {
	return bi.eoc
}
