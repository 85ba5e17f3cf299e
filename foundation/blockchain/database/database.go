// Package database handles all the lower level support for maintaining the
// blockchain in memory and handing blocks to a serializer for persistence.
package database

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBlockNotFound is returned when a block number is past the chain tip.
var ErrBlockNotFound = errors.New("block does not exist")

// Serializer interface represents the behavior required to be implemented by any
// package providing support for storing and reading the blockchain.
type Serializer interface {
	Write(block Block) error
	GetBlock(num uint64) (Block, error)
	ForEach() Iterator
	Close() error
	Reset() error
}

// Iterator interface represents the behavior required to be implemented by any
// package providing support to iterate over the blocks.
type Iterator interface {
	Next() (Block, error)
	Done() bool
}

// =============================================================================

// Database holds the append-only list of blocks. Every block is kept in
// memory; the serializer only provides persistence across restarts.
type Database struct {
	mu         sync.RWMutex
	blocks     []Block
	serializer Serializer
}

// New constructs a database by reading every stored block. When nothing is
// stored the specified genesis block is written as block 0. Blocks are
// loaded as stored, chain validation is the caller's decision.
func New(serializer Serializer, genesis Block, evHandler func(v string, args ...any)) (*Database, error) {
	db := Database{
		serializer: serializer,
	}

	iter := serializer.ForEach()
	for block, err := iter.Next(); !iter.Done(); block, err = iter.Next() {
		if err != nil {
			return nil, fmt.Errorf("reading block %d: %w", len(db.blocks), err)
		}

		if block.Header.Number != uint64(len(db.blocks)) {
			return nil, fmt.Errorf("block out of order, got %d, exp %d", block.Header.Number, len(db.blocks))
		}

		db.blocks = append(db.blocks, block)
	}

	if len(db.blocks) > 0 {
		evHandler("database: New: loaded blocks[%d]", len(db.blocks))
		return &db, nil
	}

	if genesis.Header.Number != 0 {
		return nil, errors.New("genesis block must be number 0")
	}

	if err := db.Write(genesis); err != nil {
		return nil, fmt.Errorf("writing genesis: %w", err)
	}
	evHandler("database: New: wrote genesis: blk[%s]", genesis.Hash)

	return &db, nil
}

// Close closes the underlying storage.
func (db *Database) Close() error {
	return db.serializer.Close()
}

// Write persists the block and appends it to the chain.
func (db *Database) Write(block Block) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if block.Header.Number != uint64(len(db.blocks)) {
		return fmt.Errorf("block is not the next number, got %d, exp %d", block.Header.Number, len(db.blocks))
	}

	if err := db.serializer.Write(block); err != nil {
		return err
	}

	db.blocks = append(db.blocks, block)

	return nil
}

// LatestBlock returns the latest block.
func (db *Database) LatestBlock() Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return db.blocks[len(db.blocks)-1]
}

// Count returns the number of blocks in the chain including genesis.
func (db *Database) Count() int {
	db.mu.RLock()
	defer db.mu.RUnlock()

	return len(db.blocks)
}

// GetBlock returns the specified block by number.
func (db *Database) GetBlock(num uint64) (Block, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if num >= uint64(len(db.blocks)) {
		return Block{}, ErrBlockNotFound
	}

	return db.blocks[num], nil
}

// Blocks returns a copy of the chain. Blocks are immutable once written so
// the transaction slices are shared.
func (db *Database) Blocks() []Block {
	db.mu.RLock()
	defer db.mu.RUnlock()

	blocks := make([]Block, len(db.blocks))
	copy(blocks, db.blocks)
	return blocks
}
