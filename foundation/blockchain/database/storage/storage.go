// Package storage selects the serializer backing the ledger database.
package storage

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/badgerdb"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/database/storage/memory"
)

// Set of supported storage kinds.
const (
	Memory = "memory"
	Disk   = "disk"
	Badger = "badger"
)

// Open constructs the serializer for the specified kind. The path is
// ignored for memory storage.
func Open(kind string, path string) (database.Serializer, error) {
	switch kind {
	case Memory:
		return memory.New(), nil
	case Disk:
		return disk.New(path)
	case Badger:
		return badgerdb.New(path)
	}

	return nil, fmt.Errorf("unknown storage kind %q, expecting %s, %s or %s", kind, Memory, Disk, Badger)
}
