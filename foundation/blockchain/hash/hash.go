// Package hash provides the digest used to link and seal blocks.
package hash

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
)

// ZeroHash represents a hash code of zeros.
const ZeroHash string = "0000000000000000000000000000000000000000000000000000000000000000"

// Size is the number of hex characters in a digest.
const Size = 2 * sha256.Size

// =============================================================================

// Seed holds the canonical serialization of every block field except the
// nonce. Proof of work re-hashes the same seed with a different nonce on
// each attempt, so the transactions are only serialized once.
type Seed struct {
	prefix []byte
}

// NewSeed serializes the nonce independent fields of a block. The layout is
// index and timestamp as big endian 8 bytes, the length prefixed previous
// hash, then the length prefixed JSON of the transactions.
func NewSeed(index uint64, timestamp int64, transactions any, previousHash string) (Seed, error) {
	txs, err := json.Marshal(transactions)
	if err != nil {
		return Seed{}, err
	}

	buf := make([]byte, 0, 8+8+8+len(previousHash)+8+len(txs)+8)
	buf = binary.BigEndian.AppendUint64(buf, index)
	buf = binary.BigEndian.AppendUint64(buf, uint64(timestamp))
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(previousHash)))
	buf = append(buf, previousHash...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(txs)))
	buf = append(buf, txs...)

	return Seed{prefix: buf}, nil
}

// Sum returns the hex encoded digest of the seed sealed with the nonce.
func (s Seed) Sum(nonce uint64) string {
	data := make([]byte, len(s.prefix), len(s.prefix)+8)
	copy(data, s.prefix)
	data = binary.BigEndian.AppendUint64(data, nonce)

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// =============================================================================

// Hash returns the digest for the specified block fields. It returns the
// ZeroHash if the transactions can't be serialized, which never matches a
// stored block hash.
func Hash(index uint64, timestamp int64, transactions any, previousHash string, nonce uint64) string {
	seed, err := NewSeed(index, timestamp, transactions, previousHash)
	if err != nil {
		return ZeroHash
	}

	return seed.Sum(nonce)
}

// IsSolved checks the hash to make sure it complies with the POW rules.
// We need to match a difficulty number of leading 0's.
func IsSolved(difficulty uint32, hash string) bool {
	if len(hash) != Size {
		return false
	}

	if int(difficulty) > Size {
		return false
	}

	for i := 0; i < int(difficulty); i++ {
		if hash[i] != '0' {
			return false
		}
	}

	return true
}
