// Package merkle builds merkle trees over the transactions of a block so a
// single transaction can be proven to belong to it without the rest.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrNotInTree is returned when a proof is requested for a leaf the tree
// doesn't hold.
var ErrNotInTree = errors.New("value not found in tree")

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable interface {
	Hash() ([]byte, error)
}

// Step is a single sibling hash on the path from a leaf to the root. Left
// reports the sibling is concatenated before the running hash.
type Step struct {
	Hash string `json:"hash"`
	Left bool   `json:"left"`
}

// =============================================================================

// Tree holds every level of the tree, leaves first. A level with an odd
// number of nodes pairs its last node with itself.
type Tree[T Hashable] struct {
	values []T
	levels [][][]byte
}

// New constructs a tree over the specified values.
func New[T Hashable](values []T) (*Tree[T], error) {
	if len(values) == 0 {
		return nil, errors.New("cannot construct tree with no content")
	}

	leaves := make([][]byte, len(values))
	for i, v := range values {
		h, err := v.Hash()
		if err != nil {
			return nil, fmt.Errorf("hashing leaf %d: %w", i, err)
		}
		leaves[i] = h
	}

	t := Tree[T]{
		values: values,
		levels: [][][]byte{leaves},
	}

	for level := leaves; len(level) > 1; {
		next := make([][]byte, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			right := level[i]
			if i+1 < len(level) {
				right = level[i+1]
			}
			next = append(next, pair(level[i], right))
		}

		t.levels = append(t.levels, next)
		level = next
	}

	return &t, nil
}

// Root returns the merkle root.
func (t *Tree[T]) Root() []byte {
	return t.levels[len(t.levels)-1][0]
}

// RootHex converts the merkle root byte hash to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return hexutil.Encode(t.Root())
}

// Proof returns the sibling hashes from the leaf at index to the root.
func (t *Tree[T]) Proof(index int) ([]Step, error) {
	if index < 0 || index >= len(t.values) {
		return nil, ErrNotInTree
	}

	var steps []Step
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			sibling = index
		}

		steps = append(steps, Step{
			Hash: hexutil.Encode(level[sibling]),
			Left: sibling < index,
		})

		index /= 2
	}

	return steps, nil
}

// ProofOf returns the proof for the first value matching the predicate
// along with its index.
func (t *Tree[T]) ProofOf(match func(T) bool) (int, []Step, error) {
	for i, v := range t.values {
		if !match(v) {
			continue
		}

		steps, err := t.Proof(i)
		return i, steps, err
	}

	return -1, nil, ErrNotInTree
}

// LeafHex returns the hex encoded hash of the leaf at index.
func (t *Tree[T]) LeafHex(index int) string {
	return hexutil.Encode(t.levels[0][index])
}

// =============================================================================

// Verify folds the leaf hash through the proof and reports whether the
// result matches the root. Hashes are hex encoded.
func Verify(leaf string, steps []Step, root string) (bool, error) {
	h, err := hexutil.Decode(leaf)
	if err != nil {
		return false, fmt.Errorf("decoding leaf: %w", err)
	}

	for i, s := range steps {
		sibling, err := hexutil.Decode(s.Hash)
		if err != nil {
			return false, fmt.Errorf("decoding step %d: %w", i, err)
		}

		if s.Left {
			h = pair(sibling, h)
			continue
		}
		h = pair(h, sibling)
	}

	exp, err := hexutil.Decode(root)
	if err != nil {
		return false, fmt.Errorf("decoding root: %w", err)
	}

	return bytes.Equal(h, exp), nil
}

func pair(left []byte, right []byte) []byte {
	h := sha256.New()
	h.Write(left)
	h.Write(right)
	return h.Sum(nil)
}
