// merkle.go - Merkle trees over canonical transaction encodings.
//
// Leaves hash a transaction's canonical bytes under the leaf tag; internal
// nodes hash left ‖ right under the node tag, so leaves can never collide
// with interior nodes. A level with an odd node count duplicates its last
// node. The empty tree's root is the bare leaf-tag digest.

package chain

import (
	"fmt"

	"github.com/Tritonn204/zkledger/digest"
	"github.com/Tritonn204/zkledger/zkp"
)

const (
	merkleLeafTag = "zkledger/merkle-leaf"
	merkleNodeTag = "zkledger/merkle-node"
)

// ProofStep is one sibling on the path from a leaf to the root. Right
// reports whether the sibling sits to the right of the running hash.
type ProofStep struct {
	Hash  Digest `json:"hash"`
	Right bool   `json:"right"`
}

// MerkleTree holds every level of the tree, leaves first.
type MerkleTree struct {
	leafCount int
	levels    [][]Digest
}

// TransactionLeaf hashes a transaction into its leaf digest.
func TransactionLeaf(h *digest.Hasher, tx *zkp.Transaction) (Digest, error) {
	raw, err := tx.CanonicalBytes()
	if err != nil {
		return Digest{}, fmt.Errorf("transaction %s: %w", tx.ID, err)
	}
	return h.Sum(merkleLeafTag, raw), nil
}

// emptyMerkleRoot is the root of a tree with no transactions.
func emptyMerkleRoot(h *digest.Hasher) Digest {
	return h.Sum(merkleLeafTag)
}

// NewMerkleTree builds the full tree for a transaction list.
func NewMerkleTree(h *digest.Hasher, txs []zkp.Transaction) (*MerkleTree, error) {
	leaves := make([]Digest, 0, len(txs))
	for i := range txs {
		leaf, err := TransactionLeaf(h, &txs[i])
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	if len(leaves) == 0 {
		leaves = []Digest{emptyMerkleRoot(h)}
	}

	levels := [][]Digest{leaves}
	cur := leaves
	for len(cur) > 1 {
		if len(cur)%2 == 1 {
			cur = append(cur, cur[len(cur)-1])
			levels[len(levels)-1] = cur
		}
		next := make([]Digest, 0, len(cur)/2)
		for i := 0; i < len(cur); i += 2 {
			next = append(next, h.Sum(merkleNodeTag, cur[i][:], cur[i+1][:]))
		}
		levels = append(levels, next)
		cur = next
	}

	return &MerkleTree{leafCount: len(txs), levels: levels}, nil
}

// MerkleRoot computes just the root for a transaction list.
func MerkleRoot(h *digest.Hasher, txs []zkp.Transaction) (Digest, error) {
	tree, err := NewMerkleTree(h, txs)
	if err != nil {
		return Digest{}, err
	}
	return tree.Root(), nil
}

// Root returns the tree's root digest.
func (t *MerkleTree) Root() Digest {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Proof returns the sibling path for transaction index i, ordered leaf to
// root.
func (t *MerkleTree) Proof(i int) ([]ProofStep, error) {
	if i < 0 || i >= t.leafCount {
		return nil, fmt.Errorf("%w: transaction index %d outside [0, %d)",
			zkp.ErrInvalidInput, i, t.leafCount)
	}
	steps := make([]ProofStep, 0, len(t.levels)-1)
	idx := i
	for _, level := range t.levels[:len(t.levels)-1] {
		sib := idx ^ 1
		steps = append(steps, ProofStep{Hash: level[sib], Right: sib > idx})
		idx >>= 1
	}
	return steps, nil
}

// VerifyMerkleProof folds the sibling path onto leaf and compares the result
// with root.
func VerifyMerkleProof(h *digest.Hasher, leaf Digest, steps []ProofStep, root Digest) bool {
	cur := leaf
	for _, step := range steps {
		if step.Right {
			cur = h.Sum(merkleNodeTag, cur[:], step.Hash[:])
		} else {
			cur = h.Sum(merkleNodeTag, step.Hash[:], cur[:])
		}
	}
	return cur == root
}
