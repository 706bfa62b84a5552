// block.go - Blocks, block hashing, and proof-of-work mining.
//
// A block's hash covers index ‖ timestamp ‖ merkle root ‖ previous hash ‖
// nonce, in that order, with fixed-width big-endian integers. Transactions
// are bound through the Merkle root. Difficulty counts required leading zero
// bits of the hash, checked as a 256-bit integer comparison against
// 2^(256-difficulty).

package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/Tritonn204/zkledger/digest"
	"github.com/Tritonn204/zkledger/zkp"
)

const blockTag = "zkledger/block"

// Digest is a fixed-width block, Merkle, or transaction hash. It renders as
// hex in JSON and logs.
type Digest [digest.Size]byte

// String returns the hex form.
func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// IsZero reports whether the digest is all zeroes, the previous-hash value
// of the genesis block.
func (d Digest) IsZero() bool { return d == Digest{} }

// MarshalText renders the digest as hex.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses the hex form.
func (d *Digest) UnmarshalText(text []byte) error {
	raw, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("malformed digest: %w", err)
	}
	if len(raw) != digest.Size {
		return fmt.Errorf("malformed digest: got %d bytes, want %d", len(raw), digest.Size)
	}
	copy(d[:], raw)
	return nil
}

// Block is one mined unit of the ledger.
type Block struct {
	Index        uint64            `json:"index"`
	Timestamp    int64             `json:"timestamp"`
	Transactions []zkp.Transaction `json:"transactions"`
	PreviousHash Digest            `json:"previous_hash"`
	Nonce        uint64            `json:"nonce"`
	MerkleRoot   Digest            `json:"merkle_root"`
	Hash         Digest            `json:"hash"`
}

// NewBlock assembles an unmined block on top of prevHash, computing its
// Merkle root and initial hash.
func NewBlock(h *digest.Hasher, index uint64, txs []zkp.Transaction, prevHash Digest) (*Block, error) {
	root, err := MerkleRoot(h, txs)
	if err != nil {
		return nil, fmt.Errorf("block %d: %w", index, err)
	}
	b := &Block{
		Index:        index,
		Timestamp:    time.Now().Unix(),
		Transactions: txs,
		PreviousHash: prevHash,
		MerkleRoot:   root,
	}
	b.Hash = b.ComputeHash(h)
	return b, nil
}

// ComputeHash hashes the block header fields in their fixed order.
func (b *Block) ComputeHash(h *digest.Hasher) Digest {
	return h.Sum(blockTag,
		digest.Uint64Bytes(b.Index),
		digest.Int64Bytes(b.Timestamp),
		b.MerkleRoot[:],
		b.PreviousHash[:],
		digest.Uint64Bytes(b.Nonce),
	)
}

// HashMeetsDifficulty reports whether d has at least difficulty leading zero
// bits. Difficulty 0 always passes; difficulty 256 and above never does.
func HashMeetsDifficulty(d Digest, difficulty uint32) bool {
	if difficulty == 0 {
		return true
	}
	if difficulty > 256 {
		difficulty = 256
	}
	target := uint256.NewInt(1)
	if difficulty == 256 {
		target.Clear()
	} else {
		target.Lsh(target, uint(256-difficulty))
	}
	return new(uint256.Int).SetBytes(d[:]).Lt(target)
}

// Mine searches nonces until the block hash meets the difficulty. The
// context is polled every iteration; cancellation aborts with
// ErrMiningCancelled and leaves the block with its last tried nonce. This is
// the only unbounded-time operation in the module.
func (b *Block) Mine(ctx context.Context, h *digest.Hasher, difficulty uint32) error {
	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("mining block %d: %w", b.Index, ErrMiningCancelled)
		default:
		}
		b.Nonce = nonce
		b.Hash = b.ComputeHash(h)
		if HashMeetsDifficulty(b.Hash, difficulty) {
			return nil
		}
	}
}

// VerifyTransaction rebuilds the Merkle proof for transaction i and checks
// it against the stored root.
func (b *Block) VerifyTransaction(h *digest.Hasher, i int) bool {
	if i < 0 || i >= len(b.Transactions) {
		return false
	}
	tree, err := NewMerkleTree(h, b.Transactions)
	if err != nil {
		return false
	}
	steps, err := tree.Proof(i)
	if err != nil {
		return false
	}
	leaf, err := TransactionLeaf(h, &b.Transactions[i])
	if err != nil {
		return false
	}
	return VerifyMerkleProof(h, leaf, steps, b.MerkleRoot)
}
