// blockchain.go - The block sequence, structural validation, and persistence.
//
// The genesis block is fixed at construction and exempt from proof-of-work;
// every later block must link to its predecessor, carry a correct Merkle
// root, and satisfy the chain's difficulty. The Blockchain itself is not
// synchronized; concurrent access goes through the StateManager.

package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/Tritonn204/zkledger/digest"
	"github.com/Tritonn204/zkledger/zkp"
)

// Blockchain is an ordered block sequence starting at genesis.
type Blockchain struct {
	Blocks []*Block `json:"blocks"`

	hasher     *digest.Hasher
	difficulty uint32
}

// genesisBlock builds the fixed first block: index 0, no transactions, zero
// previous hash, never mined.
func genesisBlock(h *digest.Hasher) *Block {
	b := &Block{
		Index:      0,
		Timestamp:  time.Now().Unix(),
		MerkleRoot: emptyMerkleRoot(h),
	}
	b.Hash = b.ComputeHash(h)
	return b
}

// NewBlockchain creates a chain holding only the genesis block.
func NewBlockchain(h *digest.Hasher, difficulty uint32) *Blockchain {
	return &Blockchain{
		Blocks:     []*Block{genesisBlock(h)},
		hasher:     h,
		difficulty: difficulty,
	}
}

// Head returns the latest block.
func (bc *Blockchain) Head() *Block {
	return bc.Blocks[len(bc.Blocks)-1]
}

// Length returns the number of blocks including genesis.
func (bc *Blockchain) Length() int { return len(bc.Blocks) }

// Difficulty returns the required leading zero bits for appended blocks.
func (bc *Blockchain) Difficulty() uint32 { return bc.difficulty }

// checkBlock validates one block against its predecessor.
func (bc *Blockchain) checkBlock(b, prev *Block) *IntegrityError {
	if b.Index != prev.Index+1 {
		return &IntegrityError{Index: b.Index, Reason: fmt.Sprintf("index %d does not follow %d", b.Index, prev.Index)}
	}
	if b.PreviousHash != prev.Hash {
		return &IntegrityError{Index: b.Index, Reason: "previous hash mismatch"}
	}
	if b.ComputeHash(bc.hasher) != b.Hash {
		return &IntegrityError{Index: b.Index, Reason: "stored hash mismatch"}
	}
	if !HashMeetsDifficulty(b.Hash, bc.difficulty) {
		return &IntegrityError{Index: b.Index, Reason: "insufficient proof of work"}
	}
	root, err := MerkleRoot(bc.hasher, b.Transactions)
	if err != nil {
		return &IntegrityError{Index: b.Index, Reason: fmt.Sprintf("merkle root: %v", err)}
	}
	if root != b.MerkleRoot {
		return &IntegrityError{Index: b.Index, Reason: "merkle root mismatch"}
	}
	return nil
}

// AppendBlock validates b against the current head and appends it.
func (bc *Blockchain) AppendBlock(b *Block) error {
	if b == nil {
		return fmt.Errorf("%w: nil block", zkp.ErrInvalidInput)
	}
	if err := bc.checkBlock(b, bc.Head()); err != nil {
		return err
	}
	bc.Blocks = append(bc.Blocks, b)
	return nil
}

// Verify walks the chain from genesis, re-validating linkage, stored
// hashes, proof-of-work, and Merkle roots. The genesis block carries no
// proof-of-work and is exempt. A nil return means the chain is intact;
// otherwise the error identifies the first offending block.
func (bc *Blockchain) Verify() error {
	if len(bc.Blocks) == 0 {
		return &IntegrityError{Index: 0, Reason: "empty chain"}
	}
	for i := 1; i < len(bc.Blocks); i++ {
		if err := bc.checkBlock(bc.Blocks[i], bc.Blocks[i-1]); err != nil {
			return err
		}
	}
	return nil
}

// SaveToFile writes the chain as indented JSON.
func (bc *Blockchain) SaveToFile(path string) error {
	raw, err := json.MarshalIndent(bc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode chain: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write chain file: %w", err)
	}
	return nil
}

// LoadBlockchainFromFile reads a chain saved by SaveToFile. The result is
// not re-verified here; callers decide whether to run Verify.
func LoadBlockchainFromFile(path string, h *digest.Hasher, difficulty uint32) (*Blockchain, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	bc := &Blockchain{hasher: h, difficulty: difficulty}
	if err := json.Unmarshal(raw, bc); err != nil {
		return nil, fmt.Errorf("failed to decode chain file: %w", err)
	}
	if len(bc.Blocks) == 0 {
		return nil, &IntegrityError{Index: 0, Reason: "chain file holds no blocks"}
	}
	return bc, nil
}
