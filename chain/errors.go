// errors.go - Error taxonomy for the ledger core and state manager.

package chain

import (
	"errors"
	"fmt"
)

var (
	// ErrChainIntegrity flags a hash-linkage, proof-of-work, or Merkle
	// mismatch. Structural checks wrap it in an IntegrityError carrying the
	// offending block index.
	ErrChainIntegrity = errors.New("chain integrity violation")

	// ErrMiningCancelled is returned when a nonce search is aborted, either
	// by the caller's context or by a newer pending-transaction set.
	ErrMiningCancelled = errors.New("mining cancelled")

	// ErrNoPendingTransactions is returned by MineNow when there is nothing
	// to mine.
	ErrNoPendingTransactions = errors.New("no pending transactions")

	// ErrPendingQueueFull is returned when a submission would exceed the
	// configured pending-queue capacity.
	ErrPendingQueueFull = errors.New("pending transaction queue is full")
)

// IntegrityError reports which block failed a structural check and why.
type IntegrityError struct {
	Index  uint64
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("chain integrity violation at block %d: %s", e.Index, e.Reason)
}

// Unwrap lets errors.Is match ErrChainIntegrity.
func (e *IntegrityError) Unwrap() error { return ErrChainIntegrity }
