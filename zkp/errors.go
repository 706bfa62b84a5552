// errors.go - Error taxonomy for the commitment, encryption, and proof layers.

package zkp

import "errors"

var (
	// ErrInvalidInput flags an out-of-range scalar, a negative value, or a
	// malformed point handed to an engine operation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInsufficientFunds flags a transfer whose post-transfer balance
	// would be negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidTransaction flags a transaction whose proof bundle failed
	// verification.
	ErrInvalidTransaction = errors.New("invalid transaction")

	// ErrOutOfRange flags a range-proof precondition violation: the value
	// lies outside [min, max], or the bounds themselves are inverted.
	ErrOutOfRange = errors.New("value out of range")

	// ErrNotFound flags a decryption whose value lies beyond the bounded
	// lookup table. Large values are undecryptable by design.
	ErrNotFound = errors.New("value not found in decryption table")
)
