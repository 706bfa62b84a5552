// transaction.go - Confidential transactions and their proof bundles.
//
// A transaction carries the encrypted amount, a range proof for the amount,
// an optional range proof for the sender's remaining balance, and a Schnorr
// signature binding the sender and recipient keys to the ciphertext. Field
// order in the wire form is fixed; block and Merkle hashing consume the
// canonical encoding produced here.

package zkp

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/Tritonn204/zkledger/curve"
	"github.com/Tritonn204/zkledger/digest"
)

const txIDTag = "zkledger/tx-id"

// Transaction is a confidential transfer from sender to recipient. Amount
// and Randomness ride along as sender-side bookkeeping; confidentiality
// against third parties already hinges on the simulated range proofs, which
// embed their openings.
type Transaction struct {
	ID           string
	SenderPK     curve.Point
	RecipientPK  curve.Point
	Ciphertext   Ciphertext
	AmountProof  RangeProof
	BalanceProof *RangeProof
	Signature    SchnorrProof
	Randomness   *big.Int
	Amount       int64
	Timestamp    int64
}

type transactionJSON struct {
	ID           string       `json:"id"`
	SenderPK     curve.Point  `json:"sender_pk"`
	RecipientPK  curve.Point  `json:"recipient_pk"`
	Ciphertext   Ciphertext   `json:"ciphertext"`
	AmountProof  RangeProof   `json:"amount_proof"`
	BalanceProof *RangeProof  `json:"balance_proof,omitempty"`
	Signature    SchnorrProof `json:"signature"`
	Randomness   string       `json:"randomness"`
	Amount       int64        `json:"amount"`
	Timestamp    int64        `json:"timestamp"`
}

// MarshalJSON renders the fixed-order wire form with decimal-string scalars.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionJSON{
		ID:           tx.ID,
		SenderPK:     tx.SenderPK,
		RecipientPK:  tx.RecipientPK,
		Ciphertext:   tx.Ciphertext,
		AmountProof:  tx.AmountProof,
		BalanceProof: tx.BalanceProof,
		Signature:    tx.Signature,
		Randomness:   scalarToString(tx.Randomness),
		Amount:       tx.Amount,
		Timestamp:    tx.Timestamp,
	})
}

// UnmarshalJSON parses the wire form.
func (tx *Transaction) UnmarshalJSON(data []byte) error {
	var w transactionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r, err := scalarFromString(w.Randomness)
	if err != nil {
		return err
	}
	tx.ID = w.ID
	tx.SenderPK = w.SenderPK
	tx.RecipientPK = w.RecipientPK
	tx.Ciphertext = w.Ciphertext
	tx.AmountProof = w.AmountProof
	tx.BalanceProof = w.BalanceProof
	tx.Signature = w.Signature
	tx.Randomness = r
	tx.Amount = w.Amount
	tx.Timestamp = w.Timestamp
	return nil
}

// CanonicalBytes returns the deterministic encoding fed into Merkle leaves
// and block hashes.
func (tx *Transaction) CanonicalBytes() ([]byte, error) {
	return json.Marshal(tx)
}

// signingMessage is the content the sender's signature binds: both public
// keys and the encrypted amount.
func signingMessage(sender, recipient curve.Point, ct Ciphertext) []byte {
	msg := make([]byte, 0, 8*curve.CoordinateLen)
	msg = append(msg, sender.Bytes()...)
	msg = append(msg, recipient.Bytes()...)
	msg = append(msg, ct.C1.Bytes()...)
	msg = append(msg, ct.C2.Bytes()...)
	return msg
}

// txID derives the short transaction identifier from the participants, the
// ciphertext, and the timestamp.
func (e *Engine) txID(sender, recipient curve.Point, ct Ciphertext, timestamp int64) string {
	sum := e.hasher.Sum(txIDTag,
		sender.Bytes(),
		recipient.Bytes(),
		ct.C1.Bytes(),
		ct.C2.Bytes(),
		digest.Int64Bytes(timestamp),
	)
	return hex.EncodeToString(sum[:8])
}

// BuildTransactionProof encrypts amount for the recipient and assembles the
// full signed transaction: amount range proof over [0, MaxValueRange), an
// optional proof that the post-transfer balance is non-negative, and a
// signature binding both keys to the ciphertext. A negative balanceAfter
// fails with ErrInsufficientFunds before anything is built.
func (e *Engine) BuildTransactionProof(senderSK *big.Int, senderPK, recipientPK curve.Point, amount int64, balanceAfter *int64) (*Transaction, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: negative amount %d", ErrInvalidInput, amount)
	}
	if balanceAfter != nil && *balanceAfter < 0 {
		return nil, fmt.Errorf("%w: post-transfer balance %d", ErrInsufficientFunds, *balanceAfter)
	}

	ct, r, err := e.Encrypt(amount, recipientPK, nil)
	if err != nil {
		return nil, err
	}
	amountProof, err := e.RangeProve(amount, 0, e.maxValueRange-1)
	if err != nil {
		return nil, err
	}
	var balanceProof *RangeProof
	if balanceAfter != nil {
		p, err := e.RangeProve(*balanceAfter, 0, e.maxValueRange-1)
		if err != nil {
			return nil, err
		}
		balanceProof = &p
	}
	sig, err := e.SchnorrSign(senderSK, senderPK, signingMessage(senderPK, recipientPK, ct))
	if err != nil {
		return nil, err
	}

	ts := time.Now().Unix()
	return &Transaction{
		ID:           e.txID(senderPK, recipientPK, ct, ts),
		SenderPK:     senderPK,
		RecipientPK:  recipientPK,
		Ciphertext:   ct,
		AmountProof:  amountProof,
		BalanceProof: balanceProof,
		Signature:    sig,
		Randomness:   r,
		Amount:       amount,
		Timestamp:    ts,
	}, nil
}

// VerifyTransactionProof checks the signature, the amount range proof, and
// the balance range proof when present. It short-circuits to false on the
// first failed check, logging which one failed, and never mutates state.
func (e *Engine) VerifyTransactionProof(tx *Transaction) bool {
	if tx == nil {
		return false
	}
	log := e.log.With().Str("tx", tx.ID).Logger()

	if !tx.SenderPK.IsOnCurve() || tx.SenderPK.IsIdentity() ||
		!tx.RecipientPK.IsOnCurve() || tx.RecipientPK.IsIdentity() {
		log.Warn().Msg("transaction verification failed: malformed public key")
		return false
	}
	msg := signingMessage(tx.SenderPK, tx.RecipientPK, tx.Ciphertext)
	if !e.SchnorrVerifySigned(tx.SenderPK, tx.Signature, msg) {
		log.Warn().Msg("transaction verification failed: signature")
		return false
	}
	if tx.AmountProof.Min != 0 || tx.AmountProof.Max != e.maxValueRange-1 {
		log.Warn().Msg("transaction verification failed: amount proof bounds")
		return false
	}
	if !e.RangeVerify(tx.AmountProof) {
		log.Warn().Msg("transaction verification failed: amount range proof")
		return false
	}
	if tx.BalanceProof != nil {
		if tx.BalanceProof.Min != 0 || tx.BalanceProof.Max != e.maxValueRange-1 {
			log.Warn().Msg("transaction verification failed: balance proof bounds")
			return false
		}
		if !e.RangeVerify(*tx.BalanceProof) {
			log.Warn().Msg("transaction verification failed: balance range proof")
			return false
		}
	}
	return true
}
