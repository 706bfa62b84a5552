// account.go - Confidential accounts and their transfer flow.
//
// An account keeps its plaintext balance as local bookkeeping next to the
// confidential representation: a Pedersen commitment and a self-addressed
// encryption of the balance. Every balance change resamples the blinding and
// replaces both, so commitments are never mutated in place.

package zkp

import (
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/Tritonn204/zkledger/curve"
)

// History entry kinds.
const (
	HistoryDeposit = "deposit"
	HistorySend    = "send"
	HistoryReceive = "receive"
)

// HistoryEntry records one ledger-affecting event on an account.
type HistoryEntry struct {
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	Counterparty string `json:"counterparty,omitempty"`
	TxID         string `json:"tx_id,omitempty"`
	Timestamp    int64  `json:"timestamp"`
}

// Account holds a keypair and the confidential balance state. The secret key
// and blinding factor never leave the account.
type Account struct {
	ID               string
	PublicKey        curve.Point
	Balance          int64
	Commitment       Commitment
	EncryptedBalance Ciphertext
	History          []HistoryEntry

	sk       *big.Int
	blinding *big.Int
	engine   *Engine
}

// NewAccount creates an account with a fresh keypair and a zero balance.
// An empty id gets a random "Account-xxxx" name.
func NewAccount(e *Engine, id string) (*Account, error) {
	sk, pk, err := e.KeyGen()
	if err != nil {
		return nil, err
	}
	if id == "" {
		var b [2]byte
		if _, err := io.ReadFull(e.randSource(), b[:]); err != nil {
			return nil, fmt.Errorf("account name: %w", err)
		}
		id = fmt.Sprintf("Account-%04x", b)
	}

	a := &Account{
		ID:        id,
		PublicKey: pk,
		sk:        sk,
		engine:    e,
	}
	if err := a.refresh(0); err != nil {
		return nil, err
	}
	return a, nil
}

// refresh recomputes the confidential representation for balance: a new
// blinding, a new commitment, and a re-encrypted balance. State is only
// assigned once every piece succeeded.
func (a *Account) refresh(balance int64) error {
	blinding, err := a.engine.RandomScalar()
	if err != nil {
		return err
	}
	c, err := a.engine.Commit(balance, blinding)
	if err != nil {
		return err
	}
	enc, _, err := a.engine.Encrypt(balance, a.PublicKey, nil)
	if err != nil {
		return err
	}
	a.Balance = balance
	a.blinding = blinding
	a.Commitment = c
	a.EncryptedBalance = enc
	return nil
}

// Deposit adds funds to the account and rebuilds the confidential state.
// The amount must be positive.
func (a *Account) Deposit(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: deposit amount must be positive, got %d", ErrInvalidInput, amount)
	}
	if err := a.refresh(a.Balance + amount); err != nil {
		return err
	}
	a.History = append(a.History, HistoryEntry{
		Type:      HistoryDeposit,
		Amount:    amount,
		Timestamp: time.Now().Unix(),
	})
	return nil
}

// Send builds a confidential transfer to the recipient, decrements the local
// balance, and hands the transaction to the recipient's Receive. The built
// transaction is returned so callers can also submit it to a ledger.
func (a *Account) Send(recipient *Account, amount int64) (*Transaction, error) {
	if recipient == nil {
		return nil, fmt.Errorf("%w: nil recipient", ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive, got %d", ErrInvalidInput, amount)
	}
	if amount > a.Balance {
		return nil, fmt.Errorf("%w: amount %d exceeds balance %d", ErrInsufficientFunds, amount, a.Balance)
	}

	after := a.Balance - amount
	tx, err := a.engine.BuildTransactionProof(a.sk, a.PublicKey, recipient.PublicKey, amount, &after)
	if err != nil {
		return nil, err
	}
	if err := a.refresh(after); err != nil {
		return nil, err
	}
	a.History = append(a.History, HistoryEntry{
		Type:         HistorySend,
		Amount:       amount,
		Counterparty: recipient.ID,
		TxID:         tx.ID,
		Timestamp:    time.Now().Unix(),
	})

	if err := recipient.Receive(tx); err != nil {
		return nil, fmt.Errorf("send %s: recipient rejected transaction: %w", tx.ID, err)
	}
	return tx, nil
}

// Receive verifies an incoming transaction's proof bundle, decrypts the
// transferred amount with the account's own key, and credits the balance.
// A failed verification rejects the transaction without touching state.
func (a *Account) Receive(tx *Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", ErrInvalidInput)
	}
	if !a.engine.VerifyTransactionProof(tx) {
		return fmt.Errorf("%w: proof bundle rejected", ErrInvalidTransaction)
	}
	if !tx.RecipientPK.Equal(a.PublicKey) {
		return fmt.Errorf("%w: transaction not addressed to this account", ErrInvalidTransaction)
	}
	amount, err := a.engine.Decrypt(tx.Ciphertext, a.sk, a.engine.MaxValueRange())
	if err != nil {
		return fmt.Errorf("receive %s: %w", tx.ID, err)
	}
	if err := a.refresh(a.Balance + amount); err != nil {
		return err
	}
	a.History = append(a.History, HistoryEntry{
		Type:         HistoryReceive,
		Amount:       amount,
		Counterparty: pkFingerprint(tx.SenderPK),
		TxID:         tx.ID,
		Timestamp:    time.Now().Unix(),
	})
	return nil
}

// VerifyBalance checks that the confidential state still matches the
// plaintext balance: the encrypted balance decrypts to it and the commitment
// opens to it. This is a self-consistency check, not a trust boundary, since
// the account holds its own secret key.
func (a *Account) VerifyBalance() (bool, error) {
	v, err := a.engine.Decrypt(a.EncryptedBalance, a.sk, a.engine.MaxValueRange())
	if err != nil {
		return false, err
	}
	if v != a.Balance {
		return false, nil
	}
	return a.engine.Open(a.Commitment, a.Balance, a.blinding), nil
}

// pkFingerprint renders a short identifier for a public key in history
// entries.
func pkFingerprint(p curve.Point) string {
	x := p.XBytes()
	return hex.EncodeToString(x[:8])
}
