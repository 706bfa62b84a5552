// schnorr.go - Non-interactive Schnorr proofs of discrete-log knowledge.
//
// The challenge is derived by Fiat-Shamir over the public point, the nonce
// commitment, and an optional message; binding a message turns the proof
// into a signature over that message.

package zkp

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Tritonn204/zkledger/curve"
)

const schnorrTag = "zkledger/schnorr"

// SchnorrProof is a Fiat-Shamir proof of knowledge of the discrete log of a
// public point: the challenge and the response k + challenge·secret.
type SchnorrProof struct {
	Challenge *big.Int
	Response  *big.Int
}

type schnorrProofJSON struct {
	Challenge string `json:"challenge"`
	Response  string `json:"response"`
}

// MarshalJSON renders both scalars as decimal strings.
func (p SchnorrProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(schnorrProofJSON{
		Challenge: scalarToString(p.Challenge),
		Response:  scalarToString(p.Response),
	})
}

// UnmarshalJSON parses the decimal-string form.
func (p *SchnorrProof) UnmarshalJSON(data []byte) error {
	var w schnorrProofJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	c, err := scalarFromString(w.Challenge)
	if err != nil {
		return err
	}
	s, err := scalarFromString(w.Response)
	if err != nil {
		return err
	}
	p.Challenge, p.Response = c, s
	return nil
}

// schnorrChallenge hashes pub ‖ R ‖ message into the scalar field.
func (e *Engine) schnorrChallenge(pub, r curve.Point, message []byte) *big.Int {
	return e.hasher.Scalar(e.group.Order(), schnorrTag, pub.Bytes(), r.Bytes(), message)
}

// schnorrProve runs the protocol with an optional bound message.
func (e *Engine) schnorrProve(secret *big.Int, pub curve.Point, message []byte) (SchnorrProof, error) {
	if secret == nil || secret.Sign() <= 0 || secret.Cmp(e.group.Order()) >= 0 {
		return SchnorrProof{}, fmt.Errorf("%w: secret outside [1, order)", ErrInvalidInput)
	}
	if !pub.IsOnCurve() || pub.IsIdentity() {
		return SchnorrProof{}, fmt.Errorf("%w: malformed public point", ErrInvalidInput)
	}

	k, err := e.RandomScalar()
	if err != nil {
		return SchnorrProof{}, fmt.Errorf("schnorr prove: %w", err)
	}
	r := e.g.ScalarMul(k)
	c := e.schnorrChallenge(pub, r, message)

	// response = k + c·secret mod order
	s := new(big.Int).Mul(c, secret)
	s.Add(s, k)
	s.Mod(s, e.group.Order())
	return SchnorrProof{Challenge: c, Response: s}, nil
}

// SchnorrProve proves knowledge of the discrete log of pub, with no message
// bound.
func (e *Engine) SchnorrProve(secret *big.Int, pub curve.Point) (SchnorrProof, error) {
	return e.schnorrProve(secret, pub, nil)
}

// SchnorrSign proves knowledge of the discrete log of pub with message bound
// into the challenge, making the proof a signature over message.
func (e *Engine) SchnorrSign(secret *big.Int, pub curve.Point, message []byte) (SchnorrProof, error) {
	return e.schnorrProve(secret, pub, message)
}

// schnorrVerify recomputes the nonce commitment as response·G − challenge·pub
// and checks the challenge matches. It reports false on any malformed input
// and never panics.
func (e *Engine) schnorrVerify(pub curve.Point, proof SchnorrProof, message []byte) bool {
	if proof.Challenge == nil || proof.Response == nil {
		return false
	}
	if !e.group.ValidScalar(proof.Challenge) || !e.group.ValidScalar(proof.Response) {
		return false
	}
	if !pub.IsOnCurve() || pub.IsIdentity() {
		return false
	}
	r := e.g.ScalarMul(proof.Response).Sub(pub.ScalarMul(proof.Challenge))
	return e.schnorrChallenge(pub, r, message).Cmp(proof.Challenge) == 0
}

// SchnorrVerify checks a proof with no message bound.
func (e *Engine) SchnorrVerify(pub curve.Point, proof SchnorrProof) bool {
	return e.schnorrVerify(pub, proof, nil)
}

// SchnorrVerifySigned checks a proof bound to message.
func (e *Engine) SchnorrVerifySigned(pub curve.Point, proof SchnorrProof, message []byte) bool {
	return e.schnorrVerify(pub, proof, message)
}
