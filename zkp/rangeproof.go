// rangeproof.go - Simulated range proofs.
//
// A proof commits to a value and embeds the opening (value, blinding) next to
// a binding hash over the bounds. Verification re-derives the commitment and
// the binding from the opening, so this is a consistency check, not a
// zero-knowledge argument: anyone holding the proof learns the value. The
// design deliberately trades soundness against a malicious prover for
// simplicity, and nothing in this module should treat it as a hardened
// primitive.

package zkp

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/Tritonn204/zkledger/digest"
)

const rangeTag = "zkledger/range"

// RangeProof asserts that a committed value lies in [Min, Max], inclusive.
// V and R are the embedded opening.
type RangeProof struct {
	Commitment Commitment
	Min        int64
	Max        int64
	V          int64
	R          *big.Int
	Binding    *big.Int
}

type rangeProofJSON struct {
	Commitment Commitment `json:"commitment"`
	Min        int64      `json:"min"`
	Max        int64      `json:"max"`
	V          int64      `json:"v"`
	R          string     `json:"r"`
	Binding    string     `json:"binding"`
}

// MarshalJSON renders scalars as decimal strings.
func (p RangeProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeProofJSON{
		Commitment: p.Commitment,
		Min:        p.Min,
		Max:        p.Max,
		V:          p.V,
		R:          scalarToString(p.R),
		Binding:    scalarToString(p.Binding),
	})
}

// UnmarshalJSON parses the decimal-string form.
func (p *RangeProof) UnmarshalJSON(data []byte) error {
	var w rangeProofJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r, err := scalarFromString(w.R)
	if err != nil {
		return err
	}
	binding, err := scalarFromString(w.Binding)
	if err != nil {
		return err
	}
	p.Commitment = w.Commitment
	p.Min, p.Max = w.Min, w.Max
	p.V = w.V
	p.R, p.Binding = r, binding
	return nil
}

// rangeBinding hashes the opening and bounds into the scalar field.
func (e *Engine) rangeBinding(value int64, blinding *big.Int, min, max int64) *big.Int {
	return e.hasher.Scalar(e.group.Order(), rangeTag,
		digest.Int64Bytes(value),
		scalarBytes(blinding),
		digest.Int64Bytes(min),
		digest.Int64Bytes(max),
	)
}

// RangeProve commits to value with a fresh blinding and produces a proof
// that value lies in [min, max]. Values outside the bounds, or inverted
// bounds, fail with ErrOutOfRange.
func (e *Engine) RangeProve(value, min, max int64) (RangeProof, error) {
	if min > max {
		return RangeProof{}, fmt.Errorf("%w: inverted bounds [%d, %d]", ErrOutOfRange, min, max)
	}
	if value < min || value > max {
		return RangeProof{}, fmt.Errorf("%w: value %d outside [%d, %d]", ErrOutOfRange, value, min, max)
	}

	blinding, err := e.RandomScalar()
	if err != nil {
		return RangeProof{}, fmt.Errorf("range prove: %w", err)
	}
	c, err := e.Commit(value, blinding)
	if err != nil {
		return RangeProof{}, err
	}
	return RangeProof{
		Commitment: c,
		Min:        min,
		Max:        max,
		V:          value,
		R:          blinding,
		Binding:    e.rangeBinding(value, blinding, min, max),
	}, nil
}

// RangeVerify re-derives the commitment and binding from the embedded
// opening and checks the bounds. It reports false on any mismatch and never
// panics.
func (e *Engine) RangeVerify(proof RangeProof) bool {
	if !e.group.ValidScalar(proof.R) || proof.Binding == nil {
		return false
	}
	if proof.Min > proof.Max || proof.V < proof.Min || proof.V > proof.Max {
		return false
	}
	if !e.Open(proof.Commitment, proof.V, proof.R) {
		return false
	}
	return e.rangeBinding(proof.V, proof.R, proof.Min, proof.Max).Cmp(proof.Binding) == 0
}
