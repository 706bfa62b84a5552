// elgamal.go - Twisted ElGamal encryption with bounded-lookup decryption.
//
// A ciphertext is the pair (r·G, value·G + r·pk). Decryption by the secret
// key holder recovers value·G, then maps it back to value through a table
// precomputed for [0, MaxValueRange). Values outside that window are
// undecryptable by design, reported as ErrNotFound.

package zkp

import (
	"fmt"
	"math/big"

	"github.com/Tritonn204/zkledger/curve"
)

// Ciphertext is a twisted ElGamal encryption of a value: C1 = r·G and
// C2 = value·G + r·pk.
type Ciphertext struct {
	C1 curve.Point `json:"c1"`
	C2 curve.Point `json:"c2"`
}

// Add combines two ciphertexts under the same public key into an encryption
// of the sum, with summed randomness.
func (ct Ciphertext) Add(other Ciphertext) Ciphertext {
	return Ciphertext{
		C1: ct.C1.Add(other.C1),
		C2: ct.C2.Add(other.C2),
	}
}

// Encrypt encrypts amount under pk. When randomness is nil a fresh scalar is
// sampled; passing an explicit scalar makes the ciphertext reproducible. The
// randomness actually used is returned alongside the ciphertext.
func (e *Engine) Encrypt(amount int64, pk curve.Point, randomness *big.Int) (Ciphertext, *big.Int, error) {
	if amount < 0 {
		return Ciphertext{}, nil, fmt.Errorf("%w: negative amount %d", ErrInvalidInput, amount)
	}
	if !pk.IsOnCurve() || pk.IsIdentity() {
		return Ciphertext{}, nil, fmt.Errorf("%w: malformed public key", ErrInvalidInput)
	}
	r := randomness
	if r == nil {
		var err error
		r, err = e.RandomScalar()
		if err != nil {
			return Ciphertext{}, nil, fmt.Errorf("encrypt: %w", err)
		}
	} else if !e.group.ValidScalar(r) {
		return Ciphertext{}, nil, fmt.Errorf("%w: randomness outside [0, order)", ErrInvalidInput)
	}

	c1 := e.g.ScalarMul(r)
	c2 := e.g.ScalarMul(big.NewInt(amount)).Add(pk.ScalarMul(r))
	return Ciphertext{C1: c1, C2: c2}, r, nil
}

// Decrypt recovers the encrypted value with the secret key, searching the
// precomputed table up to maxRange. maxRange is capped at the engine's
// configured window; values at or beyond the effective bound yield
// ErrNotFound.
func (e *Engine) Decrypt(ct Ciphertext, sk *big.Int, maxRange int64) (int64, error) {
	if !e.group.ValidScalar(sk) {
		return 0, fmt.Errorf("%w: secret key outside [0, order)", ErrInvalidInput)
	}
	bound := maxRange
	if bound <= 0 || bound > e.maxValueRange {
		bound = e.maxValueRange
	}

	// value·G = C2 - sk·C1
	m := ct.C2.Sub(ct.C1.ScalarMul(sk))
	v, ok := e.decTable[m.XBytes()]
	if !ok || v >= bound {
		return 0, fmt.Errorf("%w: value outside decryptable range [0, %d)", ErrNotFound, bound)
	}
	return v, nil
}

// buildLookupTable precomputes {i·G → i} for i in [0, MaxValueRange), keyed
// by the x-coordinate. i = 0 maps the identity's zero coordinate.
func (e *Engine) buildLookupTable() {
	table := make(map[[curve.CoordinateLen]byte]int64, e.maxValueRange)
	var p curve.Point
	for i := int64(0); i < e.maxValueRange; i++ {
		table[p.XBytes()] = i
		p = p.Add(e.g)
	}
	e.decTable = table
}
