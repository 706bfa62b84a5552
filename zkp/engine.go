// engine.go - Commitment and encryption engine setup.
//
// The engine owns the group, the hash choice, the Pedersen generators G and
// H, and the bounded decryption table. H is derived by hashing a fixed seed
// string to a scalar and multiplying G, so no party knows log_G(H).

package zkp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/Tritonn204/zkledger/curve"
	"github.com/Tritonn204/zkledger/digest"
	"github.com/Tritonn204/zkledger/logger"
)

// hGeneratorSeed is the domain-separation seed for deriving H. Changing it
// changes every commitment, so it is fixed for the life of the scheme.
const hGeneratorSeed = "PEDERSEN_H_GENERATOR"

// DefaultMaxValueRange bounds decryptable values and range-proof windows.
const DefaultMaxValueRange = 10000

// Params selects the curve, the hash algorithm, and the decryptable value
// range for an Engine.
type Params struct {
	CurveName     string `json:"curve"`
	MaxValueRange int64  `json:"max_value_range"`
	HashAlgo      string `json:"hash_algo"`
}

// DefaultParams returns the standard configuration: BN254, sha256, and a
// 10000-value decryption window.
func DefaultParams() Params {
	return Params{
		CurveName:     curve.BN254,
		MaxValueRange: DefaultMaxValueRange,
		HashAlgo:      digest.DefaultAlgo,
	}
}

// Option adjusts engine construction.
type Option func(*Engine)

// WithRand replaces the randomness source, which makes key and blinding
// generation reproducible in tests.
func WithRand(r io.Reader) Option {
	return func(e *Engine) { e.rand = r }
}

// Engine implements Pedersen commitments, twisted ElGamal encryption, and the
// proof protocol over one configured group.
type Engine struct {
	group         *curve.Group
	hasher        *digest.Hasher
	g             curve.Point
	h             curve.Point
	maxValueRange int64
	decTable      map[[curve.CoordinateLen]byte]int64
	rand          io.Reader
	log           zerolog.Logger
}

// Setup constructs an Engine: it resolves the curve and hash algorithm,
// derives H, and precomputes the value-recovery table for
// [0, MaxValueRange).
func Setup(params Params, opts ...Option) (*Engine, error) {
	group, err := curve.NewGroup(params.CurveName)
	if err != nil {
		return nil, err
	}
	hasher, err := digest.New(params.HashAlgo)
	if err != nil {
		return nil, err
	}
	if params.MaxValueRange <= 0 {
		return nil, fmt.Errorf("%w: max value range must be positive, got %d",
			ErrInvalidInput, params.MaxValueRange)
	}

	e := &Engine{
		group:         group,
		hasher:        hasher,
		g:             group.Generator(),
		maxValueRange: params.MaxValueRange,
		log:           logger.Logger().With().Str("component", "zkp").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.deriveH(); err != nil {
		return nil, err
	}
	e.buildLookupTable()

	e.log.Debug().
		Str("curve", group.Name()).
		Str("hash", hasher.Algo()).
		Int64("max_value_range", params.MaxValueRange).
		Msg("engine ready")
	return e, nil
}

// deriveH computes H = hash(seed)·G and rejects degenerate outcomes.
func (e *Engine) deriveH() error {
	k := e.hasher.Scalar(e.group.Order(), hGeneratorSeed)
	h := e.g.ScalarMul(k)
	if h.IsIdentity() || h.Equal(e.g) {
		return fmt.Errorf("%w: degenerate H generator", ErrInvalidInput)
	}
	e.h = h
	return nil
}

// Group returns the engine's group.
func (e *Engine) Group() *curve.Group { return e.group }

// Hasher returns the engine's hash function.
func (e *Engine) Hasher() *digest.Hasher { return e.hasher }

// G returns the primary generator.
func (e *Engine) G() curve.Point { return e.g }

// H returns the derived secondary generator.
func (e *Engine) H() curve.Point { return e.h }

// MaxValueRange returns the exclusive upper bound on decryptable values.
func (e *Engine) MaxValueRange() int64 { return e.maxValueRange }

// Order returns the group order as a fresh big.Int.
func (e *Engine) Order() *big.Int { return e.group.Order() }

// KeyGen samples a keypair: a secret scalar in [1, order-1] and its public
// point secret·G.
func (e *Engine) KeyGen() (*big.Int, curve.Point, error) {
	sk, err := e.group.RandomScalar(e.rand)
	if err != nil {
		return nil, curve.Point{}, fmt.Errorf("keygen: %w", err)
	}
	return sk, e.g.ScalarMul(sk), nil
}

// RandomScalar samples a blinding or nonce scalar from the engine's
// randomness source.
func (e *Engine) RandomScalar() (*big.Int, error) {
	return e.group.RandomScalar(e.rand)
}

// randSource exposes the configured randomness source, defaulting to
// crypto/rand.
func (e *Engine) randSource() io.Reader {
	if e.rand != nil {
		return e.rand
	}
	return rand.Reader
}

// Commitment is a Pedersen commitment value·G + blinding·H. It serializes as
// a plain point.
type Commitment struct {
	curve.Point
}

// Add combines two commitments homomorphically: commitments to v1 and v2 sum
// to a commitment to v1+v2 under blinding r1+r2.
func (c Commitment) Add(other Commitment) Commitment {
	return Commitment{c.Point.Add(other.Point)}
}

// Equal reports whether two commitments are the same point.
func (c Commitment) Equal(other Commitment) bool {
	return c.Point.Equal(other.Point)
}

// Commit computes value·G + blinding·H. The value must be non-negative and
// the blinding must lie in [0, order).
func (e *Engine) Commit(value int64, blinding *big.Int) (Commitment, error) {
	if value < 0 {
		return Commitment{}, fmt.Errorf("%w: negative value %d", ErrInvalidInput, value)
	}
	if !e.group.ValidScalar(blinding) {
		return Commitment{}, fmt.Errorf("%w: blinding outside [0, order)", ErrInvalidInput)
	}
	vG := e.g.ScalarMul(big.NewInt(value))
	rH := e.h.ScalarMul(blinding)
	return Commitment{vG.Add(rH)}, nil
}

// Open reports whether c opens to (value, blinding). Malformed inputs open
// nothing.
func (e *Engine) Open(c Commitment, value int64, blinding *big.Int) bool {
	expect, err := e.Commit(value, blinding)
	if err != nil {
		return false
	}
	return c.Equal(expect)
}

// scalarBytes encodes a scalar as a fixed-width big-endian chunk for hash
// transcripts.
func scalarBytes(s *big.Int) []byte {
	b := make([]byte, curve.CoordinateLen)
	s.FillBytes(b)
	return b
}

// scalarToString renders a scalar for wire forms; nil renders as "0".
func scalarToString(s *big.Int) string {
	if s == nil {
		return "0"
	}
	return s.String()
}

// scalarFromString parses a decimal scalar from a wire form.
func scalarFromString(raw string) (*big.Int, error) {
	s, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("%w: malformed scalar %q", ErrInvalidInput, raw)
	}
	return s, nil
}
