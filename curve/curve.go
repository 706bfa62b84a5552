// curve.go - Named elliptic-curve group adapter for the confidential ledger.
//
// Wraps the BN254 group from gnark-crypto behind a small registry keyed by
// curve name. The rest of the module talks to Group and Point only, never to
// gnark-crypto types directly, so the curve choice stays in one place.

package curve

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrUnknownCurve is returned by NewGroup for curve names outside the registry.
var ErrUnknownCurve = errors.New("unknown curve")

// ErrInvalidPoint is returned when coordinates do not describe a group element.
var ErrInvalidPoint = errors.New("point is not on the curve")

// BN254 is the name of the only registered curve.
const BN254 = "bn254"

// CoordinateLen is the byte width of one affine coordinate.
const CoordinateLen = fp.Bytes

// Group is a prime-order elliptic-curve group: a generator, the scalar-field
// order, and the base-field modulus.
type Group struct {
	name string
	g    bn254.G1Affine
}

// NewGroup looks up a curve by name. Only "bn254" is registered; other names
// fail with ErrUnknownCurve.
func NewGroup(name string) (*Group, error) {
	switch strings.ToLower(name) {
	case BN254:
		_, _, g1, _ := bn254.Generators()
		return &Group{name: BN254, g: g1}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurve, name)
	}
}

// Name returns the registered curve name.
func (g *Group) Name() string { return g.name }

// Generator returns the base point G.
func (g *Group) Generator() Point { return Point{p: g.g} }

// Order returns the group order as a fresh big.Int.
func (g *Group) Order() *big.Int { return fr.Modulus() }

// FieldModulus returns the base-field modulus as a fresh big.Int.
func (g *Group) FieldModulus() *big.Int { return fp.Modulus() }

// RandomScalar samples a scalar uniformly from [1, order-1].
func (g *Group) RandomScalar(r io.Reader) (*big.Int, error) {
	if r == nil {
		r = rand.Reader
	}
	max := new(big.Int).Sub(g.Order(), big.NewInt(1))
	n, err := rand.Int(r, max)
	if err != nil {
		return nil, err
	}
	return n.Add(n, big.NewInt(1)), nil
}

// ValidScalar reports whether s lies in [0, order).
func (g *Group) ValidScalar(s *big.Int) bool {
	return s != nil && s.Sign() >= 0 && s.Cmp(g.Order()) < 0
}

// Point is an element of the group. The zero value is the identity (point at
// infinity).
type Point struct {
	p bn254.G1Affine
}

// NewPoint builds a point from affine coordinates, validating curve
// membership. (0, 0) is accepted as the identity.
func NewPoint(x, y *big.Int) (Point, error) {
	if x.Sign() == 0 && y.Sign() == 0 {
		return Point{}, nil
	}
	var p bn254.G1Affine
	p.X.SetBigInt(x)
	p.Y.SetBigInt(y)
	if !p.IsOnCurve() {
		return Point{}, ErrInvalidPoint
	}
	return Point{p: p}, nil
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	var r bn254.G1Affine
	r.Add(&p.p, &q.p)
	return Point{p: r}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	var neg bn254.G1Affine
	neg.Neg(&q.p)
	var r bn254.G1Affine
	r.Add(&p.p, &neg)
	return Point{p: r}
}

// ScalarMul returns k·p. Callers are expected to pass canonical scalars in
// [0, order).
func (p Point) ScalarMul(k *big.Int) Point {
	var r bn254.G1Affine
	r.ScalarMultiplication(&p.p, k)
	return Point{p: r}
}

// Equal reports whether two points are the same group element.
func (p Point) Equal(q Point) bool { return p.p.Equal(&q.p) }

// IsIdentity reports whether p is the point at infinity.
func (p Point) IsIdentity() bool { return p.p.IsInfinity() }

// IsOnCurve reports whether p is a valid group element. The identity counts.
func (p Point) IsOnCurve() bool { return p.p.IsInfinity() || p.p.IsOnCurve() }

// X returns the affine x-coordinate.
func (p Point) X() *big.Int { return p.p.X.BigInt(new(big.Int)) }

// Y returns the affine y-coordinate.
func (p Point) Y() *big.Int { return p.p.Y.BigInt(new(big.Int)) }

// Bytes returns the fixed-width uncompressed encoding x‖y (2·CoordinateLen
// bytes, big-endian). This is the form fed into every hash transcript.
func (p Point) Bytes() []byte {
	x := p.p.X.Bytes()
	y := p.p.Y.Bytes()
	out := make([]byte, 0, 2*CoordinateLen)
	out = append(out, x[:]...)
	out = append(out, y[:]...)
	return out
}

// XBytes returns the fixed-width x-coordinate, usable as a lookup-table key.
func (p Point) XBytes() [CoordinateLen]byte { return p.p.X.Bytes() }

// pointJSON is the wire form of a point: decimal coordinates plus the curve
// name, matching the ledger's serialized-point contract.
type pointJSON struct {
	X     string `json:"x"`
	Y     string `json:"y"`
	Curve string `json:"curve"`
}

// MarshalJSON encodes the point as {x, y, curve} with decimal coordinates.
// The identity serializes as x = y = "0".
func (p Point) MarshalJSON() ([]byte, error) {
	if p.IsIdentity() {
		return json.Marshal(pointJSON{X: "0", Y: "0", Curve: BN254})
	}
	return json.Marshal(pointJSON{
		X:     p.p.X.String(),
		Y:     p.p.Y.String(),
		Curve: BN254,
	})
}

// UnmarshalJSON decodes {x, y, curve}, rejecting unknown curves and
// coordinates off the curve.
func (p *Point) UnmarshalJSON(data []byte) error {
	var w pointJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if strings.ToLower(w.Curve) != BN254 {
		return fmt.Errorf("%w: %q", ErrUnknownCurve, w.Curve)
	}
	x, ok := new(big.Int).SetString(w.X, 10)
	if !ok {
		return fmt.Errorf("%w: bad x coordinate", ErrInvalidPoint)
	}
	y, ok := new(big.Int).SetString(w.Y, 10)
	if !ok {
		return fmt.Errorf("%w: bad y coordinate", ErrInvalidPoint)
	}
	pt, err := NewPoint(x, y)
	if err != nil {
		return err
	}
	*p = pt
	return nil
}
