// engine_test.go - Tests for engine setup and Pedersen commitments.

package zkp

import (
	"math/big"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tritonn204/zkledger/logger"
)

func TestMain(m *testing.M) {
	logger.Disable()
	os.Exit(m.Run())
}

// newTestEngine builds an engine with a small decryption window to keep
// table precomputation cheap.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	params := DefaultParams()
	params.MaxValueRange = 1000
	e, err := Setup(params)
	require.NoError(t, err)
	return e
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr bool
	}{
		{name: "defaults", mutate: func(p *Params) {}},
		{name: "blake3 hashing", mutate: func(p *Params) { p.HashAlgo = "blake3" }},
		{name: "unknown curve", mutate: func(p *Params) { p.CurveName = "curve9000" }, wantErr: true},
		{name: "unknown hash", mutate: func(p *Params) { p.HashAlgo = "md5" }, wantErr: true},
		{name: "zero range", mutate: func(p *Params) { p.MaxValueRange = 0 }, wantErr: true},
		{name: "negative range", mutate: func(p *Params) { p.MaxValueRange = -5 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			params.MaxValueRange = 100
			tt.mutate(&params)
			e, err := Setup(params)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, params.MaxValueRange, e.MaxValueRange())
		})
	}
}

func TestHGeneratorDerivation(t *testing.T) {
	e := newTestEngine(t)

	// H must be a valid non-trivial generator distinct from G.
	assert.True(t, e.H().IsOnCurve())
	assert.False(t, e.H().IsIdentity())
	assert.False(t, e.H().Equal(e.G()))

	// Derivation is deterministic: a second engine agrees.
	e2 := newTestEngine(t)
	assert.True(t, e.H().Equal(e2.H()))

	// A different hash algorithm yields a different H.
	params := DefaultParams()
	params.MaxValueRange = 100
	params.HashAlgo = "blake3"
	e3, err := Setup(params)
	require.NoError(t, err)
	assert.False(t, e.H().Equal(e3.H()))
}

func TestKeyGen(t *testing.T) {
	e := newTestEngine(t)

	sk, pk, err := e.KeyGen()
	require.NoError(t, err)
	assert.Positive(t, sk.Sign())
	assert.Negative(t, sk.Cmp(e.Order()))
	assert.True(t, pk.Equal(e.G().ScalarMul(sk)))

	sk2, pk2, err := e.KeyGen()
	require.NoError(t, err)
	assert.NotZero(t, sk.Cmp(sk2))
	assert.False(t, pk.Equal(pk2))
}

func TestCommitValidation(t *testing.T) {
	e := newTestEngine(t)
	r, err := e.RandomScalar()
	require.NoError(t, err)

	tests := []struct {
		name     string
		value    int64
		blinding *big.Int
	}{
		{name: "negative value", value: -1, blinding: r},
		{name: "nil blinding", value: 5, blinding: nil},
		{name: "blinding at order", value: 5, blinding: e.Order()},
		{name: "negative blinding", value: 5, blinding: big.NewInt(-3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Commit(tt.value, tt.blinding)
			require.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestCommitHomomorphism(t *testing.T) {
	e := newTestEngine(t)

	r1, err := e.RandomScalar()
	require.NoError(t, err)
	r2, err := e.RandomScalar()
	require.NoError(t, err)

	c1, err := e.Commit(30, r1)
	require.NoError(t, err)
	c2, err := e.Commit(12, r2)
	require.NoError(t, err)

	// commit(v1, r1) + commit(v2, r2) == commit(v1+v2, r1+r2)
	rSum := new(big.Int).Add(r1, r2)
	rSum.Mod(rSum, e.Order())
	cSum, err := e.Commit(42, rSum)
	require.NoError(t, err)
	assert.True(t, c1.Add(c2).Equal(cSum))
}

func TestOpen(t *testing.T) {
	e := newTestEngine(t)
	r, err := e.RandomScalar()
	require.NoError(t, err)

	c, err := e.Commit(77, r)
	require.NoError(t, err)

	assert.True(t, e.Open(c, 77, r))
	assert.False(t, e.Open(c, 78, r), "wrong value must not open")
	other, err := e.RandomScalar()
	require.NoError(t, err)
	assert.False(t, e.Open(c, 77, other), "wrong blinding must not open")
	assert.False(t, e.Open(c, -1, r), "malformed opening must not open")
}
