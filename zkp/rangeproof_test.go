// rangeproof_test.go - Tests for simulated range proofs.

package zkp

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRangeProveVerify(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		value    int64
		min, max int64
	}{
		{name: "interior", value: 57, min: 0, max: 100},
		{name: "at lower bound", value: 0, min: 0, max: 100},
		{name: "at upper bound", value: 100, min: 0, max: 100},
		{name: "single point window", value: 7, min: 7, max: 7},
		{name: "shifted window", value: 250, min: 200, max: 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof, err := e.RangeProve(tt.value, tt.min, tt.max)
			require.NoError(t, err)
			assert.Equal(t, tt.value, proof.V)
			assert.True(t, e.RangeVerify(proof))
		})
	}
}

func TestRangeProveOutOfRange(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name     string
		value    int64
		min, max int64
	}{
		{name: "below", value: 5, min: 10, max: 20},
		{name: "above", value: 25, min: 10, max: 20},
		{name: "just below", value: 9, min: 10, max: 20},
		{name: "just above", value: 21, min: 10, max: 20},
		{name: "inverted bounds", value: 15, min: 20, max: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.RangeProve(tt.value, tt.min, tt.max)
			require.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}

func TestRangeVerifyRejectsTampering(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name   string
		mutate func(*RangeProof)
	}{
		{
			name:   "moved value",
			mutate: func(p *RangeProof) { p.V++ },
		},
		{
			name: "swapped blinding",
			mutate: func(p *RangeProof) {
				r, err := e.RandomScalar()
				require.NoError(t, err)
				p.R = r
			},
		},
		{
			name: "tampered binding",
			mutate: func(p *RangeProof) {
				p.Binding = new(big.Int).Add(p.Binding, big.NewInt(1))
			},
		},
		{
			name:   "widened bounds",
			mutate: func(p *RangeProof) { p.Max += 50 },
		},
		{
			name:   "value pushed outside bounds",
			mutate: func(p *RangeProof) { p.Min = p.V + 1 },
		},
		{
			name:   "nil blinding",
			mutate: func(p *RangeProof) { p.R = nil },
		},
		{
			name:   "negative blinding",
			mutate: func(p *RangeProof) { p.R = big.NewInt(-1) },
		},
		{
			name: "replaced commitment",
			mutate: func(p *RangeProof) {
				r, err := e.RandomScalar()
				require.NoError(t, err)
				c, err := e.Commit(999, r)
				require.NoError(t, err)
				p.Commitment = c
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proof, err := e.RangeProve(42, 0, 100)
			require.NoError(t, err)
			require.True(t, e.RangeVerify(proof))

			tt.mutate(&proof)
			assert.False(t, e.RangeVerify(proof))
		})
	}
}

func TestRangeProofJSONRoundTrip(t *testing.T) {
	e := newTestEngine(t)

	proof, err := e.RangeProve(42, 0, 100)
	require.NoError(t, err)

	raw, err := json.Marshal(proof)
	require.NoError(t, err)
	var back RangeProof
	require.NoError(t, json.Unmarshal(raw, &back))

	assert.Equal(t, proof.V, back.V)
	assert.Equal(t, proof.Min, back.Min)
	assert.Equal(t, proof.Max, back.Max)
	assert.Zero(t, proof.R.Cmp(back.R))
	assert.True(t, e.RangeVerify(back))
}
