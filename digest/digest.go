// digest.go - Domain-tagged hashing for transcripts, block hashes, and
// hash-to-scalar derivations.
//
// Every hash in the module flows through a Hasher so the algorithm is chosen
// once, at configuration time. Inputs are framed as tag ‖ chunk1 ‖ chunk2 ‖ …
// where each chunk is fixed-width, so distinct tags give disjoint domains.

package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/zeebo/blake3"
)

// Size is the digest width in bytes for every supported algorithm.
const Size = 32

// Supported algorithm names.
const (
	SHA256 = "sha256"
	BLAKE3 = "blake3"
)

// DefaultAlgo is the algorithm used when configuration does not say otherwise.
const DefaultAlgo = SHA256

// ErrUnknownAlgo is returned by New for algorithm names outside the registry.
var ErrUnknownAlgo = errors.New("unknown hash algorithm")

// Hasher computes fixed-width domain-tagged digests with one configured
// algorithm. The zero value is not usable; construct with New.
type Hasher struct {
	algo string
}

// New returns a Hasher for the named algorithm ("sha256" or "blake3").
func New(algo string) (*Hasher, error) {
	switch strings.ToLower(algo) {
	case SHA256:
		return &Hasher{algo: SHA256}, nil
	case BLAKE3:
		return &Hasher{algo: BLAKE3}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgo, algo)
	}
}

// Algo returns the configured algorithm name.
func (h *Hasher) Algo() string { return h.algo }

// Sum hashes tag ‖ chunks and returns the 32-byte digest.
func (h *Hasher) Sum(tag string, chunks ...[]byte) [Size]byte {
	var out [Size]byte
	switch h.algo {
	case BLAKE3:
		hh := blake3.New()
		hh.Write([]byte(tag))
		for _, c := range chunks {
			hh.Write(c)
		}
		copy(out[:], hh.Sum(nil))
	default:
		hh := sha256.New()
		hh.Write([]byte(tag))
		for _, c := range chunks {
			hh.Write(c)
		}
		copy(out[:], hh.Sum(nil))
	}
	return out
}

// Scalar hashes tag ‖ chunks and reduces the digest modulo order, mapping the
// transcript into the scalar field.
func (h *Hasher) Scalar(order *big.Int, tag string, chunks ...[]byte) *big.Int {
	sum := h.Sum(tag, chunks...)
	s := new(big.Int).SetBytes(sum[:])
	return s.Mod(s, order)
}

// Uint64Bytes encodes v as 8 big-endian bytes for transcript framing.
func Uint64Bytes(v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return b[:]
}

// Int64Bytes encodes v as 8 big-endian bytes (two's complement).
func Int64Bytes(v int64) []byte {
	return Uint64Bytes(uint64(v))
}
