// Package field converts between 32-byte big-endian encodings and canonical
// BN254 field elements. The scalar field (circuit values, hashes) and the
// base field (curve point coordinates) have different moduli and are kept
// behind separate entry points so callers can never validate against the
// wrong one.
package field

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// ErrInvalidFieldElement indicates a byte string that is not the canonical
// encoding of a field element: wrong length, or a value >= the modulus.
var ErrInvalidFieldElement = errors.New("invalid field element")

// ScalarModulus returns r, the BN254 scalar field modulus.
func ScalarModulus() *big.Int {
	return ecc.BN254.ScalarField()
}

// BaseModulus returns p, the BN254 base field modulus.
func BaseModulus() *big.Int {
	return ecc.BN254.BaseField()
}

// FromBytes decodes a 32-byte big-endian scalar field element. Values >= r
// are rejected, never silently reduced.
func FromBytes(b []byte) (*big.Int, error) {
	if len(b) != fr.Bytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFieldElement, len(b), fr.Bytes)
	}
	var elem fr.Element
	if err := elem.SetBytesCanonical(b); err != nil {
		return nil, fmt.Errorf("%w: value not below scalar modulus", ErrInvalidFieldElement)
	}
	v := new(big.Int)
	elem.BigInt(v)
	return v, nil
}

// BaseFromBytes decodes a 32-byte big-endian base field element (a curve
// coordinate). Values >= p are rejected.
func BaseFromBytes(b []byte) (*big.Int, error) {
	if len(b) != fp.Bytes {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidFieldElement, len(b), fp.Bytes)
	}
	var elem fp.Element
	if err := elem.SetBytesCanonical(b); err != nil {
		return nil, fmt.Errorf("%w: value not below base modulus", ErrInvalidFieldElement)
	}
	v := new(big.Int)
	elem.BigInt(v)
	return v, nil
}

// ToBytes32 encodes a scalar field element as canonical 32-byte big-endian.
// Negative or >= r values are rejected; callers wanting wraparound use
// Reduce first.
func ToBytes32(v *big.Int) ([32]byte, error) {
	var out [32]byte
	if v == nil || v.Sign() < 0 || v.Cmp(ScalarModulus()) >= 0 {
		return out, fmt.Errorf("%w: value out of scalar field range", ErrInvalidFieldElement)
	}
	var elem fr.Element
	elem.SetBigInt(v)
	out = elem.Bytes()
	return out, nil
}

// Reduce returns v mod r. This is the explicit wrapping entry point for
// values that legitimately exceed the field (timestamps, external counters);
// FromBytes and ToBytes32 never reduce.
func Reduce(v *big.Int) *big.Int {
	return new(big.Int).Mod(v, ScalarModulus())
}

// IsCanonical reports whether v is a valid pre-reduced scalar field element.
func IsCanonical(v *big.Int) bool {
	return v != nil && v.Sign() >= 0 && v.Cmp(ScalarModulus()) < 0
}

// RandomScalar draws a uniformly random non-zero scalar field element from
// crypto/rand.
func RandomScalar() (*big.Int, error) {
	for {
		var elem fr.Element
		if _, err := elem.SetRandom(); err != nil {
			return nil, fmt.Errorf("draw random scalar: %w", err)
		}
		if elem.IsZero() {
			continue
		}
		v := new(big.Int)
		elem.BigInt(v)
		return v, nil
	}
}
