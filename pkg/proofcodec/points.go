// Package proofcodec compresses Groth16 proof points to the 128-byte wire
// format expected by the on-chain verifier: each G1 point is the 32-byte
// big-endian x coordinate with the top bit carrying the sign of y, each G2
// point is x2 ‖ x1 (64 bytes) with the sign taken from y2, falling back to
// y1 when y2 is zero. The sign convention is "y is lexicographically
// largest", i.e. y > p/2 over the base field.
package proofcodec

import (
	"errors"
	"fmt"

	bn254 "github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/tetsuo-ai/privacy-pool/pkg/field"
)

const (
	// G1CompressedSize is the wire size of a compressed G1 point.
	G1CompressedSize = 32
	// G2CompressedSize is the wire size of a compressed G2 point.
	G2CompressedSize = 64

	signMask = 0x80
)

var (
	// ErrPointNotOnCurve indicates a decompressed x coordinate with no
	// matching y on the curve.
	ErrPointNotOnCurve = errors.New("point not on curve")

	// ErrPointNotInSubgroup indicates a curve point outside the prime-order
	// subgroup.
	ErrPointNotInSubgroup = errors.New("point not in subgroup")

	// ErrPointAtInfinity indicates the point at infinity, which has no
	// compressed encoding in this format.
	ErrPointAtInfinity = errors.New("point at infinity not encodable")
)

// Weierstrass b coefficients: y^2 = x^3 + 3 on G1, y^2 = x^3 + b/xi on the
// twist, with xi = 9+u.
var (
	g1B      fp.Element
	twistBA0 fp.Element
	twistBA1 fp.Element
)

func init() {
	g1B.SetUint64(3)
	twistBA0.SetString("19485874751759354771024239261021720505790618469301721065564631296452457478373")
	twistBA1.SetString("266929791119991161246907387137283842545076965332900288569378510910307636690")
}

// CompressG1 encodes an affine G1 point as 32 bytes.
func CompressG1(p *bn254.G1Affine) ([G1CompressedSize]byte, error) {
	var out [G1CompressedSize]byte
	if p.IsInfinity() {
		return out, ErrPointAtInfinity
	}
	out = p.X.Bytes()
	// x < p < 2^254, so the top bit of the canonical encoding is free.
	if p.Y.LexicographicallyLargest() {
		out[0] |= signMask
	}
	return out, nil
}

// DecompressG1 decodes a 32-byte compressed G1 point, recovering y from the
// curve equation and the sign bit.
func DecompressG1(b [G1CompressedSize]byte) (*bn254.G1Affine, error) {
	wantLargest := b[0]&signMask != 0
	b[0] &^= signMask

	var p bn254.G1Affine
	if err := p.X.SetBytesCanonical(b[:]); err != nil {
		return nil, fmt.Errorf("%w: g1 x coordinate not below base modulus", field.ErrInvalidFieldElement)
	}

	// y^2 = x^3 + 3
	var ySq fp.Element
	ySq.Square(&p.X)
	ySq.Mul(&ySq, &p.X)
	ySq.Add(&ySq, &g1B)

	if p.Y.Sqrt(&ySq) == nil {
		return nil, fmt.Errorf("%w: g1 x has no square root for y", ErrPointNotOnCurve)
	}
	if p.Y.LexicographicallyLargest() != wantLargest {
		p.Y.Neg(&p.Y)
	}

	if !p.IsOnCurve() {
		return nil, ErrPointNotOnCurve
	}
	if !p.IsInSubGroup() {
		return nil, fmt.Errorf("g1: %w", ErrPointNotInSubgroup)
	}
	return &p, nil
}

// CompressG2 encodes an affine G2 point as 64 bytes: x2 (the u coefficient)
// first, then x1.
func CompressG2(p *bn254.G2Affine) ([G2CompressedSize]byte, error) {
	var out [G2CompressedSize]byte
	if p.IsInfinity() {
		return out, ErrPointAtInfinity
	}

	x2 := p.X.A1.Bytes()
	x1 := p.X.A0.Bytes()
	copy(out[:32], x2[:])
	copy(out[32:], x1[:])

	// E2 sign: y2 decides, y1 breaks the tie when y2 == 0.
	if p.Y.LexicographicallyLargest() {
		out[0] |= signMask
	}
	return out, nil
}

// DecompressG2 decodes a 64-byte compressed G2 point.
func DecompressG2(b [G2CompressedSize]byte) (*bn254.G2Affine, error) {
	wantLargest := b[0]&signMask != 0
	b[0] &^= signMask

	var p bn254.G2Affine
	if err := p.X.A1.SetBytesCanonical(b[:32]); err != nil {
		return nil, fmt.Errorf("%w: g2 x2 coordinate not below base modulus", field.ErrInvalidFieldElement)
	}
	if err := p.X.A0.SetBytesCanonical(b[32:]); err != nil {
		return nil, fmt.Errorf("%w: g2 x1 coordinate not below base modulus", field.ErrInvalidFieldElement)
	}

	// y^2 = x^3 + b' over Fp2.
	ySq := p.X
	ySq.Square(&ySq)
	ySq.Mul(&ySq, &p.X)

	bTwist := p.X
	bTwist.A0 = twistBA0
	bTwist.A1 = twistBA1
	ySq.Add(&ySq, &bTwist)

	// Sqrt over Fp2 gives garbage for non-residues, so check first.
	if ySq.Legendre() == -1 {
		return nil, fmt.Errorf("%w: g2 x has no square root for y", ErrPointNotOnCurve)
	}
	p.Y.Sqrt(&ySq)
	if p.Y.LexicographicallyLargest() != wantLargest {
		p.Y.Neg(&p.Y)
	}

	if !p.IsOnCurve() {
		return nil, ErrPointNotOnCurve
	}
	if !p.IsInSubGroup() {
		return nil, fmt.Errorf("g2: %w", ErrPointNotInSubgroup)
	}
	return &p, nil
}
