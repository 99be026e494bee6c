// Package note implements the deposit note lifecycle: secret generation,
// Poseidon2 commitments, and nullifier hashes. The native hashing here must
// stay bit-for-bit consistent with the in-circuit hasher, so all inputs are
// written as canonical 32-byte fr.Element encodings (a zero value writes 32
// zero bytes, matching the circuit, instead of the empty slice returned by
// big.Int.Bytes()).
package note

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon2"

	"github.com/tetsuo-ai/privacy-pool/pkg/field"
)

// ErrNotInField indicates a hash input outside the scalar field.
var ErrNotInField = errors.New("hash input not a canonical scalar field element")

// Hash1 computes the arity-1 Poseidon2 hash H(x).
func Hash1(x *big.Int) (*big.Int, error) {
	if !field.IsCanonical(x) {
		return nil, ErrNotInField
	}
	h := poseidon2.NewMerkleDamgardHasher()

	var xFr fr.Element
	xFr.SetBigInt(x)
	xBytes := xFr.Bytes()
	h.Write(xBytes[:])

	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// Hash2 computes the arity-2 Poseidon2 hash H(a, b). Argument order is
// significant: Hash2(a, b) != Hash2(b, a) for a != b.
func Hash2(a, b *big.Int) (*big.Int, error) {
	if !field.IsCanonical(a) || !field.IsCanonical(b) {
		return nil, ErrNotInField
	}
	h := poseidon2.NewMerkleDamgardHasher()

	var aFr, bFr fr.Element
	aFr.SetBigInt(a)
	bFr.SetBigInt(b)

	aBytes := aFr.Bytes()
	bBytes := bFr.Bytes()
	h.Write(aBytes[:])
	h.Write(bBytes[:])

	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// Commit derives the deposit commitment H(nullifier, secret).
func Commit(nullifier, secret *big.Int) (*big.Int, error) {
	c, err := Hash2(nullifier, secret)
	if err != nil {
		return nil, fmt.Errorf("derive commitment: %w", err)
	}
	return c, nil
}

// NullifierHash derives the public spend tag H(nullifier). Revealing it
// spends the note without linking back to the commitment.
func NullifierHash(nullifier *big.Int) (*big.Int, error) {
	nh, err := Hash1(nullifier)
	if err != nil {
		return nil, fmt.Errorf("derive nullifier hash: %w", err)
	}
	return nh, nil
}

// DepositNote is the client-side secret material for one deposit, plus the
// derived public values.
type DepositNote struct {
	Nullifier     *big.Int
	Secret        *big.Int
	Commitment    *big.Int
	NullifierHash *big.Int

	Amount    uint64
	Timestamp int64 // unix seconds at creation
}

// NewNote draws a fresh (nullifier, secret) pair from crypto/rand and
// derives the commitment and nullifier hash.
func NewNote(amount uint64) (*DepositNote, error) {
	nullifier, err := field.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("generate nullifier: %w", err)
	}
	secret, err := field.RandomScalar()
	if err != nil {
		return nil, fmt.Errorf("generate secret: %w", err)
	}
	return FromSecrets(nullifier, secret, amount)
}

// FromSecrets rebuilds a note from existing secret material, re-deriving the
// commitment and nullifier hash.
func FromSecrets(nullifier, secret *big.Int, amount uint64) (*DepositNote, error) {
	commitment, err := Commit(nullifier, secret)
	if err != nil {
		return nil, err
	}
	nullifierHash, err := NullifierHash(nullifier)
	if err != nil {
		return nil, err
	}
	return &DepositNote{
		Nullifier:     nullifier,
		Secret:        secret,
		Commitment:    commitment,
		NullifierHash: nullifierHash,
		Amount:        amount,
		Timestamp:     time.Now().Unix(),
	}, nil
}
