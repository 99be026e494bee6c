package proofcodec

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ProofSize is the total wire size of a compressed proof: a (32) + b (64) +
// c (32).
const ProofSize = 2*G1CompressedSize + G2CompressedSize

// ErrUnsupportedProof indicates a proof that does not fit the wire format,
// e.g. one carrying commitment points.
var ErrUnsupportedProof = errors.New("proof not representable in compressed wire format")

// CompressedProof is the 128-byte wire form of a Groth16 proof.
type CompressedProof struct {
	A [G1CompressedSize]byte
	B [G2CompressedSize]byte
	C [G1CompressedSize]byte
}

// Compress encodes a BN254 Groth16 proof. Compression is pure and
// deterministic: it never mutates the proof, and equal proofs produce equal
// bytes.
func Compress(proof groth16.Proof) (*CompressedProof, error) {
	p, ok := proof.(*groth16bn254.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: not a bn254 proof", ErrUnsupportedProof)
	}
	if len(p.Commitments) != 0 {
		return nil, fmt.Errorf("%w: proof carries %d commitment points", ErrUnsupportedProof, len(p.Commitments))
	}

	var out CompressedProof
	var err error
	if out.A, err = CompressG1(&p.Ar); err != nil {
		return nil, fmt.Errorf("compress a: %w", err)
	}
	if out.B, err = CompressG2(&p.Bs); err != nil {
		return nil, fmt.Errorf("compress b: %w", err)
	}
	if out.C, err = CompressG1(&p.Krs); err != nil {
		return nil, fmt.Errorf("compress c: %w", err)
	}
	return &out, nil
}

// Decompress reconstructs a verifiable gnark proof from the wire form.
func (cp *CompressedProof) Decompress() (groth16.Proof, error) {
	a, err := DecompressG1(cp.A)
	if err != nil {
		return nil, fmt.Errorf("decompress a: %w", err)
	}
	b, err := DecompressG2(cp.B)
	if err != nil {
		return nil, fmt.Errorf("decompress b: %w", err)
	}
	c, err := DecompressG1(cp.C)
	if err != nil {
		return nil, fmt.Errorf("decompress c: %w", err)
	}

	proof := &groth16bn254.Proof{Ar: *a, Bs: *b, Krs: *c}
	return proof, nil
}

// MarshalBinary returns the 128-byte wire encoding a ‖ b ‖ c.
func (cp *CompressedProof) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, ProofSize)
	out = append(out, cp.A[:]...)
	out = append(out, cp.B[:]...)
	out = append(out, cp.C[:]...)
	return out, nil
}

// UnmarshalBinary parses the 128-byte wire encoding.
func (cp *CompressedProof) UnmarshalBinary(data []byte) error {
	if len(data) != ProofSize {
		return fmt.Errorf("compressed proof must be %d bytes, got %d", ProofSize, len(data))
	}
	copy(cp.A[:], data[:32])
	copy(cp.B[:], data[32:96])
	copy(cp.C[:], data[96:])
	return nil
}

type proofJSON struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c"`
}

// MarshalJSON encodes each component as lowercase hex.
func (cp *CompressedProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(proofJSON{
		A: hex.EncodeToString(cp.A[:]),
		B: hex.EncodeToString(cp.B[:]),
		C: hex.EncodeToString(cp.C[:]),
	})
}

// UnmarshalJSON decodes the hex components.
func (cp *CompressedProof) UnmarshalJSON(data []byte) error {
	var pj proofJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return err
	}
	if err := decodeHexInto(cp.A[:], pj.A, "a"); err != nil {
		return err
	}
	if err := decodeHexInto(cp.B[:], pj.B, "b"); err != nil {
		return err
	}
	return decodeHexInto(cp.C[:], pj.C, "c")
}

func decodeHexInto(dst []byte, s, name string) error {
	b, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	if len(b) != len(dst) {
		return fmt.Errorf("decode %s: got %d bytes, want %d", name, len(b), len(dst))
	}
	copy(dst, b)
	return nil
}
