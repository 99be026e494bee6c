package proofcodec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/consensys/gnark/backend/groth16"
	groth16bn254 "github.com/consensys/gnark/backend/groth16/bn254"
)

// ArtifactVersion is the current verification-key artifact format version.
// The external verifier pins this; a mismatch is fatal at load time.
const ArtifactVersion uint32 = 1

// ErrArtifactVersion indicates an artifact written by an incompatible
// format version.
var ErrArtifactVersion = errors.New("verification key artifact version mismatch")

// VerifyingKeyArtifact is the compressed export of a Groth16 verifying key
// for the external verifier: the four pairing points plus one IC point per
// public input slot (element 0 is the constant term).
type VerifyingKeyArtifact struct {
	Version   uint32
	CircuitID string

	AlphaG1 [G1CompressedSize]byte
	BetaG2  [G2CompressedSize]byte
	GammaG2 [G2CompressedSize]byte
	DeltaG2 [G2CompressedSize]byte
	IC      [][G1CompressedSize]byte
}

// ExportVerifyingKey compresses a BN254 Groth16 verifying key into an
// artifact tagged with circuitID.
func ExportVerifyingKey(vk groth16.VerifyingKey, circuitID string) (*VerifyingKeyArtifact, error) {
	k, ok := vk.(*groth16bn254.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("%w: not a bn254 verifying key", ErrUnsupportedProof)
	}

	art := &VerifyingKeyArtifact{Version: ArtifactVersion, CircuitID: circuitID}

	var err error
	if art.AlphaG1, err = CompressG1(&k.G1.Alpha); err != nil {
		return nil, fmt.Errorf("compress alpha: %w", err)
	}
	if art.BetaG2, err = CompressG2(&k.G2.Beta); err != nil {
		return nil, fmt.Errorf("compress beta: %w", err)
	}
	if art.GammaG2, err = CompressG2(&k.G2.Gamma); err != nil {
		return nil, fmt.Errorf("compress gamma: %w", err)
	}
	if art.DeltaG2, err = CompressG2(&k.G2.Delta); err != nil {
		return nil, fmt.Errorf("compress delta: %w", err)
	}

	art.IC = make([][G1CompressedSize]byte, len(k.G1.K))
	for i := range k.G1.K {
		if art.IC[i], err = CompressG1(&k.G1.K[i]); err != nil {
			return nil, fmt.Errorf("compress ic[%d]: %w", i, err)
		}
	}
	return art, nil
}

// NumPublicInputs returns the number of public input slots the key commits
// to, excluding the constant term.
func (a *VerifyingKeyArtifact) NumPublicInputs() int {
	if len(a.IC) == 0 {
		return 0
	}
	return len(a.IC) - 1
}

// WriteTo writes the artifact in a deterministic binary format:
//
//	uint32(version) | uint16(len(circuitID)) | circuitID |
//	alpha(32) | beta(64) | gamma(64) | delta(64) |
//	uint32(len(IC)) | IC entries (32 each)
func (a *VerifyingKeyArtifact) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}

	if err := binary.Write(cw, binary.BigEndian, a.Version); err != nil {
		return cw.n, fmt.Errorf("write version: %w", err)
	}
	if len(a.CircuitID) > 0xffff {
		return cw.n, fmt.Errorf("circuit id too long: %d bytes", len(a.CircuitID))
	}
	if err := binary.Write(cw, binary.BigEndian, uint16(len(a.CircuitID))); err != nil {
		return cw.n, fmt.Errorf("write circuit id length: %w", err)
	}
	if _, err := cw.Write([]byte(a.CircuitID)); err != nil {
		return cw.n, fmt.Errorf("write circuit id: %w", err)
	}

	for _, b := range [][]byte{a.AlphaG1[:], a.BetaG2[:], a.GammaG2[:], a.DeltaG2[:]} {
		if _, err := cw.Write(b); err != nil {
			return cw.n, fmt.Errorf("write pairing point: %w", err)
		}
	}

	if err := binary.Write(cw, binary.BigEndian, uint32(len(a.IC))); err != nil {
		return cw.n, fmt.Errorf("write ic count: %w", err)
	}
	for i := range a.IC {
		if _, err := cw.Write(a.IC[i][:]); err != nil {
			return cw.n, fmt.Errorf("write ic[%d]: %w", i, err)
		}
	}
	return cw.n, nil
}

// ReadFrom reads an artifact written by WriteTo, rejecting unknown format
// versions.
func (a *VerifyingKeyArtifact) ReadFrom(r io.Reader) (int64, error) {
	cr := &countingReader{r: r}

	if err := binary.Read(cr, binary.BigEndian, &a.Version); err != nil {
		return cr.n, fmt.Errorf("read version: %w", err)
	}
	if a.Version != ArtifactVersion {
		return cr.n, fmt.Errorf("%w: got %d, want %d", ErrArtifactVersion, a.Version, ArtifactVersion)
	}

	var idLen uint16
	if err := binary.Read(cr, binary.BigEndian, &idLen); err != nil {
		return cr.n, fmt.Errorf("read circuit id length: %w", err)
	}
	idBuf := make([]byte, idLen)
	if _, err := io.ReadFull(cr, idBuf); err != nil {
		return cr.n, fmt.Errorf("read circuit id: %w", err)
	}
	a.CircuitID = string(idBuf)

	for _, b := range [][]byte{a.AlphaG1[:], a.BetaG2[:], a.GammaG2[:], a.DeltaG2[:]} {
		if _, err := io.ReadFull(cr, b); err != nil {
			return cr.n, fmt.Errorf("read pairing point: %w", err)
		}
	}

	var icCount uint32
	if err := binary.Read(cr, binary.BigEndian, &icCount); err != nil {
		return cr.n, fmt.Errorf("read ic count: %w", err)
	}
	a.IC = make([][G1CompressedSize]byte, icCount)
	for i := range a.IC {
		if _, err := io.ReadFull(cr, a.IC[i][:]); err != nil {
			return cr.n, fmt.Errorf("read ic[%d]: %w", i, err)
		}
	}
	return cr.n, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	cr.n += int64(n)
	return n, err
}
