// Package withdraw implements the spend circuit: knowledge of a deposit
// note whose commitment sits in the accumulator, bound to a recipient,
// relayer, and fee.
package withdraw

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"

	"github.com/tetsuo-ai/privacy-pool/circuits/merkleproof"
)

type WithdrawCircuit struct {
	// Publics
	Root          frontend.Variable `gnark:"root,public"`
	NullifierHash frontend.Variable `gnark:"nullifierHash,public"`
	Recipient     frontend.Variable `gnark:"recipient,public"`
	Relayer       frontend.Variable `gnark:"relayer,public"`
	Fee           frontend.Variable `gnark:"fee,public"`

	// Privates
	Nullifier    frontend.Variable            `gnark:"nullifier"`
	Secret       frontend.Variable            `gnark:"secret"`
	PathElements [TreeDepth]frontend.Variable `gnark:"pathElements"`
	PathIndices  [TreeDepth]frontend.Variable `gnark:"pathIndices"`
}

func (circuit *WithdrawCircuit) Define(api frontend.API) error {
	p, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}

	// 1. Nullifier hash: nullifierHash == H(nullifier).
	nullifierHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	nullifierHasher.Write(circuit.Nullifier)
	api.AssertIsEqual(circuit.NullifierHash, nullifierHasher.Sum())

	// 2. Commitment: H(nullifier, secret).
	commitmentHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	commitmentHasher.Write(circuit.Nullifier, circuit.Secret)
	commitment := commitmentHasher.Sum()

	// 3. Accumulator membership of the commitment under the public root.
	pathHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	merkleproof.Verify(api, pathHasher, commitment, circuit.PathElements[:], circuit.PathIndices[:], circuit.Root)

	// 4. Bind recipient, relayer, and fee into the proof. The squares are
	// never used; they exist so a tampered public signal invalidates the
	// proof rather than leaving the signal floating.
	api.Mul(circuit.Recipient, circuit.Recipient)
	api.Mul(circuit.Relayer, circuit.Relayer)
	api.Mul(circuit.Fee, circuit.Fee)

	return nil
}
