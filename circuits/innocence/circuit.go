// Package innocence implements the compliance circuit: the spent note's
// commitment is a member of both the deposit accumulator and a curated
// association set, without revealing which commitment it is.
package innocence

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
	"github.com/consensys/gnark/std/permutation/poseidon2"

	"github.com/tetsuo-ai/privacy-pool/circuits/merkleproof"
	"github.com/tetsuo-ai/privacy-pool/config"
)

// TreeDepth fixes the depth of both trees the circuit is compiled for.
const TreeDepth = config.TreeDepth

type InnocenceCircuit struct {
	// Publics
	DepositRoot     frontend.Variable `gnark:"depositRoot,public"`
	AssociationRoot frontend.Variable `gnark:"associationRoot,public"`
	NullifierHash   frontend.Variable `gnark:"nullifierHash,public"`
	AssociationID   frontend.Variable `gnark:"associationId,public"`
	Timestamp       frontend.Variable `gnark:"timestamp,public"`

	// Privates
	Nullifier               frontend.Variable            `gnark:"nullifier"`
	Secret                  frontend.Variable            `gnark:"secret"`
	DepositPathElements     [TreeDepth]frontend.Variable `gnark:"depositPathElements"`
	DepositPathIndices      [TreeDepth]frontend.Variable `gnark:"depositPathIndices"`
	AssociationPathElements [TreeDepth]frontend.Variable `gnark:"associationPathElements"`
	AssociationPathIndices  [TreeDepth]frontend.Variable `gnark:"associationPathIndices"`
}

func (circuit *InnocenceCircuit) Define(api frontend.API) error {
	p, err := poseidon2.NewPoseidon2FromParameters(api, 2, 6, 50)
	if err != nil {
		return err
	}

	// 1. Nullifier hash: nullifierHash == H(nullifier).
	nullifierHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	nullifierHasher.Write(circuit.Nullifier)
	api.AssertIsEqual(circuit.NullifierHash, nullifierHasher.Sum())

	// 2. One commitment derivation, shared by both membership proofs. The
	// same (nullifier, secret) feeds both trees, so the statement is about
	// a single deposit.
	commitmentHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	commitmentHasher.Write(circuit.Nullifier, circuit.Secret)
	commitment := commitmentHasher.Sum()

	// 3. Membership in the deposit accumulator.
	depositHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	merkleproof.Verify(api, depositHasher, commitment, circuit.DepositPathElements[:], circuit.DepositPathIndices[:], circuit.DepositRoot)

	// 4. Membership in the association set.
	associationHasher := hash.NewMerkleDamgardHasher(api, p, 0)
	merkleproof.Verify(api, associationHasher, commitment, circuit.AssociationPathElements[:], circuit.AssociationPathIndices[:], circuit.AssociationRoot)

	// 5. Bind the association id and timestamp into the proof.
	api.Mul(circuit.AssociationID, circuit.AssociationID)
	api.Mul(circuit.Timestamp, circuit.Timestamp)

	return nil
}
