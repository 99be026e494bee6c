package innocence

import (
	"fmt"
	"math/big"

	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
)

// PublicInputs are the innocence circuit's public signals in constraint
// order.
type PublicInputs struct {
	DepositRoot     *big.Int
	AssociationRoot *big.Int
	NullifierHash   *big.Int
	AssociationID   *big.Int
	Timestamp       *big.Int
}

// WitnessResult holds the populated assignment plus the public inputs.
type WitnessResult struct {
	Assignment InnocenceCircuit
	Publics    PublicInputs
}

// PrepareWitness derives a complete assignment proving that the note's
// commitment sits at depositIndex in the deposit accumulator and at
// associationIndex in the association set. Both trees must have the
// circuit's depth.
func PrepareWitness(n *note.DepositNote, deposits, association *merkle.Accumulator, depositIndex, associationIndex int, associationID *big.Int, timestamp *big.Int) (*WitnessResult, error) {
	if deposits.Depth() != TreeDepth {
		return nil, fmt.Errorf("%w: deposit accumulator depth %d, circuit depth %d", merkle.ErrDepthMismatch, deposits.Depth(), TreeDepth)
	}
	if association.Depth() != TreeDepth {
		return nil, fmt.Errorf("%w: association set depth %d, circuit depth %d", merkle.ErrDepthMismatch, association.Depth(), TreeDepth)
	}
	if deposits.Leaf(depositIndex).Cmp(n.Commitment) != 0 {
		return nil, fmt.Errorf("deposit leaf %d does not hold the note commitment", depositIndex)
	}
	if association.Leaf(associationIndex).Cmp(n.Commitment) != 0 {
		return nil, fmt.Errorf("association leaf %d does not hold the note commitment", associationIndex)
	}

	depositPath, err := deposits.ProveInclusion(depositIndex)
	if err != nil {
		return nil, fmt.Errorf("prove deposit inclusion: %w", err)
	}
	associationPath, err := association.ProveInclusion(associationIndex)
	if err != nil {
		return nil, fmt.Errorf("prove association inclusion: %w", err)
	}

	var assignment InnocenceCircuit
	assignment.DepositRoot = deposits.Root()
	assignment.AssociationRoot = association.Root()
	assignment.NullifierHash = n.NullifierHash
	assignment.AssociationID = associationID
	assignment.Timestamp = timestamp
	assignment.Nullifier = n.Nullifier
	assignment.Secret = n.Secret

	for i := 0; i < TreeDepth; i++ {
		assignment.DepositPathElements[i] = depositPath.Siblings[i]
		assignment.DepositPathIndices[i] = depositPath.Directions[i]
		assignment.AssociationPathElements[i] = associationPath.Siblings[i]
		assignment.AssociationPathIndices[i] = associationPath.Directions[i]
	}

	return &WitnessResult{
		Assignment: assignment,
		Publics: PublicInputs{
			DepositRoot:     deposits.Root(),
			AssociationRoot: association.Root(),
			NullifierHash:   n.NullifierHash,
			AssociationID:   associationID,
			Timestamp:       timestamp,
		},
	}, nil
}

// PublicAssignment builds a public-only assignment for verifying a
// submitted proof.
func PublicAssignment(pub PublicInputs) *InnocenceCircuit {
	return &InnocenceCircuit{
		DepositRoot:     pub.DepositRoot,
		AssociationRoot: pub.AssociationRoot,
		NullifierHash:   pub.NullifierHash,
		AssociationID:   pub.AssociationID,
		Timestamp:       pub.Timestamp,
	}
}
