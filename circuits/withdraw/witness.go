package withdraw

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark/frontend"

	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
)

// PublicInputs are the withdraw circuit's public signals in constraint
// order.
type PublicInputs struct {
	Root          *big.Int
	NullifierHash *big.Int
	Recipient     *big.Int
	Relayer       *big.Int
	Fee           *big.Int
}

// WitnessResult holds the fully populated circuit assignment plus the
// public inputs callers need for submission or fixture export.
type WitnessResult struct {
	Assignment WithdrawCircuit
	Publics    PublicInputs
}

// PrepareWitness derives a complete circuit assignment for spending a note
// whose commitment occupies leafIndex in the accumulator. The proof is
// built against the accumulator's current root.
func PrepareWitness(n *note.DepositNote, acc *merkle.Accumulator, leafIndex int, recipient, relayer, fee *big.Int) (*WitnessResult, error) {
	if acc.Depth() != TreeDepth {
		return nil, fmt.Errorf("%w: accumulator depth %d, circuit depth %d", merkle.ErrDepthMismatch, acc.Depth(), TreeDepth)
	}
	if acc.Leaf(leafIndex).Cmp(n.Commitment) != 0 {
		return nil, fmt.Errorf("leaf %d does not hold the note commitment", leafIndex)
	}

	path, err := acc.ProveInclusion(leafIndex)
	if err != nil {
		return nil, fmt.Errorf("prove inclusion: %w", err)
	}
	root := acc.Root()

	var assignment WithdrawCircuit
	assignment.Root = root
	assignment.NullifierHash = n.NullifierHash
	assignment.Recipient = recipient
	assignment.Relayer = relayer
	assignment.Fee = fee
	assignment.Nullifier = n.Nullifier
	assignment.Secret = n.Secret

	var pathElements, pathIndices [TreeDepth]frontend.Variable
	for i := 0; i < TreeDepth; i++ {
		pathElements[i] = path.Siblings[i]
		pathIndices[i] = path.Directions[i]
	}
	assignment.PathElements = pathElements
	assignment.PathIndices = pathIndices

	return &WitnessResult{
		Assignment: assignment,
		Publics: PublicInputs{
			Root:          root,
			NullifierHash: n.NullifierHash,
			Recipient:     recipient,
			Relayer:       relayer,
			Fee:           fee,
		},
	}, nil
}

// PublicAssignment builds a public-only circuit assignment for verifying a
// submitted proof.
func PublicAssignment(pub PublicInputs) *WithdrawCircuit {
	return &WithdrawCircuit{
		Root:          pub.Root,
		NullifierHash: pub.NullifierHash,
		Recipient:     pub.Recipient,
		Relayer:       pub.Relayer,
		Fee:           pub.Fee,
	}
}
