// Package merkleproof provides the in-circuit Merkle path verification
// shared by the withdraw and innocence circuits.
package merkleproof

import (
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash"
)

// Verify walks a fixed-depth authentication path from leaf to root and
// asserts the recomputed root equals root.
//
// Convention: directions[i] == 0 → current node is the LEFT child (sibling
// on the right), directions[i] == 1 → current node is the RIGHT child
// (sibling on the left). Every direction is constrained to be boolean. The
// accumulator always emits full-depth paths (empty positions carry
// zero-subtree hashes), so every level hashes — there is no padding
// short-circuit.
func Verify(api frontend.API, hasher hash.FieldHasher, leaf frontend.Variable, siblings, directions []frontend.Variable, root frontend.Variable) {
	currentHash := leaf

	for i := 0; i < len(siblings); i++ {
		sibling := siblings[i]
		direction := directions[i]

		api.AssertIsBoolean(direction)

		hasher.Reset()
		leftHash := api.Select(direction, sibling, currentHash)
		rightHash := api.Select(direction, currentHash, sibling)
		hasher.Write(leftHash, rightHash)
		currentHash = hasher.Sum()
	}

	api.AssertIsEqual(currentHash, root)
}
