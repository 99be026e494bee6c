package withdraw

import "github.com/tetsuo-ai/privacy-pool/config"

const (
	// TreeDepth fixes the accumulator depth the circuit is compiled for.
	// Proving keys are depth-specific.
	TreeDepth = config.TreeDepth

	// TotalLeaves is the number of leaf slots in the accumulator.
	TotalLeaves = 1 << TreeDepth
)
