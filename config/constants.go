package config

const (
	// TreeDepth is the depth of the deposit and association accumulators in
	// the demo configuration (1024 leaf slots).
	TreeDepth = 10

	// ProductionTreeDepth is the depth used against the production ledger
	// state tree. Circuits are compiled per depth; keys for one depth do not
	// verify proofs for another.
	ProductionTreeDepth = 26

	// RootHistorySize bounds the window of historical accumulator roots a
	// verifier accepts. Proofs built against roots that have fallen out of
	// the window are rejected.
	RootHistorySize = 64
)
