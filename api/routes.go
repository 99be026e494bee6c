package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// RootEndpoint returns the current deposit accumulator root
	RootEndpoint = "/root"
	// RootsEndpoint returns the accepted root window, oldest first
	RootsEndpoint = "/roots"
	// StatsEndpoint returns the pool's lifetime counters
	StatsEndpoint = "/stats"
	// DepositsEndpoint accepts a new commitment into the pool
	DepositsEndpoint = "/deposits"
	// WithdrawalsEndpoint accepts a compressed withdrawal proof
	WithdrawalsEndpoint = "/withdrawals"
	// InnocenceEndpoint accepts a compressed innocence proof
	InnocenceEndpoint = "/innocence"
	// MembershipEndpoint returns an association set membership path
	AssociationURLParam = "associationId"
	CommitmentURLParam  = "commitment"
	MembershipEndpoint  = "/associations/{" + AssociationURLParam + "}/membership/{" + CommitmentURLParam + "}"
	// NullifierEndpoint reports whether a nullifier hash is spent
	NullifierURLParam = "nullifierHash"
	NullifierEndpoint = "/nullifiers/{" + NullifierURLParam + "}"
)
