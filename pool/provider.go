package pool

import (
	"context"
	"math/big"
)

// Decision is a compliance provider's verdict on a deposit.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// Provider decides whether a depositor address and its commitment may be
// admitted to an association set. Implementations are expected to call out
// to screening services; failures are surfaced, not treated as denials.
type Provider interface {
	Verify(ctx context.Context, address string, commitment *big.Int) (Decision, error)
}

// StaticProvider admits exactly the addresses in its allowlist. Used for
// tests and the demo daemon.
type StaticProvider struct {
	Allowed map[string]bool
}

func (p *StaticProvider) Verify(_ context.Context, address string, _ *big.Int) (Decision, error) {
	if p.Allowed[address] {
		return Allow, nil
	}
	return Deny, nil
}

// AllowAllProvider admits every deposit.
type AllowAllProvider struct{}

func (AllowAllProvider) Verify(context.Context, string, *big.Int) (Decision, error) {
	return Allow, nil
}
