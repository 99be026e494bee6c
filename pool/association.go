package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/tetsuo-ai/privacy-pool/pkg/field"
	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
)

var (
	// ErrUnknownAssociation indicates a reference to an association set id
	// that was never registered.
	ErrUnknownAssociation = errors.New("unknown association set")

	// ErrDeniedByProvider indicates the set's compliance provider rejected
	// the deposit.
	ErrDeniedByProvider = errors.New("denied by compliance provider")
)

// AssociationSet is a curated subset of pool deposits with its own
// accumulator. Membership is decided by the set's provider; the set id,
// not the member list, is what innocence proofs reveal.
type AssociationSet struct {
	ID       uint8
	Name     string
	Provider Provider

	acc     *merkle.Accumulator
	members map[[32]byte]int // commitment -> leaf index
}

func newAssociationSet(id uint8, name string, depth int, provider Provider) *AssociationSet {
	return &AssociationSet{
		ID:       id,
		Name:     name,
		Provider: provider,
		acc:      merkle.NewAccumulator(depth),
		members:  make(map[[32]byte]int),
	}
}

// Root returns the set accumulator's current root.
func (s *AssociationSet) Root() *big.Int { return s.acc.Root() }

// Size returns the number of admitted commitments.
func (s *AssociationSet) Size() int { return s.acc.Size() }

// admit appends a commitment the provider has already approved.
func (s *AssociationSet) admit(commitment *big.Int) (int, error) {
	key, err := field.ToBytes32(commitment)
	if err != nil {
		return 0, err
	}
	if idx, ok := s.members[key]; ok {
		return idx, nil // already admitted, idempotent
	}
	idx, err := s.acc.Append(commitment)
	if err != nil {
		return 0, fmt.Errorf("append to association set %d: %w", s.ID, err)
	}
	s.members[key] = idx
	return idx, nil
}

// memberIndex returns the leaf index of a commitment, or false.
func (s *AssociationSet) memberIndex(commitment *big.Int) (int, bool) {
	key, err := field.ToBytes32(commitment)
	if err != nil {
		return 0, false
	}
	idx, ok := s.members[key]
	return idx, ok
}

// verify runs the provider against the depositor address.
func (s *AssociationSet) verify(ctx context.Context, address string, commitment *big.Int) error {
	decision, err := s.Provider.Verify(ctx, address, commitment)
	if err != nil {
		return fmt.Errorf("provider for set %d: %w", s.ID, err)
	}
	if decision != Allow {
		return fmt.Errorf("%w: set %d", ErrDeniedByProvider, s.ID)
	}
	return nil
}
