// Package pool coordinates the shielded pool: the deposit accumulator, the
// nullifier registry, association sets, and the prove/verify flows for
// withdrawals and innocence attestations.
//
// Concurrency model: a single mutex serializes all accumulator and
// association mutations, so every deposit observes a consistent root.
// Proof generation runs outside the lock, one prover instance per request.
// The nullifier registry carries its own lock and stays linearizable
// independently of pool state.
package pool

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"

	"github.com/tetsuo-ai/privacy-pool/circuits/innocence"
	"github.com/tetsuo-ai/privacy-pool/circuits/withdraw"
	"github.com/tetsuo-ai/privacy-pool/config"
	"github.com/tetsuo-ai/privacy-pool/pkg/field"
	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
	"github.com/tetsuo-ai/privacy-pool/pkg/proofcodec"
	"github.com/tetsuo-ai/privacy-pool/pkg/registry"
	"github.com/tetsuo-ai/privacy-pool/pkg/setup"
)

var (
	// ErrProofInvalid indicates a proof that failed the pairing check or
	// could not be reconstructed from the wire format.
	ErrProofInvalid = errors.New("proof invalid")

	// ErrCommitmentNotFound indicates a commitment with no leaf in the
	// queried tree.
	ErrCommitmentNotFound = errors.New("commitment not found")

	// ErrDuplicateCommitment indicates a deposit of a commitment that is
	// already in the accumulator.
	ErrDuplicateCommitment = errors.New("commitment already deposited")

	// ErrUnknownRoot indicates a proof built against a root outside the
	// accepted window.
	ErrUnknownRoot = errors.New("root not in accepted window")
)

// CircuitKeys bundles a compiled circuit with its Groth16 key pair.
type CircuitKeys struct {
	CCS constraint.ConstraintSystem
	PK  groth16.ProvingKey
	VK  groth16.VerifyingKey
}

// DepositRecord is the public metadata of one accepted deposit.
type DepositRecord struct {
	Commitment *big.Int
	LeafIndex  int
	Amount     uint64
	Timestamp  int64
}

// InnocenceRecord is one accepted innocence attestation.
type InnocenceRecord struct {
	NullifierHash *big.Int
	AssociationID uint8
	Timestamp     int64
	ProvenAt      int64
}

// Stats are the pool's lifetime counters.
type Stats struct {
	Deposits        uint64
	Withdrawals     uint64
	InnocenceProofs uint64
}

// WithdrawalReceipt is the output of a proven withdrawal: the wire proof
// and its public signals.
type WithdrawalReceipt struct {
	Proof   *proofcodec.CompressedProof
	Publics withdraw.PublicInputs
}

// InnocenceReceipt is the output of a proven innocence attestation.
type InnocenceReceipt struct {
	Proof   *proofcodec.CompressedProof
	Publics innocence.PublicInputs
}

// Pool owns the protocol state.
type Pool struct {
	log zerolog.Logger

	withdrawKeys  CircuitKeys
	innocenceKeys CircuitKeys

	mu           sync.Mutex
	acc          *merkle.Accumulator
	roots        *merkle.RootHistory
	deposits     map[[32]byte]DepositRecord
	associations map[uint8]*AssociationSet
	attestations map[[32]byte]InnocenceRecord
	stats        Stats

	nullifiers *registry.Registry
}

// New creates a pool from pre-built circuit keys. Both circuits must have
// been compiled at config.TreeDepth.
func New(log zerolog.Logger, withdrawKeys, innocenceKeys CircuitKeys) *Pool {
	return &Pool{
		log:           log,
		withdrawKeys:  withdrawKeys,
		innocenceKeys: innocenceKeys,
		acc:           merkle.NewAccumulator(config.TreeDepth),
		roots:         merkle.NewRootHistory(config.RootHistorySize),
		deposits:      make(map[[32]byte]DepositRecord),
		associations:  make(map[uint8]*AssociationSet),
		attestations:  make(map[[32]byte]InnocenceRecord),
		nullifiers:    registry.New(),
	}
}

// NewDev compiles both circuits and runs single-party setups. Development
// and tests only.
func NewDev(log zerolog.Logger) (*Pool, error) {
	wk, err := devKeys(&withdraw.WithdrawCircuit{})
	if err != nil {
		return nil, fmt.Errorf("withdraw circuit: %w", err)
	}
	ik, err := devKeys(&innocence.InnocenceCircuit{})
	if err != nil {
		return nil, fmt.Errorf("innocence circuit: %w", err)
	}
	return New(log, wk, ik), nil
}

func devKeys(circuit frontend.Circuit) (CircuitKeys, error) {
	ccs, err := setup.CompileCircuit(circuit)
	if err != nil {
		return CircuitKeys{}, err
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return CircuitKeys{}, fmt.Errorf("groth16 setup: %w", err)
	}
	return CircuitKeys{CCS: ccs, PK: pk, VK: vk}, nil
}

// ─── Deposits ───────────────────────────────────────────────────────────────

// Deposit validates and appends a commitment, returning its leaf index and
// the resulting root.
func (p *Pool) Deposit(commitment *big.Int, amount uint64) (int, *big.Int, error) {
	key, err := field.ToBytes32(commitment)
	if err != nil {
		return 0, nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.deposits[key]; ok {
		return 0, nil, ErrDuplicateCommitment
	}

	idx, err := p.acc.Append(commitment)
	if err != nil {
		return 0, nil, fmt.Errorf("append commitment: %w", err)
	}
	root := p.acc.Root()
	p.roots.Record(root)
	p.deposits[key] = DepositRecord{
		Commitment: new(big.Int).Set(commitment),
		LeafIndex:  idx,
		Amount:     amount,
		Timestamp:  time.Now().Unix(),
	}
	p.stats.Deposits++

	p.log.Info().Int("leaf", idx).Uint64("amount", amount).
		Str("root", fmt.Sprintf("0x%064x", root)).Msg("deposit accepted")
	return idx, root, nil
}

// Root returns the current accumulator root.
func (p *Pool) Root() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.acc.Root()
}

// Roots returns the accepted root window, oldest first.
func (p *Pool) Roots() []*big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.roots.Roots()
}

// Stats returns the lifetime counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// depositRecord looks up the record for a commitment.
func (p *Pool) depositRecord(commitment *big.Int) (DepositRecord, error) {
	key, err := field.ToBytes32(commitment)
	if err != nil {
		return DepositRecord{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.deposits[key]
	if !ok {
		return DepositRecord{}, ErrCommitmentNotFound
	}
	return rec, nil
}

// ─── Withdrawals ────────────────────────────────────────────────────────────

// Withdraw proves a spend of the note against the current root, registers
// the nullifier, and returns the compressed proof with its public signals.
// The nullifier registration happens only after the proof verifies locally,
// and a spent nullifier aborts before any proving work.
func (p *Pool) Withdraw(n *note.DepositNote, recipient, relayer, fee *big.Int) (*WithdrawalReceipt, error) {
	if p.nullifiers.Has(n.NullifierHash) {
		return nil, registry.ErrNullifierSpent
	}

	rec, err := p.depositRecord(n.Commitment)
	if err != nil {
		return nil, err
	}

	// Witness preparation reads the tree under the lock; proving runs
	// outside it.
	p.mu.Lock()
	result, err := withdraw.PrepareWitness(n, p.acc, rec.LeafIndex, recipient, relayer, fee)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("prepare withdraw witness: %w", err)
	}

	compressed, err := p.proveAndCompress(p.withdrawKeys, &result.Assignment)
	if err != nil {
		return nil, err
	}

	if err := p.nullifiers.TryRegister(n.NullifierHash); err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.stats.Withdrawals++
	p.mu.Unlock()

	p.log.Info().Str("nullifierHash", fmt.Sprintf("0x%064x", n.NullifierHash)).
		Str("recipient", fmt.Sprintf("0x%x", recipient)).Msg("withdrawal proven")
	return &WithdrawalReceipt{Proof: compressed, Publics: result.Publics}, nil
}

// SubmitWithdrawal is the verifier-side path: it checks the root window,
// reconstructs and verifies the proof, then registers the nullifier.
func (p *Pool) SubmitWithdrawal(cp *proofcodec.CompressedProof, pub withdraw.PublicInputs) error {
	p.mu.Lock()
	known := p.roots.Contains(pub.Root)
	p.mu.Unlock()
	if !known {
		return ErrUnknownRoot
	}

	if err := p.verifyCompressed(p.withdrawKeys, cp, withdraw.PublicAssignment(pub)); err != nil {
		return err
	}

	if err := p.nullifiers.TryRegister(pub.NullifierHash); err != nil {
		return err
	}

	p.mu.Lock()
	p.stats.Withdrawals++
	p.mu.Unlock()

	p.log.Info().Str("nullifierHash", fmt.Sprintf("0x%064x", pub.NullifierHash)).
		Msg("withdrawal accepted")
	return nil
}

// NullifierSpent reports whether the nullifier hash has been registered.
func (p *Pool) NullifierSpent(nullifierHash *big.Int) bool {
	return p.nullifiers.Has(nullifierHash)
}

// ─── Association sets & innocence ───────────────────────────────────────────

// RegisterAssociation creates an association set with the given provider.
func (p *Pool) RegisterAssociation(id uint8, name string, provider Provider) (*AssociationSet, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.associations[id]; ok {
		return nil, fmt.Errorf("association set %d already registered", id)
	}
	set := newAssociationSet(id, name, config.TreeDepth, provider)
	p.associations[id] = set
	p.log.Info().Uint8("set", id).Str("name", name).Msg("association set registered")
	return set, nil
}

// Approve runs the set's compliance provider for a deposited commitment
// and, on approval, admits it into the set's accumulator.
func (p *Pool) Approve(ctx context.Context, setID uint8, address string, commitment *big.Int) error {
	if _, err := p.depositRecord(commitment); err != nil {
		return err
	}

	p.mu.Lock()
	set, ok := p.associations[setID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAssociation, setID)
	}

	// The provider may call out; keep it outside the pool lock.
	if err := set.verify(ctx, address, commitment); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	idx, err := set.admit(commitment)
	if err != nil {
		return err
	}
	p.log.Info().Uint8("set", setID).Int("leaf", idx).Msg("commitment admitted to association set")
	return nil
}

// MembershipProof returns the association set root and the commitment's
// authentication path inside the set.
func (p *Pool) MembershipProof(setID uint8, commitment *big.Int) (*big.Int, *merkle.Path, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.associations[setID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownAssociation, setID)
	}
	idx, ok := set.memberIndex(commitment)
	if !ok {
		return nil, nil, ErrCommitmentNotFound
	}
	path, err := set.acc.ProveInclusion(idx)
	if err != nil {
		return nil, nil, err
	}
	return set.Root(), path, nil
}

// AssociationRoot returns the current root of an association set.
func (p *Pool) AssociationRoot(setID uint8) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.associations[setID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAssociation, setID)
	}
	return set.Root(), nil
}

// ProveInnocence proves dual membership of the note's commitment (deposit
// accumulator + association set) and records the attestation.
func (p *Pool) ProveInnocence(n *note.DepositNote, setID uint8) (*InnocenceReceipt, error) {
	rec, err := p.depositRecord(n.Commitment)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	set, ok := p.associations[setID]
	if !ok {
		p.mu.Unlock()
		return nil, fmt.Errorf("%w: %d", ErrUnknownAssociation, setID)
	}
	assocIdx, member := set.memberIndex(n.Commitment)
	if !member {
		p.mu.Unlock()
		return nil, ErrCommitmentNotFound
	}

	ts := big.NewInt(time.Now().Unix())
	result, err := innocence.PrepareWitness(n, p.acc, set.acc, rec.LeafIndex, assocIdx, big.NewInt(int64(setID)), ts)
	p.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("prepare innocence witness: %w", err)
	}

	compressed, err := p.proveAndCompress(p.innocenceKeys, &result.Assignment)
	if err != nil {
		return nil, err
	}

	p.recordAttestation(result.Publics)
	p.log.Info().Uint8("set", setID).
		Str("nullifierHash", fmt.Sprintf("0x%064x", n.NullifierHash)).Msg("innocence proven")
	return &InnocenceReceipt{Proof: compressed, Publics: result.Publics}, nil
}

// SubmitInnocence verifies an externally produced innocence proof and
// records the attestation.
func (p *Pool) SubmitInnocence(cp *proofcodec.CompressedProof, pub innocence.PublicInputs) error {
	p.mu.Lock()
	known := p.roots.Contains(pub.DepositRoot)
	set, ok := p.associations[uint8(pub.AssociationID.Uint64())]
	rootMatches := ok && set.Root().Cmp(pub.AssociationRoot) == 0
	p.mu.Unlock()

	if !known {
		return ErrUnknownRoot
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownAssociation, uint8(pub.AssociationID.Uint64()))
	}
	if !rootMatches {
		return fmt.Errorf("%w: association root mismatch", ErrUnknownRoot)
	}

	if err := p.verifyCompressed(p.innocenceKeys, cp, innocence.PublicAssignment(pub)); err != nil {
		return err
	}

	p.recordAttestation(pub)
	p.log.Info().Str("nullifierHash", fmt.Sprintf("0x%064x", pub.NullifierHash)).
		Msg("innocence attestation accepted")
	return nil
}

// Attestation returns the recorded innocence attestation for a nullifier
// hash, if any.
func (p *Pool) Attestation(nullifierHash *big.Int) (InnocenceRecord, bool) {
	key, err := field.ToBytes32(nullifierHash)
	if err != nil {
		return InnocenceRecord{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	rec, ok := p.attestations[key]
	return rec, ok
}

func (p *Pool) recordAttestation(pub innocence.PublicInputs) {
	key, err := field.ToBytes32(pub.NullifierHash)
	if err != nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attestations[key] = InnocenceRecord{
		NullifierHash: new(big.Int).Set(pub.NullifierHash),
		AssociationID: uint8(pub.AssociationID.Uint64()),
		Timestamp:     pub.Timestamp.Int64(),
		ProvenAt:      time.Now().Unix(),
	}
	p.stats.InnocenceProofs++
}

// ─── Proving / verification plumbing ────────────────────────────────────────

func (p *Pool) proveAndCompress(keys CircuitKeys, assignment frontend.Circuit) (*proofcodec.CompressedProof, error) {
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}
	publicWitness, err := witness.Public()
	if err != nil {
		return nil, fmt.Errorf("extract public witness: %w", err)
	}

	proof, err := groth16.Prove(keys.CCS, keys.PK, witness)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}
	if err := groth16.Verify(proof, keys.VK, publicWitness); err != nil {
		return nil, fmt.Errorf("%w: local verification failed: %v", ErrProofInvalid, err)
	}

	compressed, err := proofcodec.Compress(proof)
	if err != nil {
		return nil, fmt.Errorf("compress proof: %w", err)
	}
	return compressed, nil
}

func (p *Pool) verifyCompressed(keys CircuitKeys, cp *proofcodec.CompressedProof, publicAssignment frontend.Circuit) error {
	proof, err := cp.Decompress()
	if err != nil {
		if errors.Is(err, field.ErrInvalidFieldElement) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}

	publicWitness, err := frontend.NewWitness(publicAssignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("create public witness: %w", err)
	}

	if err := groth16.Verify(proof, keys.VK, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofInvalid, err)
	}
	return nil
}

// ─── Persistence ────────────────────────────────────────────────────────────

// SaveState writes the accumulator and nullifier registry snapshots to dir.
func (p *Pool) SaveState(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	treeFile, err := os.Create(filepath.Join(dir, "pool_tree.bin"))
	if err != nil {
		return fmt.Errorf("create tree snapshot: %w", err)
	}
	if err := p.acc.Save(treeFile); err != nil {
		treeFile.Close()
		return fmt.Errorf("save tree: %w", err)
	}
	treeFile.Close()

	regFile, err := os.Create(filepath.Join(dir, "pool_nullifiers.bin"))
	if err != nil {
		return fmt.Errorf("create nullifier snapshot: %w", err)
	}
	if err := p.nullifiers.Save(regFile); err != nil {
		regFile.Close()
		return fmt.Errorf("save nullifiers: %w", err)
	}
	return regFile.Close()
}
