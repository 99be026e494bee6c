package innocence_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"

	"github.com/tetsuo-ai/privacy-pool/circuits/innocence"
	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
	"github.com/tetsuo-ai/privacy-pool/pkg/setup"
)

func compileAndSetup(t *testing.T) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey) {
	t.Helper()
	ccs, err := setup.CompileCircuit(&innocence.InnocenceCircuit{})
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}
	return ccs, pk, vk
}

func prove(t *testing.T, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, assignment *innocence.InnocenceCircuit) (groth16.Proof, witness.Witness) {
	t.Helper()
	w, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	publicWitness, err := w.Public()
	if err != nil {
		t.Fatalf("extract public witness: %v", err)
	}
	proof, err := groth16.Prove(ccs, pk, w)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	return proof, publicWitness
}

// fourLeafScenario builds the canonical dual-membership setup: four
// deposits, two of which are also in the association set, at different
// indices in each tree.
func fourLeafScenario(t *testing.T) (notes []*note.DepositNote, deposits, association *merkle.Accumulator) {
	t.Helper()

	notes = make([]*note.DepositNote, 4)
	for i := range notes {
		n, err := note.NewNote(uint64(i + 1))
		if err != nil {
			t.Fatalf("new note: %v", err)
		}
		notes[i] = n
	}

	deposits = merkle.NewAccumulator(innocence.TreeDepth)
	for _, n := range notes {
		if _, err := deposits.Append(n.Commitment); err != nil {
			t.Fatalf("append deposit: %v", err)
		}
	}

	// Association set holds notes 2 and 1, in that order, so deposit and
	// association indices differ.
	association = merkle.NewAccumulator(innocence.TreeDepth)
	if _, err := association.Append(notes[2].Commitment); err != nil {
		t.Fatalf("append association leaf: %v", err)
	}
	if _, err := association.Append(notes[1].Commitment); err != nil {
		t.Fatalf("append association leaf: %v", err)
	}
	return notes, deposits, association
}

func TestInnocenceEndToEnd(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)
	notes, deposits, association := fourLeafScenario(t)

	ts := big.NewInt(time.Now().Unix())
	result, err := innocence.PrepareWitness(notes[2], deposits, association, 2, 0, big.NewInt(1), ts)
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}

	proof, publicWitness := prove(t, ccs, pk, &result.Assignment)
	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		t.Fatalf("verify: %v", err)
	}
	t.Log("Innocence proof verified successfully!")

	// The second associated note proves as well, from its own indices.
	result2, err := innocence.PrepareWitness(notes[1], deposits, association, 1, 1, big.NewInt(1), ts)
	if err != nil {
		t.Fatalf("prepare witness for second note: %v", err)
	}
	proof2, publicWitness2 := prove(t, ccs, pk, &result2.Assignment)
	if err := groth16.Verify(proof2, vk, publicWitness2); err != nil {
		t.Fatalf("verify second note: %v", err)
	}
}

func TestInnocenceRejectsNonMember(t *testing.T) {
	notes, deposits, association := fourLeafScenario(t)

	// Note 0 was deposited but never admitted to the association set, so
	// witness preparation cannot find its leaf.
	if _, err := innocence.PrepareWitness(notes[0], deposits, association, 0, 0, big.NewInt(1), big.NewInt(1)); err == nil {
		t.Fatal("prepare witness accepted a non-member of the association set")
	}
}

func TestInnocenceRejectsSwappedRoots(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)
	notes, deposits, association := fourLeafScenario(t)

	result, err := innocence.PrepareWitness(notes[2], deposits, association, 2, 0, big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	proof, _ := prove(t, ccs, pk, &result.Assignment)

	// Swapping the two public roots must not verify: the trees have
	// different shapes, so each path only recombines to its own root.
	pub := result.Publics
	pub.DepositRoot, pub.AssociationRoot = pub.AssociationRoot, pub.DepositRoot

	swapped, err := frontend.NewWitness(innocence.PublicAssignment(pub), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		t.Fatalf("create swapped witness: %v", err)
	}
	if err := groth16.Verify(proof, vk, swapped); err == nil {
		t.Fatal("proof verified with swapped roots")
	}
}

func TestInnocenceRejectsTamperedPublics(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)
	notes, deposits, association := fourLeafScenario(t)

	result, err := innocence.PrepareWitness(notes[1], deposits, association, 1, 1, big.NewInt(3), big.NewInt(1700000000))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	proof, _ := prove(t, ccs, pk, &result.Assignment)

	tampered := []struct {
		name   string
		mutate func(p *innocence.PublicInputs)
	}{
		{"associationId", func(p *innocence.PublicInputs) { p.AssociationID = big.NewInt(4) }},
		{"timestamp", func(p *innocence.PublicInputs) { p.Timestamp = big.NewInt(1700000001) }},
		{"nullifierHash", func(p *innocence.PublicInputs) { p.NullifierHash = new(big.Int).Add(p.NullifierHash, big.NewInt(1)) }},
	}

	for _, tc := range tampered {
		t.Run(tc.name, func(t *testing.T) {
			pub := result.Publics
			tc.mutate(&pub)
			w, err := frontend.NewWitness(innocence.PublicAssignment(pub), ecc.BN254.ScalarField(), frontend.PublicOnly())
			if err != nil {
				t.Fatalf("create tampered witness: %v", err)
			}
			if err := groth16.Verify(proof, vk, w); err == nil {
				t.Fatalf("proof verified against tampered %s", tc.name)
			}
		})
	}
}

func TestInnocenceRejectsForeignCommitmentPath(t *testing.T) {
	ccs, pk, _ := compileAndSetup(t)
	notes, deposits, association := fourLeafScenario(t)

	result, err := innocence.PrepareWitness(notes[2], deposits, association, 2, 0, big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}

	// Graft note 1's association path onto note 2's witness: both paths
	// must prove the SAME commitment, so proving fails.
	other, err := innocence.PrepareWitness(notes[1], deposits, association, 1, 1, big.NewInt(1), big.NewInt(1))
	if err != nil {
		t.Fatalf("prepare witness for other note: %v", err)
	}
	result.Assignment.AssociationPathElements = other.Assignment.AssociationPathElements
	result.Assignment.AssociationPathIndices = other.Assignment.AssociationPathIndices

	w, err := frontend.NewWitness(&result.Assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	if _, err := groth16.Prove(ccs, pk, w); err == nil {
		t.Fatal("proving succeeded with a grafted association path")
	}
}
