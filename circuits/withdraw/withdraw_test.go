package withdraw_test

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/backend/witness"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"

	"github.com/tetsuo-ai/privacy-pool/circuits/withdraw"
	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
	"github.com/tetsuo-ai/privacy-pool/pkg/proofcodec"
	"github.com/tetsuo-ai/privacy-pool/pkg/setup"
)

// compileAndSetup compiles the withdraw circuit and runs a dev setup once
// per test that needs it.
func compileAndSetup(t *testing.T) (constraint.ConstraintSystem, groth16.ProvingKey, groth16.VerifyingKey) {
	t.Helper()
	ccs, err := setup.CompileCircuit(&withdraw.WithdrawCircuit{})
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}
	return ccs, pk, vk
}

// depositNote appends a fresh note's commitment to the accumulator and
// returns the note and its leaf index.
func depositNote(t *testing.T, acc *merkle.Accumulator) (*note.DepositNote, int) {
	t.Helper()
	n, err := note.NewNote(1_000_000)
	if err != nil {
		t.Fatalf("new note: %v", err)
	}
	idx, err := acc.Append(n.Commitment)
	if err != nil {
		t.Fatalf("append commitment: %v", err)
	}
	return n, idx
}

// prove generates a proof for the assignment and returns it with the public
// witness.
func prove(t *testing.T, ccs constraint.ConstraintSystem, pk groth16.ProvingKey, assignment *withdraw.WithdrawCircuit) (groth16.Proof, witness.Witness) {
	t.Helper()
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	publicWitness, err := witness.Public()
	if err != nil {
		t.Fatalf("extract public witness: %v", err)
	}
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		t.Fatalf("prove: %v", err)
	}
	return proof, publicWitness
}

func TestWithdrawEndToEnd(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)

	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	for i := 0; i < 5; i++ {
		depositNote(t, acc)
	}
	n, idx := depositNote(t, acc)
	t.Logf("Commitment at index %d, root 0x%x", idx, acc.Root())

	result, err := withdraw.PrepareWitness(n, acc, idx, big.NewInt(0xBEEF), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}

	proof, publicWitness := prove(t, ccs, pk, &result.Assignment)
	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		t.Fatalf("verify: %v", err)
	}
	t.Log("Withdraw proof verified successfully!")
}

func TestWithdrawEveryLeafIndexParity(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)

	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	notes := make([]*note.DepositNote, 4)
	indices := make([]int, 4)
	for i := range notes {
		notes[i], indices[i] = depositNote(t, acc)
	}

	// Spending leaves at even and odd indices exercises both direction
	// branches at the first level.
	for i, n := range notes {
		result, err := withdraw.PrepareWitness(n, acc, indices[i], big.NewInt(1), big.NewInt(2), big.NewInt(3))
		if err != nil {
			t.Fatalf("prepare witness %d: %v", i, err)
		}
		proof, publicWitness := prove(t, ccs, pk, &result.Assignment)
		if err := groth16.Verify(proof, vk, publicWitness); err != nil {
			t.Fatalf("verify leaf %d: %v", indices[i], err)
		}
	}
}

func TestWithdrawRejectsTamperedPublics(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)

	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	n, idx := depositNote(t, acc)

	result, err := withdraw.PrepareWitness(n, acc, idx, big.NewInt(0xBEEF), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	proof, _ := prove(t, ccs, pk, &result.Assignment)

	tampered := []struct {
		name   string
		mutate func(p *withdraw.PublicInputs)
	}{
		{"root", func(p *withdraw.PublicInputs) { p.Root = new(big.Int).Add(p.Root, big.NewInt(1)) }},
		{"nullifierHash", func(p *withdraw.PublicInputs) { p.NullifierHash = new(big.Int).Add(p.NullifierHash, big.NewInt(1)) }},
		{"recipient", func(p *withdraw.PublicInputs) { p.Recipient = big.NewInt(0xDEAD) }},
		{"relayer", func(p *withdraw.PublicInputs) { p.Relayer = big.NewInt(7) }},
		{"fee", func(p *withdraw.PublicInputs) { p.Fee = big.NewInt(99) }},
	}

	for _, tc := range tampered {
		t.Run(tc.name, func(t *testing.T) {
			pub := result.Publics
			tc.mutate(&pub)

			tamperedWitness, err := frontend.NewWitness(withdraw.PublicAssignment(pub), ecc.BN254.ScalarField(), frontend.PublicOnly())
			if err != nil {
				t.Fatalf("create tampered witness: %v", err)
			}
			if err := groth16.Verify(proof, vk, tamperedWitness); err == nil {
				t.Fatalf("proof verified against tampered %s", tc.name)
			}
		})
	}
}

func TestWithdrawRejectsWrongSecret(t *testing.T) {
	ccs, pk, _ := compileAndSetup(t)

	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	n, idx := depositNote(t, acc)

	result, err := withdraw.PrepareWitness(n, acc, idx, big.NewInt(1), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}

	// A wrong secret yields a different commitment, so the membership
	// constraint cannot be satisfied.
	result.Assignment.Secret = new(big.Int).Add(n.Secret, big.NewInt(1))
	witness, err := frontend.NewWitness(&result.Assignment, ecc.BN254.ScalarField())
	if err != nil {
		t.Fatalf("create witness: %v", err)
	}
	if _, err := groth16.Prove(ccs, pk, witness); err == nil {
		t.Fatal("proving succeeded with a wrong secret")
	}
}

func TestWithdrawCompressedProofVerifies(t *testing.T) {
	ccs, pk, vk := compileAndSetup(t)

	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	n, idx := depositNote(t, acc)

	result, err := withdraw.PrepareWitness(n, acc, idx, big.NewInt(0xBEEF), big.NewInt(0), big.NewInt(0))
	if err != nil {
		t.Fatalf("prepare witness: %v", err)
	}
	proof, publicWitness := prove(t, ccs, pk, &result.Assignment)

	compressed, err := proofcodec.Compress(proof)
	if err != nil {
		t.Fatalf("compress proof: %v", err)
	}
	restored, err := compressed.Decompress()
	if err != nil {
		t.Fatalf("decompress proof: %v", err)
	}
	if err := groth16.Verify(restored, vk, publicWitness); err != nil {
		t.Fatalf("verify decompressed proof: %v", err)
	}
}

func TestWithdrawPrepareWitnessRejectsWrongLeaf(t *testing.T) {
	acc := merkle.NewAccumulator(withdraw.TreeDepth)
	n, _ := depositNote(t, acc)
	depositNote(t, acc)

	// Index 1 holds a different commitment.
	if _, err := withdraw.PrepareWitness(n, acc, 1, big.NewInt(1), big.NewInt(0), big.NewInt(0)); err == nil {
		t.Fatal("prepare witness accepted a mismatched leaf index")
	}
}

func TestWithdrawPrepareWitnessRejectsDepthMismatch(t *testing.T) {
	acc := merkle.NewAccumulator(withdraw.TreeDepth + 1)
	n, err := note.NewNote(1)
	if err != nil {
		t.Fatalf("new note: %v", err)
	}
	if _, err := acc.Append(n.Commitment); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := withdraw.PrepareWitness(n, acc, 0, big.NewInt(1), big.NewInt(0), big.NewInt(0)); err == nil {
		t.Fatal("prepare witness accepted a depth-mismatched accumulator")
	}
}

func TestWithdrawExportFixture(t *testing.T) {
	ccs, err := setup.CompileCircuit(&withdraw.WithdrawCircuit{})
	if err != nil {
		t.Fatalf("compile circuit: %v", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		t.Fatalf("groth16 setup: %v", err)
	}

	tmpDir := t.TempDir()
	if err := setup.ExportKeys(pk, vk, tmpDir, "withdraw"); err != nil {
		t.Fatalf("export keys: %v", err)
	}

	jsonOut, err := withdraw.ExportProofFixture(tmpDir)
	if err != nil {
		t.Fatalf("export proof fixture: %v", err)
	}

	var fixture withdraw.ProofFixture
	if err := json.Unmarshal(jsonOut, &fixture); err != nil {
		t.Fatalf("unmarshal fixture: %v", err)
	}
	if fixture.Proof == nil {
		t.Fatal("fixture proof is empty")
	}
	if fixture.Root == "" || fixture.NullifierHash == "" || fixture.Recipient == "" {
		t.Fatal("fixture public signals incomplete")
	}
}
