package withdraw

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/tetsuo-ai/privacy-pool/pkg/merkle"
	"github.com/tetsuo-ai/privacy-pool/pkg/note"
	"github.com/tetsuo-ai/privacy-pool/pkg/proofcodec"
	"github.com/tetsuo-ai/privacy-pool/pkg/setup"
)

// ProofFixture holds a deterministic compressed proof and its public
// signals for the external verifier's tests. Values are 0x-prefixed 32-byte
// big-endian hex.
type ProofFixture struct {
	Proof         *proofcodec.CompressedProof `json:"proof"`
	Root          string                      `json:"root"`
	NullifierHash string                      `json:"nullifier_hash"`
	Recipient     string                      `json:"recipient"`
	Relayer       string                      `json:"relayer"`
	Fee           string                      `json:"fee"`
}

// ExportProofFixture generates a deterministic proof fixture. keysDir is
// the directory containing the proving and verifying keys.
func ExportProofFixture(keysDir string) ([]byte, error) {
	// 1. Compile the circuit
	fmt.Println("Compiling circuit...")
	ccs, err := setup.CompileCircuit(&WithdrawCircuit{})
	if err != nil {
		return nil, fmt.Errorf("compile circuit: %w", err)
	}

	// 2. Load proving and verifying keys
	fmt.Println("Loading keys...")
	pk, vk, err := setup.LoadKeys(keysDir, "withdraw")
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}

	// 3. Deterministic note and accumulator: four known commitments, spend
	// the third.
	n, err := note.FromSecrets(big.NewInt(11111), big.NewInt(22222), 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("build note: %w", err)
	}

	acc := merkle.NewAccumulator(TreeDepth)
	for _, v := range []*big.Int{big.NewInt(101), big.NewInt(202)} {
		if _, err := acc.Append(v); err != nil {
			return nil, fmt.Errorf("append filler leaf: %w", err)
		}
	}
	leafIndex, err := acc.Append(n.Commitment)
	if err != nil {
		return nil, fmt.Errorf("append commitment: %w", err)
	}
	if _, err := acc.Append(big.NewInt(303)); err != nil {
		return nil, fmt.Errorf("append filler leaf: %w", err)
	}
	fmt.Printf("Accumulator root: 0x%064x\n", acc.Root())
	fmt.Printf("Commitment at index %d\n", leafIndex)

	recipient := big.NewInt(0xCAFE)
	relayer := big.NewInt(0)
	fee := big.NewInt(0)

	result, err := PrepareWitness(n, acc, leafIndex, recipient, relayer, fee)
	if err != nil {
		return nil, fmt.Errorf("prepare witness: %w", err)
	}

	// 4. Create witness and generate proof
	witness, err := frontend.NewWitness(&result.Assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("create witness: %w", err)
	}
	publicWitness, err := witness.Public()
	if err != nil {
		return nil, fmt.Errorf("extract public witness: %w", err)
	}

	fmt.Println("Generating proof...")
	proof, err := groth16.Prove(ccs, pk, witness)
	if err != nil {
		return nil, fmt.Errorf("prove: %w", err)
	}

	// 5. Verify proof in Go before exporting
	if err := groth16.Verify(proof, vk, publicWitness); err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	fmt.Println("Proof verified successfully in Go!")

	// 6. Compress to the wire format
	compressed, err := proofcodec.Compress(proof)
	if err != nil {
		return nil, fmt.Errorf("compress proof: %w", err)
	}

	fixture := ProofFixture{
		Proof:         compressed,
		Root:          fmt.Sprintf("0x%064x", result.Publics.Root),
		NullifierHash: fmt.Sprintf("0x%064x", result.Publics.NullifierHash),
		Recipient:     fmt.Sprintf("0x%064x", result.Publics.Recipient),
		Relayer:       fmt.Sprintf("0x%064x", result.Publics.Relayer),
		Fee:           fmt.Sprintf("0x%064x", result.Publics.Fee),
	}

	jsonOut, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fixture: %w", err)
	}

	fmt.Println("\n=== PROOF FIXTURE (JSON) ===")
	fmt.Println(string(jsonOut))
	fmt.Println("\nPublic signal order: [root, nullifierHash, recipient, relayer, fee]")

	return jsonOut, nil
}
