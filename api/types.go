package api

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/tetsuo-ai/privacy-pool/pkg/field"
	"github.com/tetsuo-ai/privacy-pool/pkg/proofcodec"
)

// Field elements travel as 0x-prefixed 32-byte big-endian hex strings.

// DepositRequest is the body of POST /deposits.
type DepositRequest struct {
	Commitment string `json:"commitment"`
	Amount     uint64 `json:"amount"`
}

// DepositResponse acknowledges an accepted deposit.
type DepositResponse struct {
	LeafIndex int    `json:"leafIndex"`
	Root      string `json:"root"`
}

// WithdrawalRequest is the body of POST /withdrawals: a compressed proof
// plus its public signals.
type WithdrawalRequest struct {
	Proof         *proofcodec.CompressedProof `json:"proof"`
	Root          string                      `json:"root"`
	NullifierHash string                      `json:"nullifierHash"`
	Recipient     string                      `json:"recipient"`
	Relayer       string                      `json:"relayer"`
	Fee           string                      `json:"fee"`
}

// InnocenceRequest is the body of POST /innocence.
type InnocenceRequest struct {
	Proof           *proofcodec.CompressedProof `json:"proof"`
	DepositRoot     string                      `json:"depositRoot"`
	AssociationRoot string                      `json:"associationRoot"`
	NullifierHash   string                      `json:"nullifierHash"`
	AssociationID   uint8                       `json:"associationId"`
	Timestamp       int64                       `json:"timestamp"`
}

// RootResponse carries the current accumulator root.
type RootResponse struct {
	Root string `json:"root"`
}

// RootsResponse carries the accepted root window, oldest first.
type RootsResponse struct {
	Roots []string `json:"roots"`
}

// NullifierResponse reports the spent status of a nullifier hash.
type NullifierResponse struct {
	Spent bool `json:"spent"`
}

// MembershipResponse is an association set inclusion path.
type MembershipResponse struct {
	Root       string   `json:"root"`
	Siblings   []string `json:"siblings"`
	Directions []int    `json:"directions"`
}

// StatsResponse mirrors the pool's lifetime counters.
type StatsResponse struct {
	Deposits        uint64 `json:"deposits"`
	Withdrawals     uint64 `json:"withdrawals"`
	InnocenceProofs uint64 `json:"innocenceProofs"`
}

// EncodeField renders a field element as 0x-prefixed 32-byte hex.
func EncodeField(x *big.Int) string {
	return fmt.Sprintf("0x%064x", x)
}

// DecodeField parses a 0x-prefixed 32-byte hex string into a canonical
// scalar field element.
func DecodeField(s string) (*big.Int, error) {
	raw := strings.TrimPrefix(s, "0x")
	if len(raw) != 64 {
		return nil, fmt.Errorf("%w: want 64 hex chars, got %d", field.ErrInvalidFieldElement, len(raw))
	}
	buf, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", field.ErrInvalidFieldElement, err)
	}
	return field.FromBytes(buf)
}
