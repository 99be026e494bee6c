package api

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tetsuo-ai/privacy-pool/circuits/innocence"
	"github.com/tetsuo-ai/privacy-pool/circuits/withdraw"
	"github.com/tetsuo-ai/privacy-pool/pkg/field"
	"github.com/tetsuo-ai/privacy-pool/pkg/registry"
	"github.com/tetsuo-ai/privacy-pool/pool"
)

// root returns the current deposit accumulator root
// GET /root
func (a *API) root(w http.ResponseWriter, _ *http.Request) {
	httpWriteJSON(w, RootResponse{Root: EncodeField(a.pool.Root())})
}

// roots returns the accepted root window, oldest first
// GET /roots
func (a *API) roots(w http.ResponseWriter, _ *http.Request) {
	window := a.pool.Roots()
	out := make([]string, len(window))
	for i, r := range window {
		out[i] = EncodeField(r)
	}
	httpWriteJSON(w, RootsResponse{Roots: out})
}

// stats returns the pool's lifetime counters
// GET /stats
func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	s := a.pool.Stats()
	httpWriteJSON(w, StatsResponse{
		Deposits:        s.Deposits,
		Withdrawals:     s.Withdrawals,
		InnocenceProofs: s.InnocenceProofs,
	})
}

// nullifier reports whether a nullifier hash is spent
// GET /nullifiers/{nullifierHash}
func (a *API) nullifier(w http.ResponseWriter, r *http.Request) {
	hash, err := DecodeField(chi.URLParam(r, NullifierURLParam))
	if err != nil {
		ErrMalformedField.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, NullifierResponse{Spent: a.pool.NullifierSpent(hash)})
}

// membership returns an association set inclusion path for a commitment
// GET /associations/{associationId}/membership/{commitment}
func (a *API) membership(w http.ResponseWriter, r *http.Request) {
	setID, err := strconv.ParseUint(chi.URLParam(r, AssociationURLParam), 10, 8)
	if err != nil {
		ErrMalformedAssociation.WithErr(err).Write(w)
		return
	}
	commitment, err := DecodeField(chi.URLParam(r, CommitmentURLParam))
	if err != nil {
		ErrMalformedField.WithErr(err).Write(w)
		return
	}

	root, path, err := a.pool.MembershipProof(uint8(setID), commitment)
	if err != nil {
		writePoolError(w, err)
		return
	}
	siblings := make([]string, len(path.Siblings))
	for i, s := range path.Siblings {
		siblings[i] = EncodeField(s)
	}
	httpWriteJSON(w, MembershipResponse{
		Root:       EncodeField(root),
		Siblings:   siblings,
		Directions: path.Directions,
	})
}

// newDeposit accepts a new commitment into the pool
// POST /deposits
func (a *API) newDeposit(w http.ResponseWriter, r *http.Request) {
	req := &DepositRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	commitment, err := DecodeField(req.Commitment)
	if err != nil {
		ErrMalformedField.WithErr(err).Write(w)
		return
	}

	idx, root, err := a.pool.Deposit(commitment, req.Amount)
	if err != nil {
		writePoolError(w, err)
		return
	}
	httpWriteJSON(w, DepositResponse{LeafIndex: idx, Root: EncodeField(root)})
}

// newWithdrawal accepts a compressed withdrawal proof
// POST /withdrawals
func (a *API) newWithdrawal(w http.ResponseWriter, r *http.Request) {
	req := &WithdrawalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.Proof == nil {
		ErrMalformedBody.Withf("missing proof").Write(w)
		return
	}
	pub, err := decodeWithdrawPublics(req)
	if err != nil {
		ErrMalformedField.WithErr(err).Write(w)
		return
	}

	if err := a.pool.SubmitWithdrawal(req.Proof, pub); err != nil {
		writePoolError(w, err)
		return
	}
	httpWriteOK(w)
}

// newInnocence accepts a compressed innocence proof
// POST /innocence
func (a *API) newInnocence(w http.ResponseWriter, r *http.Request) {
	req := &InnocenceRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	if req.Proof == nil {
		ErrMalformedBody.Withf("missing proof").Write(w)
		return
	}
	pub, err := decodeInnocencePublics(req)
	if err != nil {
		ErrMalformedField.WithErr(err).Write(w)
		return
	}

	if err := a.pool.SubmitInnocence(req.Proof, pub); err != nil {
		writePoolError(w, err)
		return
	}
	httpWriteOK(w)
}

func decodeWithdrawPublics(req *WithdrawalRequest) (withdraw.PublicInputs, error) {
	var pub withdraw.PublicInputs
	var err error
	if pub.Root, err = DecodeField(req.Root); err != nil {
		return pub, err
	}
	if pub.NullifierHash, err = DecodeField(req.NullifierHash); err != nil {
		return pub, err
	}
	if pub.Recipient, err = DecodeField(req.Recipient); err != nil {
		return pub, err
	}
	if pub.Relayer, err = DecodeField(req.Relayer); err != nil {
		return pub, err
	}
	if pub.Fee, err = DecodeField(req.Fee); err != nil {
		return pub, err
	}
	return pub, nil
}

func decodeInnocencePublics(req *InnocenceRequest) (innocence.PublicInputs, error) {
	var pub innocence.PublicInputs
	var err error
	if pub.DepositRoot, err = DecodeField(req.DepositRoot); err != nil {
		return pub, err
	}
	if pub.AssociationRoot, err = DecodeField(req.AssociationRoot); err != nil {
		return pub, err
	}
	if pub.NullifierHash, err = DecodeField(req.NullifierHash); err != nil {
		return pub, err
	}
	pub.AssociationID = big.NewInt(int64(req.AssociationID))
	pub.Timestamp = big.NewInt(req.Timestamp)
	return pub, nil
}

// writePoolError maps pool-layer sentinel errors onto API error codes.
func writePoolError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, registry.ErrNullifierSpent):
		ErrNullifierSpent.WithErr(err).Write(w)
	case errors.Is(err, pool.ErrDuplicateCommitment):
		ErrDuplicateCommitment.WithErr(err).Write(w)
	case errors.Is(err, pool.ErrUnknownRoot):
		ErrUnknownRoot.WithErr(err).Write(w)
	case errors.Is(err, pool.ErrProofInvalid):
		ErrProofRejected.WithErr(err).Write(w)
	case errors.Is(err, pool.ErrCommitmentNotFound):
		ErrCommitmentNotFound.WithErr(err).Write(w)
	case errors.Is(err, pool.ErrUnknownAssociation):
		ErrUnknownAssociation.WithErr(err).Write(w)
	case errors.Is(err, field.ErrInvalidFieldElement):
		ErrMalformedField.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}
