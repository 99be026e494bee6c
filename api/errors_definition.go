package api

import (
	"fmt"
	"net/http"
)

// Error codes in the 40001-49999 range are the client's fault and map to
// HTTP 4xx statuses; codes 50001-59999 are the server's fault and map to 5xx.
// Never change or reuse an existing code; append after the current last one.
var (
	ErrMalformedBody        = Error{Code: 40001, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedField       = Error{Code: 40002, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed field element")}
	ErrNullifierSpent       = Error{Code: 40003, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("nullifier already spent")}
	ErrDuplicateCommitment  = Error{Code: 40004, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("commitment already deposited")}
	ErrUnknownRoot          = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("root not in accepted window")}
	ErrProofRejected        = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("proof rejected")}
	ErrCommitmentNotFound   = Error{Code: 40007, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("commitment not found")}
	ErrUnknownAssociation   = Error{Code: 40008, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("unknown association set")}
	ErrMalformedAssociation = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed association set id")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)
