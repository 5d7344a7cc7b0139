package handler

import (
	dErrors "veritas/pkg/domain-errors"
)

const maxStatementLength = 1000

// CreateRequest is the payload for POST /claims.
type CreateRequest struct {
	Domain    string `json:"domain"`
	Statement string `json:"statement"`
}

func (r *CreateRequest) Validate() error {
	if r.Domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if r.Statement == "" {
		return dErrors.New(dErrors.CodeValidation, "statement is required")
	}
	if len(r.Statement) > maxStatementLength {
		return dErrors.New(dErrors.CodeValidation, "statement exceeds maximum length")
	}
	return nil
}

// VoteRequest is the payload for POST /claims/{id}/vote.
type VoteRequest struct {
	Vote string `json:"vote"`
}

func (r *VoteRequest) Validate() error {
	if r.Vote == "" {
		return dErrors.New(dErrors.CodeValidation, "vote is required")
	}
	return nil
}
