package handler

import (
	"strings"

	dErrors "veritas/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /credibility.
type SubmitRequest struct {
	Domain    string `json:"domain"`
	ProofLink string `json:"proof_link"`
}

func (r *SubmitRequest) Validate() error {
	r.Domain = strings.TrimSpace(r.Domain)
	r.ProofLink = strings.TrimSpace(r.ProofLink)
	if r.Domain == "" {
		return dErrors.New(dErrors.CodeValidation, "domain is required")
	}
	if r.ProofLink == "" {
		return dErrors.New(dErrors.CodeValidation, "proof_link is required")
	}
	if len(r.ProofLink) > 2048 {
		return dErrors.New(dErrors.CodeValidation, "proof_link is too long")
	}
	return nil
}
