package handler

import (
	"time"

	"veritas/internal/claim/service"
)

// SummaryResponse is the list view of a claim. It never carries the weighted
// percentage; that appears only in the detail view after a claim is opened.
type SummaryResponse struct {
	ID            string    `json:"claim_id"`
	Domain        string    `json:"domain"`
	Statement     string    `json:"statement"`
	AuthorName    string    `json:"author_name"`
	AgreeCount    int       `json:"agree_count"`
	DisagreeCount int       `json:"disagree_count"`
	VoterIDs      []string  `json:"voter_ids"`
	CreatedAt     time.Time `json:"created_at"`
}

// VoteResponse is one vote in the detail view with the weight it carried.
type VoteResponse struct {
	VoterID    string    `json:"voter_id"`
	VoterName  string    `json:"voter_name"`
	VoterEmail string    `json:"voter_email"`
	Vote       string    `json:"vote"`
	Weight     float64   `json:"weight"`
	CastAt     time.Time `json:"cast_at"`
}

// DetailResponse is the full consensus view of a claim.
type DetailResponse struct {
	SummaryResponse
	Votes            []VoteResponse `json:"votes"`
	WeightedAgree    float64        `json:"weighted_agree"`
	WeightedDisagree float64        `json:"weighted_disagree"`
	TruthPercentage  int            `json:"truth_percentage"`
	Label            string         `json:"label"`
}

// FromSummary converts a claim summary to its response form.
func FromSummary(summary service.Summary) SummaryResponse {
	voterIDs := make([]string, len(summary.VoterIDs))
	for i, voterID := range summary.VoterIDs {
		voterIDs[i] = voterID.String()
	}
	return SummaryResponse{
		ID:            summary.ID.String(),
		Domain:        summary.Domain.String(),
		Statement:     summary.Statement,
		AuthorName:    summary.AuthorName,
		AgreeCount:    summary.AgreeCount,
		DisagreeCount: summary.DisagreeCount,
		VoterIDs:      voterIDs,
		CreatedAt:     summary.CreatedAt,
	}
}

// FromSummaries converts the claim list to its response form.
func FromSummaries(summaries []service.Summary) []SummaryResponse {
	out := make([]SummaryResponse, len(summaries))
	for i, summary := range summaries {
		out[i] = FromSummary(summary)
	}
	return out
}

// FromDetail converts a claim detail to its response form.
func FromDetail(detail *service.Detail) DetailResponse {
	votes := make([]VoteResponse, len(detail.Votes))
	for i, vote := range detail.Votes {
		votes[i] = VoteResponse{
			VoterID:    vote.VoterID.String(),
			VoterName:  vote.VoterName,
			VoterEmail: vote.VoterEmail,
			Vote:       string(vote.Type),
			Weight:     vote.Weight,
			CastAt:     vote.CastAt,
		}
	}
	return DetailResponse{
		SummaryResponse:  FromSummary(detail.Summary),
		Votes:            votes,
		WeightedAgree:    detail.WeightedAgree,
		WeightedDisagree: detail.WeightedDisagree,
		TruthPercentage:  detail.TruthPercentage,
		Label:            string(detail.Label),
	}
}
