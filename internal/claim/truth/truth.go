// Package truth computes the credibility-weighted consensus for a claim.
// It is pure: callers supply the votes and a weight resolver, and get back
// the tallies, percentage, and label.
package truth

import (
	"math"

	"veritas/internal/claim/models"
	identitymodels "veritas/internal/identity/models"
	id "veritas/pkg/domain"
)

// Label buckets the truth percentage for display.
type Label string

const (
	LabelHigh     Label = "Highly credible"
	LabelModerate Label = "Moderately credible"
	LabelLow      Label = "Low credibility"
)

const (
	highThreshold     = 70
	moderateThreshold = 50
)

// WeightResolver returns a voter's credibility weight in the claim's domain.
// The boolean reports whether the weight was actually known; false means the
// default was substituted and the caller may want to log it.
type WeightResolver func(voterID id.UserID) (weight float64, known bool)

// VoteWeight pairs one vote with the weight it carried.
type VoteWeight struct {
	Vote   models.Vote
	Weight float64
	// Fallback marks a vote whose voter had no resolvable credibility
	// score, weighted at the default instead.
	Fallback bool
}

// Result is the full aggregation outcome for one claim.
type Result struct {
	RawAgree         int
	RawDisagree      int
	WeightedAgree    float64
	WeightedDisagree float64
	// Percentage is the weighted share of agreement in [0, 100].
	// Zero when the claim has no weighted mass at all.
	Percentage int
	Label      Label
	Votes      []VoteWeight
	// Fallbacks counts votes weighted at the default because the voter's
	// credibility could not be resolved.
	Fallbacks int
}

// Aggregate computes the weighted consensus over the claim's votes.
func Aggregate(votes []models.Vote, resolve WeightResolver) Result {
	result := Result{Votes: make([]VoteWeight, 0, len(votes))}

	for _, vote := range votes {
		weight, known := resolve(vote.VoterID)
		if !known {
			weight = identitymodels.DefaultScore
			result.Fallbacks++
		}

		switch vote.Type {
		case models.VoteAgree:
			result.RawAgree++
			result.WeightedAgree += weight
		case models.VoteDisagree:
			result.RawDisagree++
			result.WeightedDisagree += weight
		}
		result.Votes = append(result.Votes, VoteWeight{
			Vote:     vote,
			Weight:   weight,
			Fallback: !known,
		})
	}

	mass := result.WeightedAgree + result.WeightedDisagree
	if mass > 0 {
		result.Percentage = int(math.Round(100 * result.WeightedAgree / mass))
	}
	result.Label = labelFor(result.Percentage)
	return result
}

func labelFor(percentage int) Label {
	switch {
	case percentage >= highThreshold:
		return LabelHigh
	case percentage >= moderateThreshold:
		return LabelModerate
	default:
		return LabelLow
	}
}
