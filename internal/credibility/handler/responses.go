package handler

import (
	"time"

	"veritas/internal/credibility/models"
	"veritas/internal/credibility/service"
	identitymodels "veritas/internal/identity/models"
)

// RequestResponse is the public view of a verification request.
type RequestResponse struct {
	ID         string     `json:"request_id"`
	UserID     string     `json:"user_id"`
	Domain     string     `json:"domain"`
	ProofLink  string     `json:"proof_link"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
	ApprovedBy string     `json:"approved_by,omitempty"`
}

// PendingResponse is the admin review view: the request plus requester
// identity and their current standing in the requested domain.
type PendingResponse struct {
	RequestResponse
	RequesterName  string  `json:"requester_name"`
	RequesterEmail string  `json:"requester_email"`
	CurrentScore   float64 `json:"current_score"`
}

// UpdatedUserResponse is returned after approval: the requester's refreshed
// credibility profile.
type UpdatedUserResponse struct {
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Credibility []float64 `json:"credibility"`
}

// FromRequest converts a verification request to its public view.
func FromRequest(request *models.VerificationRequest) RequestResponse {
	resp := RequestResponse{
		ID:        request.ID.String(),
		UserID:    request.UserID.String(),
		Domain:    string(request.Domain),
		ProofLink: request.ProofLink,
		Status:    string(request.Status),
		CreatedAt: request.CreatedAt,
	}
	if request.ApprovedAt != nil {
		resp.ApprovedAt = request.ApprovedAt
	}
	if request.ApprovedBy != nil {
		resp.ApprovedBy = request.ApprovedBy.String()
	}
	return resp
}

// FromPending converts the review queue to its response form.
func FromPending(pending []service.PendingRequest) []PendingResponse {
	out := make([]PendingResponse, len(pending))
	for i, p := range pending {
		out[i] = PendingResponse{
			RequestResponse: FromRequest(p.Request),
			RequesterName:   p.RequesterName,
			RequesterEmail:  p.RequesterEmail,
			CurrentScore:    p.CurrentScore,
		}
	}
	return out
}

// FromUpdatedUser projects the post-approval account state.
func FromUpdatedUser(user *identitymodels.User) UpdatedUserResponse {
	return UpdatedUserResponse{
		UserID:      user.ID.String(),
		Name:        user.Name,
		Credibility: user.Credibility.Profile(),
	}
}
