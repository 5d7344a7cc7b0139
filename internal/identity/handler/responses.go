package handler

import (
	"time"

	"veritas/internal/identity/models"
	id "veritas/pkg/domain"
)

// UserResponse is the public view of an account.
type UserResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Verified    bool      `json:"verified"`
	LinkedIn    string    `json:"linkedin,omitempty"`
	Interests   []string  `json:"interests"`
	Credibility []float64 `json:"credibility"`
	Domains     []string  `json:"domains"`
	CreatedAt   time.Time `json:"created_at"`
}

// TokenResponse carries an access token alongside the account it belongs to.
type TokenResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        UserResponse `json:"user"`
}

// FromUser converts an account to its public view. The credibility slice is
// positional; the domains slice names each position.
func FromUser(user *models.User) UserResponse {
	interests := make([]string, len(user.Interests))
	for i, d := range user.Interests {
		interests[i] = string(d)
	}
	domains := make([]string, id.NumDomains)
	for i, d := range id.Domains() {
		domains[i] = string(d)
	}
	return UserResponse{
		ID:          user.ID.String(),
		Name:        user.Name,
		Email:       user.Email,
		Role:        string(user.Role),
		Verified:    user.Verified,
		LinkedIn:    user.LinkedIn,
		Interests:   interests,
		Credibility: user.Credibility.Profile(),
		Domains:     domains,
		CreatedAt:   user.CreatedAt,
	}
}

func tokenResponse(user *models.User, token string) TokenResponse {
	return TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        FromUser(user),
	}
}
