package handler

import (
	"strings"

	dErrors "veritas/pkg/domain-errors"
)

// RequestOTPRequest is the HTTP request body for POST /auth/otp.
type RequestOTPRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *RequestOTPRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "email is not valid")
	}
	return nil
}

// VerifyOTPRequest is the HTTP request body for POST /auth/verify.
type VerifyOTPRequest struct {
	Email    string `json:"email"`
	Code     string `json:"code"`
	Password string `json:"password"`
}

func (r *VerifyOTPRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.Code = strings.TrimSpace(r.Code)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// LoginRequest is the HTTP request body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}

// PreferencesRequest is the HTTP request body for POST /auth/preferences.
type PreferencesRequest struct {
	Interests []string `json:"interests"`
	LinkedIn  string   `json:"linkedin"`
}

func (r *PreferencesRequest) Validate() error {
	if len(r.Interests) > 16 {
		return dErrors.New(dErrors.CodeValidation, "too many interests")
	}
	if len(r.LinkedIn) > 512 {
		return dErrors.New(dErrors.CodeValidation, "linkedin url is too long")
	}
	return nil
}
