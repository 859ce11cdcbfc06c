// AngelaMos | 2026
// dto.go

package auth

import (
	"time"
)

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type AccountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Tier  int    `json:"tier"`
}

type LoginResponse struct {
	Account AccountResponse `json:"account"`
	Token   TokenResponse   `json:"token"`
}

func toAccountResponse(a *AccountInfo) AccountResponse {
	return AccountResponse{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Type:  a.Type,
		Tier:  a.Tier,
	}
}
