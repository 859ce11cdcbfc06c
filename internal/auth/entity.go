// AngelaMos | 2026
// entity.go

package auth

import (
	"context"
)

// AccountInfo is the view of an account that authentication needs.
type AccountInfo struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Type         string
	Tier         int
	TokenVersion int
}

type AccountProvider interface {
	GetByEmail(ctx context.Context, email string) (*AccountInfo, error)
	GetByID(ctx context.Context, id string) (*AccountInfo, error)
}
