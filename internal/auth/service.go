// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelierline/portal/internal/core"
	"github.com/atelierline/portal/internal/middleware"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type Service struct {
	jwt      *JWTManager
	accounts AccountProvider
}

func NewService(jwt *JWTManager, accounts AccountProvider) *Service {
	return &Service{
		jwt:      jwt,
		accounts: accounts,
	}
}

// Login exchanges an email and password (the access-notice temporary
// password for clients) for an access token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	acct, err := s.accounts.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // timing attack prevention - always verify to prevent enumeration
			_, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	valid, err := core.VerifyPasswordTimingSafe(req.Password, &acct.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwt.CreateAccessToken(middleware.AccessTokenClaims{
		AccountID:    acct.ID,
		AccountType:  acct.Type,
		Tier:         acct.Tier,
		TokenVersion: acct.TokenVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &LoginResponse{
		Account: toAccountResponse(acct),
		Token: TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   int(s.jwt.AccessTokenTTL() / time.Second),
			ExpiresAt:   expiresAt,
		},
	}, nil
}

// VerifyAccessToken parses the token and rejects it once the account's
// token version has moved past it, which happens on password rotation.
func (s *Service) VerifyAccessToken(
	ctx context.Context,
	token string,
) (*middleware.AccessTokenClaims, error) {
	claims, err := s.jwt.ParseAccessToken(ctx, token)
	if err != nil {
		return nil, err
	}

	acct, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, fmt.Errorf("verify token: %w", core.ErrTokenInvalid)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}

	if claims.TokenVersion < acct.TokenVersion {
		return nil, fmt.Errorf("verify token: %w", core.ErrTokenRevoked)
	}

	return claims, nil
}

func (s *Service) CurrentAccount(ctx context.Context, accountID string) (*AccountResponse, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	resp := toAccountResponse(acct)
	return &resp, nil
}

var _ middleware.TokenVerifier = (*Service)(nil)
