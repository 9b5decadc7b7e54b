package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go-plan-portal/internal/model"
	"go-plan-portal/internal/route"
)

type userByEmailFinder interface {
	FindByEmail(ctx context.Context, email string) (model.User, error)
}

// Credentials are the raw session cookies of one request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Path         string
}

type Resolution struct {
	Identity *model.Identity
	// RenewedAccessToken is set when the identity was recovered from the
	// refresh token and a fresh access token must go out with the response.
	RenewedAccessToken string
}

type IdentityService struct {
	tokens *TokenService
	users  userByEmailFinder
}

func NewIdentityService(tokens *TokenService, users userByEmailFinder) *IdentityService {
	return &IdentityService{tokens: tokens, users: users}
}

// Resolve never fails: bad, expired or missing credentials yield an anonymous
// resolution.
func (s *IdentityService) Resolve(ctx context.Context, creds Credentials) Resolution {
	if payload := s.tokens.decodeKind(creds.AccessToken, model.TokenKindAccess); payload != nil {
		if user, ok := s.lookup(ctx, payload.Subject); ok {
			return Resolution{Identity: model.NewIdentity(user)}
		}
	}

	if creds.RefreshToken == "" || route.IsLogout(creds.Path) {
		return Resolution{}
	}

	payload := s.tokens.decodeKind(creds.RefreshToken, model.TokenKindRefresh)
	if payload == nil {
		return Resolution{}
	}

	user, ok := s.lookup(ctx, payload.Subject)
	if !ok {
		return Resolution{}
	}

	renewed, err := s.tokens.Issue(user.Email, model.TokenKindAccess)
	if err != nil {
		slog.Error("failed to renew access token", "error", err, "user_id", user.ID)
		return Resolution{Identity: model.NewIdentity(user)}
	}

	return Resolution{Identity: model.NewIdentity(user), RenewedAccessToken: renewed}
}

// Refresh is the explicit refresh operation. Unlike Resolve it reports why a
// refresh token was refused.
func (s *IdentityService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := s.tokens.DecodeOrFail(refreshToken, model.TokenKindRefresh)
	if err != nil {
		return "", err
	}

	user, err := s.users.FindByEmail(ctx, payload.Subject)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return "", fmt.Errorf("%w: unknown subject", model.ErrTokenInvalid)
		}
		return "", fmt.Errorf("refresh lookup: %w", err)
	}

	return s.tokens.Issue(user.Email, model.TokenKindAccess)
}

func (s *IdentityService) lookup(ctx context.Context, email string) (model.User, bool) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, model.ErrUserNotFound) {
			slog.Warn("identity lookup failed", "error", err)
		}
		return model.User{}, false
	}

	return user, true
}
