package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"go-plan-portal/internal/model"
)

type sessionClaims struct {
	Kind model.TokenKind `json:"typ"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies the signed session tokens carried in the
// access_token and refresh_token cookies.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
	parser     *jwt.Parser
}

func NewTokenService(secret string, accessTTL time.Duration, refreshTTL time.Duration) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("token secret is required")
	}
	if accessTTL <= 0 || refreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if accessTTL >= refreshTTL {
		return nil, errors.New("access TTL must be shorter than refresh TTL")
	}

	s := &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)

	return s, nil
}

func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

func (s *TokenService) TTL(kind model.TokenKind) time.Duration {
	if kind == model.TokenKindRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

func (s *TokenService) Issue(subject string, kind model.TokenKind) (string, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if kind != model.TokenKindAccess && kind != model.TokenKindRefresh {
		return "", fmt.Errorf("unknown token kind %q", kind)
	}

	now := s.now().UTC()
	claims := sessionClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL(kind))),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}

	return signed, nil
}

func (s *TokenService) IssuePair(subject string) (model.TokenPair, error) {
	access, err := s.Issue(subject, model.TokenKindAccess)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, err := s.Issue(subject, model.TokenKindRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Decode returns nil for anything that is not a currently valid token. A nil
// result is the unauthenticated signal, not a failure.
func (s *TokenService) Decode(token string) *model.TokenPayload {
	payload, err := s.parse(token)
	if err != nil {
		return nil
	}
	return payload
}

// DecodeOrFail is Decode for callers that must tell an expired token from a
// forged or malformed one. A token of another kind is invalid.
func (s *TokenService) DecodeOrFail(token string, kind model.TokenKind) (*model.TokenPayload, error) {
	payload, err := s.parse(token)
	if err != nil {
		return nil, err
	}
	if payload.Kind != kind {
		return nil, fmt.Errorf("%w: expected %s token", model.ErrTokenInvalid, kind)
	}

	return payload, nil
}

// decodeKind is Decode restricted to one token kind.
func (s *TokenService) decodeKind(token string, kind model.TokenKind) *model.TokenPayload {
	payload := s.Decode(token)
	if payload == nil || payload.Kind != kind {
		return nil
	}
	return payload
}

func (s *TokenService) parse(token string) (*model.TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, model.ErrTokenMissing
	}

	claims := &sessionClaims{}
	parsed, err := s.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, model.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", model.ErrTokenInvalid, err)
	}
	if !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, model.ErrTokenInvalid
	}

	payload := &model.TokenPayload{
		Subject: claims.Subject,
		Kind:    claims.Kind,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}

	return payload, nil
}
