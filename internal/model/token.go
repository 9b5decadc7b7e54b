package model

import "time"

type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// TokenPayload is the decoded content of a session token. Subject and
// ExpiresAt are the only fields callers should act on.
type TokenPayload struct {
	Subject   string    `json:"sub"`
	Kind      TokenKind `json:"typ"`
	ID        string    `json:"jti"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

type TokenPair struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}
