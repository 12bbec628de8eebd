package pasetotoken

import (
	"time"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is what a verified token says about its bearer. SessionID is the
// login session the token belongs to; logout deletes it and with it every
// token carrying that id.
type Claims struct {
	Type      TokenType
	UserID    uuid.UUID
	Role      string
	SessionID *uuid.UUID

	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (c *Claims) GetUserID() uuid.UUID     { return c.UserID }
func (c *Claims) GetRole() string          { return c.Role }
func (c *Claims) GetSessionID() *uuid.UUID { return c.SessionID }
func (c *Claims) GetTokenType() string     { return string(c.Type) }
func (c *Claims) IsExpired() bool          { return !time.Now().Before(c.ExpiresAt) }
