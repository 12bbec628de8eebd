package pasetotoken

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	paseto "aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// App-specific claim names, kept short since every request carries them.
const (
	claimType    = "typ"
	claimUser    = "uid"
	claimRole    = "rol"
	claimSession = "sid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 30 * 24 * time.Hour
)

type Config struct {
	Mode     Mode
	Issuer   string
	Audience string

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// Implicit is bound into every token without being transmitted.
	Implicit []byte
}

// Manager issues and verifies the access and refresh tokens of the API.
type Manager struct {
	cfg    Config
	keys   Keys
	parser paseto.Parser
}

func New(cfg Config, keys Keys) (*Manager, error) {
	switch {
	case cfg.Mode != keys.Mode:
		return nil, fmt.Errorf("%w: mode %q does not match keys (%q)", ErrConfig, cfg.Mode, keys.Mode)
	case cfg.Issuer == "":
		return nil, fmt.Errorf("%w: issuer is required", ErrConfig)
	case cfg.Audience == "":
		return nil, fmt.Errorf("%w: audience is required", ErrConfig)
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = defaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = defaultRefreshTTL
	}

	p := paseto.NewParser()
	p.AddRule(paseto.IssuedBy(cfg.Issuer))
	p.AddRule(paseto.ForAudience(cfg.Audience))
	p.AddRule(paseto.NotExpired())
	p.AddRule(paseto.NotBeforeNbf())

	return &Manager{cfg: cfg, keys: keys, parser: p}, nil
}

func (m *Manager) AccessTTL() time.Duration  { return m.cfg.AccessTTL }
func (m *Manager) RefreshTTL() time.Duration { return m.cfg.RefreshTTL }

func (m *Manager) IssueAccess(userID uuid.UUID, role string, sessionID *uuid.UUID) (string, error) {
	return m.issue(TokenTypeAccess, userID, role, sessionID, m.cfg.AccessTTL)
}

func (m *Manager) IssueRefresh(userID uuid.UUID, role string, sessionID *uuid.UUID) (string, error) {
	return m.issue(TokenTypeRefresh, userID, role, sessionID, m.cfg.RefreshTTL)
}

func (m *Manager) issue(typ TokenType, userID uuid.UUID, role string, sessionID *uuid.UUID, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := paseto.NewToken()
	tok.SetIssuer(m.cfg.Issuer)
	tok.SetAudience(m.cfg.Audience)
	tok.SetSubject(userID.String())
	tok.SetJti(newTokenID())
	tok.SetIssuedAt(now)
	tok.SetNotBefore(now)
	tok.SetExpiration(now.Add(ttl))

	tok.SetString(claimType, string(typ))
	tok.SetString(claimUser, userID.String())
	tok.SetString(claimRole, role)
	if sessionID != nil {
		tok.SetString(claimSession, sessionID.String())
	}

	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		return tok.V4Encrypt(*m.keys.Symmetric, m.cfg.Implicit), nil
	case m.cfg.Mode == ModePublic && m.keys.Secret != nil:
		return tok.V4Sign(*m.keys.Secret, m.cfg.Implicit), nil
	}
	return "", fmt.Errorf("%w: no key to issue %s tokens", ErrConfig, m.cfg.Mode)
}

// Verify checks the token cryptographically and against issuer, audience and
// validity window, then decodes the app claims.
func (m *Manager) Verify(token string) (*Claims, error) {
	var (
		tok *paseto.Token
		err error
	)
	switch {
	case m.cfg.Mode == ModeLocal && m.keys.Symmetric != nil:
		tok, err = m.parser.ParseV4Local(*m.keys.Symmetric, token, m.cfg.Implicit)
	case m.cfg.Mode == ModePublic && m.keys.Public != nil:
		tok, err = m.parser.ParseV4Public(*m.keys.Public, token, m.cfg.Implicit)
	default:
		return nil, fmt.Errorf("%w: no key to verify %s tokens", ErrConfig, m.cfg.Mode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, err := decodeClaims(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

func decodeClaims(tok *paseto.Token) (*Claims, error) {
	var (
		c   Claims
		err error
	)
	if c.TokenID, err = tok.GetJti(); err != nil {
		return nil, err
	}
	if c.IssuedAt, err = tok.GetIssuedAt(); err != nil {
		return nil, err
	}
	if c.ExpiresAt, err = tok.GetExpiration(); err != nil {
		return nil, err
	}

	typ, err := tok.GetString(claimType)
	if err != nil {
		return nil, err
	}
	switch c.Type = TokenType(typ); c.Type {
	case TokenTypeAccess, TokenTypeRefresh:
	default:
		return nil, fmt.Errorf("unknown token type %q", typ)
	}

	uid, err := tok.GetString(claimUser)
	if err != nil {
		return nil, err
	}
	if c.UserID, err = uuid.Parse(uid); err != nil {
		return nil, fmt.Errorf("%s claim: %w", claimUser, err)
	}
	if c.Role, err = tok.GetString(claimRole); err != nil {
		return nil, err
	}

	if sid, err := tok.GetString(claimSession); err == nil {
		id, err := uuid.Parse(sid)
		if err != nil {
			return nil, fmt.Errorf("%s claim: %w", claimSession, err)
		}
		c.SessionID = &id
	}
	return &c, nil
}

func newTokenID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
