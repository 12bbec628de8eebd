package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/password"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLockout          = 15 * time.Minute
)

// redisKeySession returns the Redis key for a login session.
func redisKeySession(sessionID string) string { return "session:" + sessionID }

// redisKeyLoginAttempts returns the Redis key for the failed login counter.
func redisKeyLoginAttempts(email string) string { return "login:attempts:" + email }

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type RegisterRequest struct {
	Name     string
	LastName string
	Email    string
	Phone    string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
}

type AuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds until access token expires
}

// ---------------------------------------------------------------------------
// Ports
// ---------------------------------------------------------------------------

type UserStore interface {
	Get(ctx context.Context, id uuid.UUID) (*store.User, error)
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	Update(ctx context.Context, id uuid.UUID, upd store.UserUpdate) (*store.User, error)
}

type Registrar interface {
	Register(ctx context.Context, req user.CreateRequest) (*store.User, error)
}

type Config struct {
	MaxLoginAttempts int
	Lockout          time.Duration
	// PasswordParams are the current hashing costs. Hashes made with other
	// costs are upgraded on the next successful login.
	PasswordParams *password.Params
}

// ---------------------------------------------------------------------------
// Service interface
// ---------------------------------------------------------------------------

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*store.User, error)
	Login(ctx context.Context, req LoginRequest) (*AuthTokens, *store.User, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	// SessionActive reports whether the login session behind a token still
	// exists.
	SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type authService struct {
	users     UserStore
	registrar Registrar
	cache     Cache
	paseto    *pasetotoken.Manager
	cfg       Config
}

func New(users UserStore, registrar Registrar, cache Cache, paseto *pasetotoken.Manager, cfg Config) Service {
	if cfg.MaxLoginAttempts <= 0 {
		cfg.MaxLoginAttempts = defaultMaxLoginAttempts
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = defaultLockout
	}
	return &authService{
		users:     users,
		registrar: registrar,
		cache:     cache,
		paseto:    paseto,
		cfg:       cfg,
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*store.User, error) {
	return s.registrar.Register(ctx, user.CreateRequest{
		Name:     req.Name,
		LastName: req.LastName,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthTokens, *store.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	// Check lockout
	attemptsKey := redisKeyLoginAttempts(email)
	if v, err := s.cache.Get(ctx, attemptsKey); err == nil {
		if n, _ := strconv.Atoi(v); n >= s.cfg.MaxLoginAttempts {
			return nil, nil, ErrAccountLocked
		}
	} else if !errors.Is(err, ErrCacheMiss) {
		return nil, nil, fmt.Errorf("redis get login attempts: %w", err)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.recordFailedLogin(ctx, attemptsKey)
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	if err := password.Verify(u.PasswordHash, req.Password); err != nil {
		s.recordFailedLogin(ctx, attemptsKey)
		return nil, nil, ErrInvalidCredentials
	}
	if !u.IsActive {
		return nil, nil, ErrAccountInactive
	}
	if password.NeedsRehash(u.PasswordHash, s.cfg.PasswordParams) {
		s.rehash(ctx, u, req.Password)
	}

	// Reset failure counter
	if _, err := s.cache.Del(ctx, attemptsKey); err != nil {
		slog.WarnContext(ctx, "auth: clearing login attempts failed", "user_id", u.ID, "err", err)
	}

	now := time.Now().UTC()
	if _, err := s.users.Update(ctx, u.ID, store.UserUpdate{LastLoginAt: &now}); err != nil {
		slog.WarnContext(ctx, "auth: updating last login failed", "user_id", u.ID, "err", err)
	} else {
		u.LastLoginAt = &now
	}

	tokens, err := s.createSession(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return tokens, u, nil
}

func (s *authService) rehash(ctx context.Context, u *store.User, pw string) {
	hash, err := password.HashWithParams(pw, s.cfg.PasswordParams)
	if err != nil {
		slog.WarnContext(ctx, "auth: rehashing password failed", "user_id", u.ID, "err", err)
		return
	}
	if _, err := s.users.Update(ctx, u.ID, store.UserUpdate{PasswordHash: &hash}); err != nil {
		slog.WarnContext(ctx, "auth: storing rehashed password failed", "user_id", u.ID, "err", err)
		return
	}
	u.PasswordHash = hash
}

// ---------------------------------------------------------------------------
// RefreshTokens
// ---------------------------------------------------------------------------

func (s *authService) RefreshTokens(ctx context.Context, refreshToken string) (*AuthTokens, error) {
	claims, err := s.paseto.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.Type != pasetotoken.TokenTypeRefresh || claims.SessionID == nil {
		return nil, ErrInvalidToken
	}

	sessionKey := redisKeySession(claims.SessionID.String())
	owner, err := s.cache.Get(ctx, sessionKey)
	if errors.Is(err, ErrCacheMiss) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}
	if owner != claims.UserID.String() {
		return nil, ErrInvalidToken
	}

	// The role may have changed since login; the new access token carries
	// the current one.
	u, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !u.IsActive {
		if _, err := s.cache.Del(ctx, sessionKey); err != nil {
			slog.WarnContext(ctx, "auth: dropping inactive user session failed", "session_id", claims.SessionID, "err", err)
		}
		return nil, ErrAccountInactive
	}

	// Extend session TTL
	if err := s.cache.Expire(ctx, sessionKey, s.paseto.RefreshTTL()); err != nil {
		slog.WarnContext(ctx, "auth: extending session failed", "session_id", claims.SessionID, "err", err)
	}

	// Issue new access token only (refresh token stays the same until logout)
	accessToken, err := s.paseto.IssueAccess(u.ID, string(u.Role), claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  accessToken,
		RefreshToken: refreshToken, // unchanged
		ExpiresIn:    int64(s.paseto.AccessTTL().Seconds()),
	}, nil
}

// ---------------------------------------------------------------------------
// Logout
// ---------------------------------------------------------------------------

func (s *authService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	deleted, err := s.cache.Del(ctx, redisKeySession(sessionID.String()))
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if deleted == 0 {
		// Session already expired, not an error from the client's perspective
		slog.DebugContext(ctx, "logout: session not found in Redis (already expired)", "session_id", sessionID)
	}
	return nil
}

func (s *authService) SessionActive(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	_, err := s.cache.Get(ctx, redisKeySession(sessionID.String()))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrCacheMiss):
		return false, nil
	default:
		return false, err
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (s *authService) createSession(ctx context.Context, u *store.User) (*AuthTokens, error) {
	sessionID := uuid.Must(uuid.NewV7())

	// Store in Redis
	if err := s.cache.Set(ctx, redisKeySession(sessionID.String()), u.ID.String(), s.paseto.RefreshTTL()); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	// Issue tokens
	access, err := s.paseto.IssueAccess(u.ID, string(u.Role), &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.paseto.IssueRefresh(u.ID, string(u.Role), &sessionID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return &AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.paseto.AccessTTL().Seconds()),
	}, nil
}

func (s *authService) recordFailedLogin(ctx context.Context, key string) {
	n, err := s.cache.Incr(ctx, key, s.cfg.Lockout)
	if err != nil {
		slog.WarnContext(ctx, "auth: recording failed login", "err", err)
		return
	}
	if n == int64(s.cfg.MaxLoginAttempts) {
		slog.WarnContext(ctx, "auth: login locked after repeated failures", "attempts", n, "lockout", s.cfg.Lockout)
	}
}
