package auth

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alijeyrad/mindcare_backend/internal/service/user"
	"github.com/Alijeyrad/mindcare_backend/internal/store"
	pasetotoken "github.com/Alijeyrad/mindcare_backend/pkg/paseto"
	"github.com/Alijeyrad/mindcare_backend/pkg/util/password"
)

type memCache struct {
	mu     sync.Mutex
	data   map[string]string
	ttl    map[string]time.Duration
	delErr error
}

func newMemCache() *memCache {
	return &memCache{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (c *memCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return "", ErrCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key], c.ttl[key] = value, ttl
	return nil
}

func (c *memCache) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key], c.ttl[key] = strconv.FormatInt(n, 10), ttl
	return n, nil
}

func (c *memCache) Expire(_ context.Context, key string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ttl[key] = ttl
	return nil
}

func (c *memCache) Del(_ context.Context, keys ...string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.delErr != nil {
		return 0, c.delErr
	}
	var n int64
	for _, k := range keys {
		if _, ok := c.data[k]; ok {
			delete(c.data, k)
			n++
		}
	}
	return n, nil
}

type memUsers struct {
	byID map[uuid.UUID]*store.User
}

func (m *memUsers) Get(_ context.Context, id uuid.UUID) (*store.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*store.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memUsers) Update(_ context.Context, id uuid.UUID, upd store.UserUpdate) (*store.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if upd.LastLoginAt != nil {
		u.LastLoginAt = upd.LastLoginAt
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	return u, nil
}

type fakeRegistrar struct {
	got user.CreateRequest
}

func (f *fakeRegistrar) Register(_ context.Context, req user.CreateRequest) (*store.User, error) {
	f.got = req
	return &store.User{ID: uuid.New(), Email: req.Email, Role: store.RolePatient, IsActive: true}, nil
}

var cheapParams = &password.Params{Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

type fixture struct {
	svc    Service
	cache  *memCache
	users  *memUsers
	paseto *pasetotoken.Manager
	doctor *store.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	hash, err := password.HashWithParams("correct-horse", cheapParams)
	require.NoError(t, err)

	doctor := &store.User{ID: uuid.New(), Email: "doc@mindcare.test", PasswordHash: hash, Role: store.RoleDoctor, IsActive: true}
	users := &memUsers{byID: map[uuid.UUID]*store.User{doctor.ID: doctor}}

	keys := pasetotoken.NewLocalKeys()
	pm, err := pasetotoken.New(pasetotoken.Config{Mode: keys.Mode, Issuer: "mindcare", Audience: "mindcare-api", AccessTTL: time.Minute}, keys)
	require.NoError(t, err)

	cache := newMemCache()
	return &fixture{
		svc:    New(users, &fakeRegistrar{}, cache, pm, Config{MaxLoginAttempts: 3, Lockout: time.Minute, PasswordParams: cheapParams}),
		cache:  cache,
		users:  users,
		paseto: pm,
		doctor: doctor,
	}
}

func TestLoginIssuesTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, u, err := f.svc.Login(ctx, LoginRequest{Email: " DOC@mindcare.test ", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, f.doctor.ID, u.ID)
	assert.NotNil(t, u.LastLoginAt)
	assert.Equal(t, int64(60), tokens.ExpiresIn)

	claims, err := f.paseto.Verify(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "doctor", claims.GetRole())
	require.NotNil(t, claims.SessionID)

	active, err := f.svc.SessionActive(ctx, *claims.SessionID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, f.doctor.ID.String(), f.cache.data["session:"+claims.SessionID.String()])
}

func TestLoginLockout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "wrong"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}
	assert.Equal(t, time.Minute, f.cache.ttl["login:attempts:doc@mindcare.test"])

	_, _, err := f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrAccountLocked)

	f.cache.Del(ctx, "login:attempts:doc@mindcare.test")
	_, _, err = f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
	require.NoError(t, err)
}

func TestLoginFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Login(ctx, LoginRequest{Email: "nobody@mindcare.test", Password: "x"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "1", f.cache.data["login:attempts:nobody@mindcare.test"])

	_, _, err = f.svc.Login(ctx, LoginRequest{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	f.doctor.IsActive = false
	_, _, err = f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, _, err := f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
	require.NoError(t, err)

	_, err = f.svc.RefreshTokens(ctx, tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "access tokens cannot refresh")

	f.doctor.Role = store.RoleAdmin
	refreshed, err := f.svc.RefreshTokens(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, tokens.RefreshToken, refreshed.RefreshToken)
	claims, err := f.paseto.Verify(refreshed.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.GetRole(), "refresh picks up role changes")

	require.NoError(t, f.svc.Logout(ctx, *claims.SessionID))
	active, err := f.svc.SessionActive(ctx, *claims.SessionID)
	require.NoError(t, err)
	assert.False(t, active)

	_, err = f.svc.RefreshTokens(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	require.NoError(t, f.svc.Logout(ctx, *claims.SessionID), "logout is idempotent")
}

func TestRefreshDropsInactiveUserSession(t *testing.T) {
	ctx := context.Background()

	t.Run("session removed", func(t *testing.T) {
		f := newFixture(t)
		tokens, _, err := f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
		require.NoError(t, err)
		claims, err := f.paseto.Verify(tokens.RefreshToken)
		require.NoError(t, err)

		f.doctor.IsActive = false
		_, err = f.svc.RefreshTokens(ctx, tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrAccountInactive)

		active, err := f.svc.SessionActive(ctx, *claims.SessionID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	t.Run("cache failure is logged", func(t *testing.T) {
		var buf bytes.Buffer
		prev := slog.Default()
		slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
		t.Cleanup(func() { slog.SetDefault(prev) })

		f := newFixture(t)
		tokens, _, err := f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
		require.NoError(t, err)

		f.doctor.IsActive = false
		f.cache.delErr = errors.New("redis down")
		_, err = f.svc.RefreshTokens(ctx, tokens.RefreshToken)
		assert.ErrorIs(t, err, ErrAccountInactive)
		assert.Contains(t, buf.String(), "dropping inactive user session failed")
		assert.Contains(t, buf.String(), "redis down")
	})
}

func TestRegisterDelegates(t *testing.T) {
	reg := &fakeRegistrar{}
	f := newFixture(t)
	svc := New(f.users, reg, f.cache, f.paseto, Config{})

	u, err := svc.Register(context.Background(), RegisterRequest{Name: "A", LastName: "B", Email: "a@b.co", Password: "12345678"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", u.Email)
	assert.Equal(t, "12345678", reg.got.Password)
	assert.Empty(t, reg.got.Role)
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := password.HashWithParams("correct-horse", &password.Params{Memory: 4 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16})
	require.NoError(t, err)
	f.doctor.PasswordHash = old

	_, _, err = f.svc.Login(ctx, LoginRequest{Email: "doc@mindcare.test", Password: "correct-horse"})
	require.NoError(t, err)

	stored := f.users.byID[f.doctor.ID].PasswordHash
	assert.NotEqual(t, old, stored)
	assert.False(t, password.NeedsRehash(stored, cheapParams))
	assert.True(t, password.Match(stored, "correct-horse"))
}
