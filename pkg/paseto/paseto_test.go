package pasetotoken

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, keys Keys, accessTTL time.Duration) *Manager {
	t.Helper()
	m, err := New(Config{
		Mode:      keys.Mode,
		Issuer:    "mindcare",
		Audience:  "mindcare-api",
		AccessTTL: accessTTL,
	}, keys)
	require.NoError(t, err)
	return m
}

func TestManager_IssueVerifyLocal(t *testing.T) {
	m := newTestManager(t, NewLocalKeys(), time.Minute)
	uid := uuid.New()
	sid := uuid.New()

	tok, err := m.IssueAccess(uid, "doctor", &sid)
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, uid, claims.GetUserID())
	assert.Equal(t, "doctor", claims.GetRole())
	assert.Equal(t, TokenTypeAccess, claims.Type)
	require.NotNil(t, claims.SessionID)
	assert.Equal(t, sid, *claims.SessionID)
}

func TestManager_IssueVerifyPublic(t *testing.T) {
	m := newTestManager(t, NewPublicKeys(), time.Minute)

	tok, err := m.IssueRefresh(uuid.New(), "patient", nil)
	require.NoError(t, err)

	claims, err := m.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
	assert.Nil(t, claims.SessionID)
}

func TestManager_VerifyRejectsForeignKey(t *testing.T) {
	issuer := newTestManager(t, NewLocalKeys(), time.Minute)
	verifier := newTestManager(t, NewLocalKeys(), time.Minute)

	tok, err := issuer.IssueAccess(uuid.New(), "patient", nil)
	require.NoError(t, err)

	_, err = verifier.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_VerifyRejectsOtherAudience(t *testing.T) {
	keys := NewLocalKeys()
	api := newTestManager(t, keys, time.Minute)
	other, err := New(Config{Mode: ModeLocal, Issuer: "mindcare", Audience: "mindcare-admin"}, keys)
	require.NoError(t, err)

	tok, err := other.IssueAccess(uuid.New(), "admin", nil)
	require.NoError(t, err)

	_, err = api.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestManager_VerifyRejectsExpired(t *testing.T) {
	m := newTestManager(t, NewLocalKeys(), time.Nanosecond)
	tok, err := m.IssueAccess(uuid.New(), "patient", nil)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)
	_, err = m.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestLoadKeys(t *testing.T) {
	local := NewLocalKeys()
	pub := NewPublicKeys()

	t.Run("local", func(t *testing.T) {
		k, err := LoadKeys(KeyStrings{Mode: ModeLocal, SymmetricHex: " " + local.Symmetric.ExportHex() + "\n"})
		require.NoError(t, err)
		assert.Equal(t, local.Symmetric.ExportHex(), k.Symmetric.ExportHex())
	})

	t.Run("public derives from secret", func(t *testing.T) {
		k, err := LoadKeys(KeyStrings{Mode: ModePublic, SecretHex: pub.Secret.ExportHex()})
		require.NoError(t, err)
		require.NotNil(t, k.Public)
		assert.Equal(t, pub.Public.ExportHex(), k.Public.ExportHex())
	})

	t.Run("verify only", func(t *testing.T) {
		k, err := LoadKeys(KeyStrings{Mode: ModePublic, PublicHex: pub.Public.ExportHex()})
		require.NoError(t, err)
		assert.Nil(t, k.Secret)

		m, err := New(Config{Mode: ModePublic, Issuer: "mindcare", Audience: "mindcare-api"}, k)
		require.NoError(t, err)
		_, err = m.IssueAccess(uuid.New(), "doctor", nil)
		assert.ErrorIs(t, err, ErrConfig)
	})

	for _, in := range []KeyStrings{
		{Mode: ModeLocal},
		{Mode: ModeLocal, SymmetricHex: "zz"},
		{Mode: ModePublic},
		{Mode: "jwt"},
	} {
		_, err := LoadKeys(in)
		assert.ErrorIs(t, err, ErrConfig, "%+v", in)
	}
}

func TestNew_RequiresIssuerAndAudience(t *testing.T) {
	_, err := New(Config{Mode: ModeLocal, Audience: "a"}, NewLocalKeys())
	assert.Error(t, err)
	_, err = New(Config{Mode: ModeLocal, Issuer: "i"}, NewLocalKeys())
	assert.Error(t, err)
	_, err = New(Config{Mode: ModePublic, Issuer: "i", Audience: "a"}, NewLocalKeys())
	assert.Error(t, err)
}

func TestTokenFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c fiber.Ctx) error {
		tok, ok := TokenFromRequest(c)
		if !ok {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.SendString(tok)
	})

	tests := []struct {
		name   string
		header string
		cookie string
		status int
	}{
		{"bearer header", "Bearer abc", "", fiber.StatusOK},
		{"cookie fallback", "", "from-cookie", fiber.StatusOK},
		{"wrong scheme", "Basic abc", "", fiber.StatusUnauthorized},
		{"nothing", "", "", fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.Header.Set("Cookie", CookieAccessToken+"="+tt.cookie)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
