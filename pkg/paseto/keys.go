package pasetotoken

import (
	"fmt"
	"strings"
	"time"

	paseto "aidanwoods.dev/go-paseto"

	"github.com/Alijeyrad/mindcare_backend/config"
)

type Mode string

const (
	ModeLocal  Mode = "local"  // v4.local, encrypted with one shared key
	ModePublic Mode = "public" // v4.public, signed; verifiers need only the public key
)

// Keys holds the key material for one Mode. In ModePublic a verify-only
// deployment has Public set and Secret nil.
type Keys struct {
	Mode      Mode
	Symmetric *paseto.V4SymmetricKey
	Secret    *paseto.V4AsymmetricSecretKey
	Public    *paseto.V4AsymmetricPublicKey
}

// KeyStrings is hex-encoded key material as it appears in config.
type KeyStrings struct {
	Mode         Mode
	SymmetricHex string
	SecretHex    string
	PublicHex    string
}

func LoadKeys(in KeyStrings) (Keys, error) {
	switch in.Mode {
	case ModeLocal:
		return loadLocal(strings.TrimSpace(in.SymmetricHex))
	case ModePublic:
		return loadPublic(strings.TrimSpace(in.SecretHex), strings.TrimSpace(in.PublicHex))
	}
	return Keys{}, fmt.Errorf("%w: unknown mode %q, want local or public", ErrConfig, in.Mode)
}

func loadLocal(symHex string) (Keys, error) {
	if symHex == "" {
		return Keys{}, fmt.Errorf("%w: local mode needs local_key_hex", ErrConfig)
	}
	k, err := paseto.V4SymmetricKeyFromHex(symHex)
	if err != nil {
		return Keys{}, fmt.Errorf("%w: local key: %v", ErrConfig, err)
	}
	return Keys{Mode: ModeLocal, Symmetric: &k}, nil
}

// loadPublic derives the public key from the secret when only the secret is
// configured. An explicit public key wins.
func loadPublic(secHex, pubHex string) (Keys, error) {
	out := Keys{Mode: ModePublic}
	if secHex != "" {
		sk, err := paseto.NewV4AsymmetricSecretKeyFromHex(secHex)
		if err != nil {
			return Keys{}, fmt.Errorf("%w: secret key: %v", ErrConfig, err)
		}
		pk := sk.Public()
		out.Secret, out.Public = &sk, &pk
	}
	if pubHex != "" {
		pk, err := paseto.NewV4AsymmetricPublicKeyFromHex(pubHex)
		if err != nil {
			return Keys{}, fmt.Errorf("%w: public key: %v", ErrConfig, err)
		}
		out.Public = &pk
	}
	if out.Public == nil {
		return Keys{}, fmt.Errorf("%w: public mode needs secret_key_hex or public_key_hex", ErrConfig)
	}
	return out, nil
}

// NewLocalKeys generates a fresh symmetric key. Tokens do not survive a
// restart, so this is for tests and local development.
func NewLocalKeys() Keys {
	k := paseto.NewV4SymmetricKey()
	return Keys{Mode: ModeLocal, Symmetric: &k}
}

func NewPublicKeys() Keys {
	sk := paseto.NewV4AsymmetricSecretKey()
	pk := sk.Public()
	return Keys{Mode: ModePublic, Secret: &sk, Public: &pk}
}

// NewPasetoManager builds the token manager from the authentication section.
func NewPasetoManager(cfg *config.Config) (*Manager, error) {
	p := cfg.Authentication.Paseto
	keys, err := LoadKeys(KeyStrings{
		Mode:         Mode(p.Mode),
		SymmetricHex: p.LocalKeyHex,
		SecretHex:    p.SecretKeyHex,
		PublicHex:    p.PublicKeyHex,
	})
	if err != nil {
		return nil, err
	}
	return New(Config{
		Mode:       keys.Mode,
		Issuer:     p.Issuer,
		Audience:   p.Audience,
		AccessTTL:  time.Duration(p.AccessTTLMinutes) * time.Minute,
		RefreshTTL: time.Duration(p.RefreshTTLDays) * 24 * time.Hour,
	}, keys)
}
