// Package password hashes account passwords with Argon2id and encodes them
// in the PHC string format ($argon2id$v=19$m=..,t=..,p=..$salt$key).
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrInvalidHash         = errors.New("invalid password hash format")
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
	ErrMismatch            = errors.New("password does not match")
)

var b64 = base64.RawStdEncoding

// Params are the Argon2id cost settings. Memory is in KiB.
type Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams follows the OWASP baseline: 64 MiB, 3 passes, 2 lanes.
func DefaultParams() *Params {
	return &Params{Memory: 64 * 1024, Iterations: 3, Parallelism: 2, SaltLength: 16, KeyLength: 32}
}

func (p *Params) key(pw string, salt []byte) []byte {
	return argon2.IDKey([]byte(pw), salt, p.Iterations, p.Memory, p.Parallelism, p.KeyLength)
}

// HashWithParams hashes pw with a fresh random salt. Nil p means
// DefaultParams.
func HashWithParams(pw string, p *Params) (string, error) {
	if p == nil {
		p = DefaultParams()
	}
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Iterations, p.Parallelism,
		b64.EncodeToString(salt), b64.EncodeToString(p.key(pw, salt)),
	), nil
}

// Verify returns nil when pw matches the encoded hash, ErrMismatch when it
// does not and ErrInvalidHash or ErrIncompatibleVersion for a bad hash.
func Verify(encoded, pw string) error {
	p, salt, want, err := decode(encoded)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare(want, p.key(pw, salt)) != 1 {
		return ErrMismatch
	}
	return nil
}

// Match is Verify as a bool.
func Match(encoded, pw string) bool {
	return Verify(encoded, pw) == nil
}

// NeedsRehash reports whether encoded was produced with other costs than
// want, or cannot be parsed at all.
func NeedsRehash(encoded string, want *Params) bool {
	if want == nil {
		want = DefaultParams()
	}
	p, _, _, err := decode(encoded)
	if err != nil {
		return true
	}
	return p.Memory != want.Memory ||
		p.Iterations != want.Iterations ||
		p.Parallelism != want.Parallelism ||
		p.KeyLength != want.KeyLength
}

// Generate returns a random URL-safe password of n characters (16 when
// n <= 0). Used for bootstrap accounts.
func Generate(n int) string {
	if n <= 0 {
		n = 16
	}
	buf := make([]byte, (n*6+7)/8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("password: read random: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n]
}

func decode(encoded string) (*Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return nil, nil, nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	if version != argon2.Version {
		return nil, nil, nil, ErrIncompatibleVersion
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Iterations, &p.Parallelism); err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return nil, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, nil, nil, ErrInvalidHash
	}
	p.SaltLength, p.KeyLength = uint32(len(salt)), uint32(len(key))
	return &p, salt, key, nil
}
